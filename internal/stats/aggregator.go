// Package stats folds classified attendance records into per-identity and
// per-department figures. Every function here is pure: the same records and
// window always give the same result.
package stats

import (
	"math"
	"sort"
	"time"

	"clockgate/internal/attendance/models"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodWeek, PeriodMonth:
		return Period(s), nil
	case "":
		return PeriodWeek, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "period must be week or month")
	}
}

// Window is a range of calendar days [From, To). Both bounds are midnights
// in Location.
type Window struct {
	From     time.Time
	To       time.Time
	Location *time.Location
}

// WindowFor returns the ISO week (Monday first) or calendar month containing day.
func WindowFor(period Period, day time.Time, loc *time.Location) Window {
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if period == PeriodMonth {
		start = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return Window{From: start, To: start.AddDate(0, 1, 0), Location: loc}
	}
	offset := (int(start.Weekday()) + 6) % 7
	start = start.AddDate(0, 0, -offset)
	return Window{From: start, To: start.AddDate(0, 0, 7), Location: loc}
}

// Until clips the window so it ends no later than the day after now. Days
// that have not happened yet are never absent.
func (w Window) Until(now time.Time) Window {
	local := now.In(w.Location)
	tomorrow := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.Location).AddDate(0, 0, 1)
	if w.To.After(tomorrow) {
		w.To = tomorrow
	}
	if w.To.Before(w.From) {
		w.To = w.From
	}
	return w
}

// Months widens the window to the calendar months it touches.
func (w Window) Months() Window {
	last := w.From
	if w.To.After(w.From) {
		last = w.To.AddDate(0, 0, -1)
	}
	from := time.Date(w.From.Year(), w.From.Month(), 1, 0, 0, 0, 0, w.Location)
	to := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, w.Location).AddDate(0, 1, 0)
	return Window{From: from, To: to, Location: w.Location}
}

// Contains reports whether t falls in [From, To).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Days lists the calendar days in the window.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.From; d.Before(w.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ExpectedWorkingDays counts Monday to Friday in the window.
func (w Window) ExpectedWorkingDays() int {
	n := 0
	for _, d := range w.Days() {
		if isWorkingDay(d) {
			n++
		}
	}
	return n
}

func isWorkingDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Policy holds the thresholds aggregation depends on.
type Policy struct {
	StandardDailyHours   float64
	BurnoutOvertimeHours float64
}

// IdentityStats summarises one identity over a window.
type IdentityStats struct {
	IdentityID      id.IdentityID `json:"identity_id"`
	From            time.Time     `json:"from"`
	To              time.Time     `json:"to"`
	ExpectedDays    int           `json:"expected_days"`
	PresentDays     int           `json:"present_days"`
	HalfdayDays     int           `json:"halfday_days"`
	AbsentDays      int           `json:"absent_days"`
	ClockIns        int           `json:"clock_ins"`
	EarlyCount      int           `json:"early_count"`
	LateCount       int           `json:"late_count"`
	TotalHours      float64       `json:"total_hours"`
	OvertimeHours   float64       `json:"overtime_hours"`
	AttendanceRate  float64       `json:"attendance_rate"`
	PunctualityRate float64       `json:"punctuality_rate"`
}

// Summarize folds one identity's records. Only sealed records carry a
// classification, so open records are ignored. A day is present when any
// of its records is present; weekend work adds hours but not expected days.
func Summarize(identityID id.IdentityID, records []*models.Record, w Window, p Policy) IdentityStats {
	out := IdentityStats{
		IdentityID:   identityID,
		From:         w.From,
		To:           w.To,
		ExpectedDays: w.ExpectedWorkingDays(),
	}

	dayStatus := make(map[string]models.Status)
	for _, rec := range records {
		if rec.IdentityID != identityID || rec.Classification == nil {
			continue
		}
		c := rec.Classification
		out.ClockIns++
		if c.Timing == models.TimingLate {
			out.LateCount++
		} else {
			out.EarlyCount++
		}
		out.TotalHours += c.Hours
		out.OvertimeHours += math.Max(0, c.Hours-p.StandardDailyHours)

		day := rec.ClockIn.In(w.Location).Format(time.DateOnly)
		if dayStatus[day] != models.StatusPresent {
			dayStatus[day] = c.Status
		}
	}

	for _, day := range w.Days() {
		if !isWorkingDay(day) {
			continue
		}
		switch dayStatus[day.Format(time.DateOnly)] {
		case models.StatusPresent:
			out.PresentDays++
		case models.StatusHalfday:
			out.HalfdayDays++
		default:
			out.AbsentDays++
		}
	}

	out.TotalHours = round2(out.TotalHours)
	out.OvertimeHours = round2(out.OvertimeHours)
	out.AttendanceRate = percent(out.PresentDays, out.ExpectedDays)
	out.PunctualityRate = percent(out.EarlyCount, out.ClockIns)
	return out
}

// MonthlyOvertime sums overtime per calendar month ("2006-01") of clock-in.
func MonthlyOvertime(records []*models.Record, loc *time.Location, standardDailyHours float64) map[string]float64 {
	out := make(map[string]float64)
	for _, rec := range records {
		if rec.Classification == nil {
			continue
		}
		month := rec.ClockIn.In(loc).Format("2006-01")
		out[month] += math.Max(0, rec.Classification.Hours-standardDailyHours)
	}
	return out
}

// Member is the slice of an identity the organization rollup needs.
type Member struct {
	IdentityID id.IdentityID
	Name       string
	Department string
}

type DepartmentStats struct {
	Department      string          `json:"department"`
	Headcount       int             `json:"headcount"`
	TotalHours      float64         `json:"total_hours"`
	AverageHours    float64         `json:"average_hours"`
	OvertimeHours   float64         `json:"overtime_hours"`
	AttendanceRate  float64         `json:"attendance_rate"`
	PunctualityRate float64         `json:"punctuality_rate"`
	BurnoutRisk     []id.IdentityID `json:"burnout_risk"`
}

type OrganizationStats struct {
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	Headcount   int               `json:"headcount"`
	TotalHours  float64           `json:"total_hours"`
	Departments []DepartmentStats `json:"departments"`
}

// Rollup groups members by department. records may reach past the window to
// the whole calendar months it touches: hours and rates count only records
// inside the window, while an identity is a burnout risk when its overtime
// in any of those months exceeds the policy limit.
func Rollup(members []Member, records []*models.Record, w Window, p Policy) OrganizationStats {
	byIdentity := make(map[id.IdentityID][]*models.Record)
	inWindow := make(map[id.IdentityID][]*models.Record)
	for _, rec := range records {
		byIdentity[rec.IdentityID] = append(byIdentity[rec.IdentityID], rec)
		if w.Contains(rec.ClockIn) {
			inWindow[rec.IdentityID] = append(inWindow[rec.IdentityID], rec)
		}
	}

	type tally struct {
		stats             DepartmentStats
		present, expected int
		early, clockIns   int
	}
	departments := make(map[string]*tally)
	out := OrganizationStats{From: w.From, To: w.To}

	for _, m := range members {
		t, ok := departments[m.Department]
		if !ok {
			t = &tally{stats: DepartmentStats{Department: m.Department, BurnoutRisk: []id.IdentityID{}}}
			departments[m.Department] = t
		}
		summary := Summarize(m.IdentityID, inWindow[m.IdentityID], w, p)

		t.stats.Headcount++
		t.stats.TotalHours += summary.TotalHours
		t.stats.OvertimeHours += summary.OvertimeHours
		t.present += summary.PresentDays
		t.expected += summary.ExpectedDays
		t.early += summary.EarlyCount
		t.clockIns += summary.ClockIns

		for _, overtime := range MonthlyOvertime(byIdentity[m.IdentityID], w.Location, p.StandardDailyHours) {
			if overtime > p.BurnoutOvertimeHours {
				t.stats.BurnoutRisk = append(t.stats.BurnoutRisk, m.IdentityID)
				break
			}
		}
		out.Headcount++
		out.TotalHours += summary.TotalHours
	}

	for _, t := range departments {
		d := t.stats
		d.TotalHours = round2(d.TotalHours)
		d.OvertimeHours = round2(d.OvertimeHours)
		d.AverageHours = round2(d.TotalHours / float64(d.Headcount))
		d.AttendanceRate = percent(t.present, t.expected)
		d.PunctualityRate = percent(t.early, t.clockIns)
		sort.Slice(d.BurnoutRisk, func(i, j int) bool { return d.BurnoutRisk[i].String() < d.BurnoutRisk[j].String() })
		out.Departments = append(out.Departments, d)
	}
	sort.Slice(out.Departments, func(i, j int) bool { return out.Departments[i].Department < out.Departments[j].Department })
	out.TotalHours = round2(out.TotalHours)
	return out
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return round2(float64(n) / float64(d) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
