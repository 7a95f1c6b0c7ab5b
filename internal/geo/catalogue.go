package geo

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
)

// Catalogue is the read-only set of stations loaded at startup.
type Catalogue struct {
	stations map[id.StationCode]Station
}

type stationFile struct {
	Stations []stationEntry `yaml:"stations"`
}

type stationEntry struct {
	Code          string  `yaml:"code"`
	Name          string  `yaml:"name"`
	Lat           float64 `yaml:"lat"`
	Lng           float64 `yaml:"lng"`
	RadiusMeters  float64 `yaml:"radius_meters"`
	ExpectedStart string  `yaml:"expected_start"`
	LateGrace     string  `yaml:"late_grace"`
}

// NewCatalogue validates and indexes stations. Codes must be unique.
func NewCatalogue(stations ...Station) (*Catalogue, error) {
	c := &Catalogue{stations: make(map[id.StationCode]Station, len(stations))}
	for _, s := range stations {
		if s.Code == "" {
			return nil, fmt.Errorf("station %q has no code", s.Name)
		}
		if err := s.Position.Validate(); err != nil {
			return nil, fmt.Errorf("station %s: %w", s.Code, err)
		}
		if s.RadiusMeters <= 0 {
			return nil, fmt.Errorf("station %s: radius must be positive", s.Code)
		}
		if _, dup := c.stations[s.Code]; dup {
			return nil, fmt.Errorf("station %s defined twice", s.Code)
		}
		c.stations[s.Code] = s
	}
	return c, nil
}

// LoadCatalogue reads a YAML station file.
func LoadCatalogue(path string) (*Catalogue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read station file: %w", err)
	}
	return ParseCatalogue(raw)
}

func ParseCatalogue(raw []byte) (*Catalogue, error) {
	var file stationFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode station file: %w", err)
	}
	stations := make([]Station, 0, len(file.Stations))
	for _, e := range file.Stations {
		code, err := id.ParseStationCode(e.Code)
		if err != nil {
			return nil, fmt.Errorf("station %q: %w", e.Name, err)
		}
		start, err := parseClock(e.ExpectedStart)
		if err != nil {
			return nil, fmt.Errorf("station %s expected_start: %w", code, err)
		}
		var grace time.Duration
		if e.LateGrace != "" {
			grace, err = time.ParseDuration(e.LateGrace)
			if err != nil || grace < 0 {
				return nil, fmt.Errorf("station %s late_grace: invalid duration %q", code, e.LateGrace)
			}
		}
		stations = append(stations, Station{
			Code:          code,
			Name:          e.Name,
			Position:      Position{Lat: e.Lat, Lng: e.Lng},
			RadiusMeters:  e.RadiusMeters,
			ExpectedStart: start,
			LateGrace:     grace,
		})
	}
	return NewCatalogue(stations...)
}

// parseClock turns "HH:MM" into an offset from midnight. Empty means 08:00.
func parseClock(v string) (time.Duration, error) {
	if v == "" {
		return 8 * time.Hour, nil
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", v)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (c *Catalogue) Lookup(code id.StationCode) (Station, error) {
	s, ok := c.stations[code]
	if !ok {
		return Station{}, dErrors.New(dErrors.CodeNotFound, "unknown station "+code.String())
	}
	return s, nil
}

// List returns stations ordered by code.
func (c *Catalogue) List() []Station {
	out := make([]Station, 0, len(c.stations))
	for _, s := range c.stations {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
