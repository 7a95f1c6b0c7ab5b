package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	attendance "clockgate/internal/attendance/models"
	identity "clockgate/internal/identity/models"
	"clockgate/internal/stats"
	"clockgate/internal/stats/metrics"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/tracing"
	"clockgate/pkg/requestcontext"
)

type Records interface {
	ListBetween(ctx context.Context, identityIDs []id.IdentityID, from, to time.Time) ([]*attendance.Record, error)
}

type Identities interface {
	ListActive(ctx context.Context) ([]*identity.Identity, error)
}

// Service loads records for a window and hands them to the stats folds.
// Concurrent organization requests for the same window share one computation.
type Service struct {
	records    Records
	identities Identities
	policy     stats.Policy
	location   *time.Location
	group      singleflight.Group
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLocation sets the timezone calendar days and months are cut in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

func New(records Records, identities Identities, policy stats.Policy, opts ...Option) *Service {
	s := &Service{
		records:    records,
		identities: identities,
		policy:     policy,
		location:   time.UTC,
		tracer:     tracing.Tracer("clockgate/stats"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window is the period containing day, clipped at the request time.
func (s *Service) Window(ctx context.Context, period stats.Period, day time.Time) stats.Window {
	return stats.WindowFor(period, day, s.location).Until(requestcontext.Now(ctx))
}

// ForIdentity summarises one identity over the period containing day.
func (s *Service) ForIdentity(ctx context.Context, identityID id.IdentityID, period stats.Period, day time.Time) (_ *stats.IdentityStats, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "stats.ForIdentity",
		"identity_id", identityID.String(),
		"period", string(period),
	)
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	w := s.Window(ctx, period, day)
	records, err := s.records.ListBetween(ctx, []id.IdentityID{identityID}, w.From, w.To)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendance records")
	}
	summary := stats.Summarize(identityID, records, w, s.policy)
	s.metrics.ObserveComputation("identity", time.Since(start))
	return &summary, nil
}

// ForOrganization rolls active identities up by department.
func (s *Service) ForOrganization(ctx context.Context, period stats.Period, day time.Time) (_ *stats.OrganizationStats, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "stats.ForOrganization", "period", string(period))
	defer func() { tracing.End(span, err) }()

	w := s.Window(ctx, period, day)
	months := w.Months().Until(requestcontext.Now(ctx))
	key := string(period) + ":" + w.From.Format(time.DateOnly) + ":" + w.To.Format(time.DateOnly)
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.computeOrganization(context.WithoutCancel(ctx), w, months)
	})
	if shared {
		s.metrics.IncrementShared()
	}
	if err != nil {
		return nil, err
	}
	result := v.(stats.OrganizationStats)
	return &result, nil
}

// computeOrganization loads the whole months overlapping w so burnout is
// judged on monthly overtime even for a weekly report.
func (s *Service) computeOrganization(ctx context.Context, w, months stats.Window) (stats.OrganizationStats, error) {
	start := time.Now()
	var (
		active  []*identity.Identity
		records []*attendance.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		active, err = s.identities.ListActive(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.records.ListBetween(gctx, nil, months.From, months.To)
		return err
	})
	if err := g.Wait(); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to load organization statistics", "error", err)
		}
		if _, ok := dErrors.As(err); ok {
			return stats.OrganizationStats{}, err
		}
		return stats.OrganizationStats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization statistics")
	}

	members := make([]stats.Member, 0, len(active))
	for _, i := range active {
		members = append(members, stats.Member{IdentityID: i.ID, Name: i.Name, Department: i.Department})
	}
	result := stats.Rollup(members, records, w, s.policy)
	s.metrics.ObserveComputation("organization", time.Since(start))
	return result, nil
}
