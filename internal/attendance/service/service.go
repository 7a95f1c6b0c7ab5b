package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"clockgate/internal/attendance"
	"clockgate/internal/attendance/metrics"
	"clockgate/internal/attendance/models"
	"clockgate/internal/geo"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	"clockgate/pkg/platform/sentinel"
	"clockgate/pkg/platform/tracing"
	"clockgate/pkg/requestcontext"
)

// maxHistoryDays bounds a single history query.
const maxHistoryDays = 366

type Store interface {
	Open(ctx context.Context, rec *models.Record) error
	FindOpen(ctx context.Context, identityID id.IdentityID) (*models.Record, error)
	Execute(ctx context.Context, recordID id.RecordID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error)
	ListByIdentities(ctx context.Context, identityIDs []id.IdentityID, from, to time.Time) ([]*models.Record, error)
}

type Stations interface {
	Lookup(code id.StationCode) (geo.Station, error)
}

// Service opens and seals attendance records. Callers gate clock events;
// this service only enforces record invariants.
type Service struct {
	store      Store
	stations   Stations
	classifier attendance.Classifier
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

func New(store Store, stations Stations, classifier attendance.Classifier, opts ...Option) *Service {
	s := &Service{
		store:      store,
		stations:   stations,
		classifier: classifier,
		tracer:     tracing.Tracer("clockgate/attendance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClockIn opens a record at the request time.
func (s *Service) ClockIn(ctx context.Context, identityID id.IdentityID, station id.StationCode) (_ *models.Record, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "attendance.ClockIn", "identity_id", identityID.String())
	defer func() { tracing.End(span, err) }()

	rec := models.NewRecord(id.RecordID(uuid.New()), identityID, station, requestcontext.Now(ctx))
	if err := s.store.Open(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeInvalidState, "already clocked in")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open attendance record")
	}
	s.metrics.IncrementOpened()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "attendance record opened",
			"identity_id", identityID,
			"record_id", rec.ID,
			"station", station,
		)
	}
	return rec, nil
}

// ClockOut seals the identity's open record and classifies it against the
// station it was opened at.
func (s *Service) ClockOut(ctx context.Context, identityID id.IdentityID) (_ *models.Record, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "attendance.ClockOut", "identity_id", identityID.String())
	defer func() { tracing.End(span, err) }()

	open, err := s.store.FindOpen(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidState, "not clocked in")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load open record")
	}
	station, err := s.stations.Lookup(open.Station)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "station of open record is unknown")
	}

	now := requestcontext.Now(ctx)
	classification, err := s.classifier.Classify(open.ClockIn, now, station)
	if err != nil {
		return nil, invariantToValidation(err)
	}
	sealed, err := s.store.Execute(ctx, open.ID,
		func(r *models.Record) error { return r.CanSeal(now) },
		func(r *models.Record) { r.ApplySeal(now, classification) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidState, "not clocked in")
		}
		if _, ok := dErrors.As(err); ok {
			return nil, invariantToValidation(err)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal attendance record")
	}

	s.metrics.ObserveSealed(classification)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "attendance record sealed",
			"identity_id", identityID,
			"record_id", sealed.ID,
			"status", classification.Status,
			"timing", classification.Timing,
			"hours", classification.Hours,
		)
	}
	return sealed, nil
}

// OpenRecord returns the identity's open record, or nil when it is not clocked in.
func (s *Service) OpenRecord(ctx context.Context, identityID id.IdentityID) (*models.Record, error) {
	rec, err := s.store.FindOpen(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load open record")
	}
	return rec, nil
}

// History lists the identity's records with clock-in in [from, to).
func (s *Service) History(ctx context.Context, identityID id.IdentityID, from, to time.Time) ([]*models.Record, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	return s.ListBetween(ctx, []id.IdentityID{identityID}, from, to)
}

// ListBetween lists records for several identities; an empty list means all.
func (s *Service) ListBetween(ctx context.Context, identityIDs []id.IdentityID, from, to time.Time) ([]*models.Record, error) {
	recs, err := s.store.ListByIdentities(ctx, identityIDs, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance records")
	}
	return recs, nil
}

func validateRange(from, to time.Time) error {
	if !to.After(from) {
		return dErrors.New(dErrors.CodeValidation, "range end must be after start")
	}
	if to.Sub(from) > maxHistoryDays*24*time.Hour {
		return dErrors.New(dErrors.CodeValidation, "range exceeds one year")
	}
	return nil
}

func invariantToValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid clock-out")
	}
	return err
}
