// Package outbox relays audit rows from the Postgres outbox to Kafka.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clockgate/pkg/platform/audit/store/postgres"
	"clockgate/pkg/platform/circuit"
)

// Publisher is the Kafka side of the relay.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers map[string]string) error
}

// Claimer hands out batches of unpublished rows.
type Claimer interface {
	ClaimBatch(ctx context.Context, limit int, publish func(ctx context.Context, entries []postgres.OutboxEntry) ([]uuid.UUID, error)) (int, error)
}

type Relay struct {
	claimer   Claimer
	publisher Publisher
	breaker   *circuit.Breaker
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Relay) {
		if b != nil {
			r.breaker = b
		}
	}
}

func NewRelay(claimer Claimer, publisher Publisher, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		claimer:   claimer,
		publisher: publisher,
		logger:    logger,
		interval:  2 * time.Second,
		batchSize: 100,
		breaker:   circuit.New("audit-kafka", circuit.WithFailureThreshold(3), circuit.WithCooldown(30*time.Second)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays batches until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.WarnContext(ctx, "audit outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many rows were marked
// published. Rows that fail stay in the outbox for the next round.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	if !r.breaker.Allow() {
		return 0, nil
	}
	n, err := r.claimer.ClaimBatch(ctx, r.batchSize, r.publish)
	if err != nil {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.ErrorContext(ctx, "audit kafka circuit opened", "error", err)
		}
		return n, err
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "audit kafka circuit closed")
	}
	return n, nil
}

func (r *Relay) publish(ctx context.Context, entries []postgres.OutboxEntry) ([]uuid.UUID, error) {
	done := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		headers := map[string]string{"event_type": e.EventType}
		if err := r.publisher.Publish(ctx, []byte(e.AggregateID), e.Payload, headers); err != nil {
			// Stop at the first failure to keep per-identity ordering.
			return done, err
		}
		done = append(done, e.ID)
	}
	return done, nil
}
