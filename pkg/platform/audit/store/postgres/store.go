// Package postgres implements audit.Store on top of a transactional outbox.
// Append writes inside the caller's transaction when one is in context, so
// an attendance record and its audit event commit together. The outbox relay
// publishes rows to Kafka afterwards.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "clockgate/pkg/domain"
	audit "clockgate/pkg/platform/audit"
	txcontext "clockgate/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Payload is the JSON body stored in the outbox and published to Kafka.
type Payload struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Timestamp   string `json:"timestamp"`
	IdentityID  string `json:"identity_id,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Action      string `json:"action"`
	Decision    string `json:"decision,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Station     string `json:"station,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	ActorID     string `json:"actor_id,omitempty"`
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	payload := Payload{
		ID:          eventID.String(),
		Category:    string(audit.AuditEvent(event.Action).Category()),
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:     event.Subject,
		Action:      event.Action,
		Decision:    event.Decision,
		Reason:      event.Reason,
		Fingerprint: event.Fingerprint,
		Station:     event.Station,
		RequestID:   event.RequestID,
		ActorID:     event.ActorID,
	}
	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.IdentityID.IsNil() {
		payload.IdentityID = event.IdentityID.String()
		aggregateType = "identity"
		aggregateID = payload.IdentityID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		eventID, aggregateType, aggregateID, event.Action, body, time.Now())
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *Store) ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM outbox
		WHERE aggregate_type = 'identity' AND aggregate_id = $1
		ORDER BY created_at
	`, identityID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p Payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		events = append(events, p.toEvent(identityID))
	}
	return events, rows.Err()
}

func (p Payload) toEvent(identityID id.IdentityID) audit.Event {
	ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
	return audit.Event{
		Category:    audit.EventCategory(p.Category),
		Timestamp:   ts,
		IdentityID:  identityID,
		Subject:     p.Subject,
		Action:      p.Action,
		Decision:    p.Decision,
		Reason:      p.Reason,
		Fingerprint: p.Fingerprint,
		Station:     p.Station,
		RequestID:   p.RequestID,
		ActorID:     p.ActorID,
	}
}

// OutboxEntry is an unpublished outbox row.
type OutboxEntry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
}

// ClaimBatch locks up to limit unpublished rows and hands them to publish.
// Rows publish accepts are marked published in the same transaction, so a
// crash between Kafka and the UPDATE republishes rather than loses events.
func (s *Store) ClaimBatch(ctx context.Context, limit int, publish func(ctx context.Context, entries []OutboxEntry) ([]uuid.UUID, error)) (int, error) {
	published := 0
	err := txcontext.Run(ctx, s.db, nil, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		rows, err := exec.QueryContext(ctx, `
			SELECT id, aggregate_id, event_type, payload FROM outbox
			WHERE published_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return fmt.Errorf("claim outbox batch: %w", err)
		}
		var entries []OutboxEntry
		for rows.Next() {
			var e OutboxEntry
			if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload); err != nil {
				rows.Close()
				return fmt.Errorf("scan outbox entry: %w", err)
			}
			entries = append(entries, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate outbox batch: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		done, publishErr := publish(ctx, entries)
		if len(done) > 0 {
			ids := make([]string, 0, len(done))
			for _, d := range done {
				ids = append(ids, d.String())
			}
			if _, err := exec.ExecContext(ctx,
				`UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`,
				time.Now(), pq.Array(ids)); err != nil {
				return fmt.Errorf("mark outbox published: %w", err)
			}
			published = len(done)
		}
		if publishErr != nil && len(done) == 0 {
			return publishErr
		}
		return nil
	})
	return published, err
}
