// AngelaMos | 2026
// outbox.go

package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Event struct {
	ID            string       `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   string       `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       core.RawJSON `db:"payload"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
	Attempts      int          `db:"attempts"`
	LastError     string       `db:"last_error"`
}

// Envelope is the message body published for every event.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEvent(
	aggregateType, aggregateID, eventType string,
	payload any,
) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}

func (e *Event) Envelope() Envelope {
	return Envelope{
		ID:            e.ID,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		EventType:     e.EventType,
		OccurredAt:    e.CreatedAt,
		Payload:       json.RawMessage(e.Payload),
	}
}

type Repository interface {
	Insert(ctx context.Context, e *Event) error
	FetchPending(ctx context.Context, limit, maxAttempts int) ([]Event, error)
	MarkPublished(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, e *Event) error {
	query := `
		INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &e.CreatedAt, query,
		e.ID, e.AggregateType, e.AggregateID, e.EventType, e.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return nil
}

// FetchPending locks a batch of unpublished events. It must run inside a
// transaction; concurrent relays skip rows already claimed.
func (r *repository) FetchPending(
	ctx context.Context,
	limit, maxAttempts int,
) ([]Event, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload,
			created_at, published_at, attempts, last_error
		FROM outbox_events
		WHERE published_at IS NULL AND attempts < $2
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	var events []Event
	if err := r.db.SelectContext(ctx, &events, query, limit, maxAttempts); err != nil {
		return nil, fmt.Errorf("fetch pending outbox events: %w", err)
	}

	return events, nil
}

func (r *repository) MarkPublished(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE outbox_events SET published_at = NOW(), attempts = attempts + 1 WHERE id = $1",
		id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox event published: %w", err)
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE outbox_events SET attempts = attempts + 1, last_error = $2 WHERE id = $1",
		id, reason,
	)
	if err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	return nil
}
