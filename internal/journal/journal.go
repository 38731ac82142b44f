// AngelaMos | 2026
// journal.go

// Package journal records the side effects of a state change inside the
// transaction that made it: an audit row, an outbox event and any user
// notifications either all commit with the change or none do.
package journal

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carterperez-dev/gigmarket/internal/audit"
	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/notification"
	"github.com/carterperez-dev/gigmarket/internal/outbox"
)

type Entry struct {
	// ActorID is empty for system-initiated changes such as webhooks.
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]any
	Notify     []notification.Notice
}

type Journal interface {
	Record(ctx context.Context, e Entry) error
}

// Factory binds a journal to a transaction handle.
type Factory func(db core.DBTX) Journal

type writer struct {
	audit  audit.Repository
	outbox outbox.Repository
	notify notification.Repository
}

func New(db core.DBTX) Journal {
	return &writer{
		audit:  audit.NewRepository(db),
		outbox: outbox.NewRepository(db),
		notify: notification.NewRepository(db),
	}
}

func (w *writer) Record(ctx context.Context, e Entry) error {
	log := &audit.Log{
		ID:         uuid.New().String(),
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    core.JSONMap(e.Details),
	}
	if e.ActorID != "" {
		log.ActorID = &e.ActorID
	}
	if err := w.audit.Insert(ctx, log); err != nil {
		return fmt.Errorf("journal %s: %w", e.Action, err)
	}

	payload := map[string]any{
		"actor_id": e.ActorID,
		"details":  e.Details,
	}
	event, err := outbox.NewEvent(e.EntityType, e.EntityID, e.Action, payload)
	if err != nil {
		return fmt.Errorf("journal %s: %w", e.Action, err)
	}
	if err := w.outbox.Insert(ctx, event); err != nil {
		return fmt.Errorf("journal %s: %w", e.Action, err)
	}

	for _, notice := range e.Notify {
		if notice.UserID == "" {
			continue
		}
		n, err := notification.Compose(ctx, w.notify, notice)
		if err != nil {
			return fmt.Errorf("journal %s: %w", e.Action, err)
		}
		if err := w.notify.Insert(ctx, n); err != nil {
			return fmt.Errorf("journal %s: %w", e.Action, err)
		}
	}

	return nil
}
