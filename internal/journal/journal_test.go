// AngelaMos | 2026
// journal_test.go

package journal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/gigmarket/internal/audit"
	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/notification"
	"github.com/carterperez-dev/gigmarket/internal/outbox"
)

type auditRepo struct {
	audit.Repository
	logs []audit.Log
	err  error
}

func (r *auditRepo) Insert(_ context.Context, l *audit.Log) error {
	if r.err != nil {
		return r.err
	}
	r.logs = append(r.logs, *l)
	return nil
}

type outboxRepo struct {
	outbox.Repository
	events []outbox.Event
}

func (r *outboxRepo) Insert(_ context.Context, e *outbox.Event) error {
	r.events = append(r.events, *e)
	return nil
}

type notifyRepo struct {
	notification.Repository
	rows []notification.Notification
}

func (r *notifyRepo) Insert(_ context.Context, n *notification.Notification) error {
	r.rows = append(r.rows, *n)
	return nil
}

func (r *notifyRepo) GetActiveTemplateByKey(
	context.Context,
	string,
) (*notification.Template, error) {
	return nil, fmt.Errorf("template: %w", core.ErrNotFound)
}

func TestRecord_WritesAllSideEffects(t *testing.T) {
	a, o, n := &auditRepo{}, &outboxRepo{}, &notifyRepo{}
	j := &writer{audit: a, outbox: o, notify: n}

	err := j.Record(context.Background(), Entry{
		ActorID:    "mod-1",
		Action:     "trust.warned",
		EntityType: "user_trust",
		EntityID:   "u-1",
		Details:    map[string]any{"reason": "spam"},
		Notify: []notification.Notice{
			{UserID: "u-1", Type: "trust", Title: "Warning", Message: "spam"},
			{UserID: ""},
		},
	})

	require.NoError(t, err)
	require.Len(t, a.logs, 1)
	assert.Equal(t, "mod-1", *a.logs[0].ActorID)
	assert.Equal(t, "spam", a.logs[0].Details["reason"])

	require.Len(t, o.events, 1)
	assert.Equal(t, "trust.warned", o.events[0].EventType)
	assert.Equal(t, "u-1", o.events[0].AggregateID)

	require.Len(t, n.rows, 1)
	assert.Equal(t, "u-1", n.rows[0].UserID)
}

func TestRecord_SystemActorHasNoActorID(t *testing.T) {
	a := &auditRepo{}
	j := &writer{audit: a, outbox: &outboxRepo{}, notify: &notifyRepo{}}

	require.NoError(t, j.Record(context.Background(), Entry{Action: "order.paid", EntityType: "order"}))
	assert.Nil(t, a.logs[0].ActorID)
}

func TestRecord_AuditFailureStops(t *testing.T) {
	o := &outboxRepo{}
	j := &writer{audit: &auditRepo{err: errors.New("boom")}, outbox: o, notify: &notifyRepo{}}

	err := j.Record(context.Background(), Entry{Action: "x"})

	assert.Error(t, err)
	assert.Empty(t, o.events)
}
