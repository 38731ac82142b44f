// AngelaMos | 2026
// repository.go

package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	ListForUser(
		ctx context.Context,
		userID string,
		params ListParams,
	) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)

	ListTemplates(ctx context.Context) ([]Template, error)
	GetTemplate(ctx context.Context, id string) (*Template, error)
	GetActiveTemplateByKey(ctx context.Context, key string) (*Template, error)
	CreateTemplate(ctx context.Context, t *Template) error
	UpdateTemplate(ctx context.Context, t *Template) error
	DeleteTemplate(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, link)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &n.CreatedAt, query,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Link,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", core.MapPgError(err))
	}

	return nil
}

func (r *repository) ListForUser(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Notification, int, error) {
	filter := "WHERE user_id = $1"
	if params.UnreadOnly {
		filter += " AND is_read = false"
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM notifications "+filter, userID,
	); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := `
		SELECT id, user_id, type, title, message, link, is_read, created_at
		FROM notifications ` + filter + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var items []Notification
	if err := r.db.SelectContext(ctx, &items, query,
		userID, params.PageSize, params.Offset(),
	); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	return items, total, nil
}

func (r *repository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false",
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (r *repository) MarkRead(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("mark notification read: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false",
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	return rows, nil
}

const templateColumns = `id, key, title, body, is_active, created_at, updated_at`

func (r *repository) ListTemplates(ctx context.Context) ([]Template, error) {
	var items []Template
	err := r.db.SelectContext(ctx, &items,
		"SELECT "+templateColumns+" FROM notification_templates ORDER BY key",
	)
	if err != nil {
		return nil, fmt.Errorf("list notification templates: %w", err)
	}
	return items, nil
}

func (r *repository) GetTemplate(ctx context.Context, id string) (*Template, error) {
	var t Template
	err := r.db.GetContext(ctx, &t,
		"SELECT "+templateColumns+" FROM notification_templates WHERE id = $1",
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get notification template: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get notification template: %w", err)
	}
	return &t, nil
}

func (r *repository) GetActiveTemplateByKey(
	ctx context.Context,
	key string,
) (*Template, error) {
	var t Template
	err := r.db.GetContext(ctx, &t,
		"SELECT "+templateColumns+" FROM notification_templates WHERE key = $1 AND is_active",
		key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get notification template: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get notification template: %w", err)
	}
	return &t, nil
}

func (r *repository) CreateTemplate(ctx context.Context, t *Template) error {
	query := `
		INSERT INTO notification_templates (id, key, title, body, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		t.ID, t.Key, t.Title, t.Body, t.IsActive,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create notification template: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) UpdateTemplate(ctx context.Context, t *Template) error {
	query := `
		UPDATE notification_templates
		SET key = $2, title = $3, body = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &t.UpdatedAt, query,
		t.ID, t.Key, t.Title, t.Body, t.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update notification template: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update notification template: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) DeleteTemplate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM notification_templates WHERE id = $1", id,
	)
	if err != nil {
		return fmt.Errorf("delete notification template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete notification template: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete notification template: %w", core.ErrNotFound)
	}
	return nil
}
