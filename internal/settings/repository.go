// AngelaMos | 2026
// repository.go

package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Repository interface {
	ListSettings(ctx context.Context) ([]Setting, error)
	GetSetting(ctx context.Context, key string) (*Setting, error)
	PutSetting(ctx context.Context, s *Setting) error
	DeleteSetting(ctx context.Context, key string) error

	CreateAPIKey(ctx context.Context, k *APIKey) error
	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) (*APIKey, error)

	CreateWebhook(ctx context.Context, w *Webhook) error
	GetWebhook(ctx context.Context, id string) (*Webhook, error)
	UpdateWebhook(ctx context.Context, w *Webhook) error
	DeleteWebhook(ctx context.Context, id string) error
	ListWebhooks(ctx context.Context) ([]Webhook, error)
	ListActiveWebhooks(ctx context.Context) ([]Webhook, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const (
	settingColumns = `key, value, description, updated_by, updated_at`
	apiKeyColumns  = `id, name, prefix, key_hash, scopes, created_by, last_used_at, revoked_at, created_at`
	webhookColumns = `id, url, events, secret, is_active, created_by, created_at, updated_at`
)

func (r *repository) ListSettings(ctx context.Context) ([]Setting, error) {
	var out []Setting
	if err := r.db.SelectContext(ctx, &out, `SELECT `+settingColumns+` FROM system_settings ORDER BY key`); err != nil {
		return nil, fmt.Errorf("list settings: %w", core.MapPgError(err))
	}
	return out, nil
}

func (r *repository) GetSetting(ctx context.Context, key string) (*Setting, error) {
	var s Setting
	err := r.db.GetContext(ctx, &s, `SELECT `+settingColumns+` FROM system_settings WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get setting: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", core.MapPgError(err))
	}
	return &s, nil
}

func (r *repository) PutSetting(ctx context.Context, s *Setting) error {
	query := `
		INSERT INTO system_settings (key, value, description, updated_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
			description = EXCLUDED.description,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()
		RETURNING updated_at`

	if err := r.db.GetContext(ctx, &s.UpdatedAt, query, s.Key, s.Value, s.Description, s.UpdatedBy); err != nil {
		return fmt.Errorf("put setting: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) DeleteSetting(ctx context.Context, key string) error {
	return r.execOne(ctx, "delete setting", `DELETE FROM system_settings WHERE key = $1`, key)
}

func (r *repository) CreateAPIKey(ctx context.Context, k *APIKey) error {
	query := `
		INSERT INTO api_keys (id, name, prefix, key_hash, scopes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if err := r.db.GetContext(ctx, &k.CreatedAt, query,
		k.ID, k.Name, k.Prefix, k.KeyHash, k.Scopes, k.CreatedBy,
	); err != nil {
		return fmt.Errorf("create api key: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	var out []APIKey
	if err := r.db.SelectContext(ctx, &out, `SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC`); err != nil {
		return nil, fmt.Errorf("list api keys: %w", core.MapPgError(err))
	}
	return out, nil
}

// RevokeAPIKey returns ErrNotFound for unknown or already revoked keys.
func (r *repository) RevokeAPIKey(ctx context.Context, id string) (*APIKey, error) {
	query := `
		UPDATE api_keys
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
		RETURNING ` + apiKeyColumns

	var k APIKey
	err := r.db.GetContext(ctx, &k, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revoke api key: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("revoke api key: %w", core.MapPgError(err))
	}
	return &k, nil
}

func (r *repository) CreateWebhook(ctx context.Context, w *Webhook) error {
	query := `
		INSERT INTO webhooks (id, url, events, secret, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		w.ID, w.URL, w.Events, w.Secret, w.IsActive, w.CreatedBy,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create webhook: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) GetWebhook(ctx context.Context, id string) (*Webhook, error) {
	var w Webhook
	err := r.db.GetContext(ctx, &w, `SELECT `+webhookColumns+` FROM webhooks WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get webhook: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook: %w", core.MapPgError(err))
	}
	return &w, nil
}

func (r *repository) UpdateWebhook(ctx context.Context, w *Webhook) error {
	query := `
		UPDATE webhooks
		SET url = $2, events = $3, secret = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &w.UpdatedAt, query, w.ID, w.URL, w.Events, w.Secret, w.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update webhook: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update webhook: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) DeleteWebhook(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete webhook", `DELETE FROM webhooks WHERE id = $1`, id)
}

func (r *repository) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var out []Webhook
	if err := r.db.SelectContext(ctx, &out, `SELECT `+webhookColumns+` FROM webhooks ORDER BY created_at DESC`); err != nil {
		return nil, fmt.Errorf("list webhooks: %w", core.MapPgError(err))
	}
	return out, nil
}

func (r *repository) ListActiveWebhooks(ctx context.Context) ([]Webhook, error) {
	var out []Webhook
	if err := r.db.SelectContext(ctx, &out, `SELECT `+webhookColumns+` FROM webhooks WHERE is_active`); err != nil {
		return nil, fmt.Errorf("list active webhooks: %w", core.MapPgError(err))
	}
	return out, nil
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, core.MapPgError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}
