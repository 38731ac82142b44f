// AngelaMos | 2026
// entity.go

package settings

import (
	"slices"
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Setting struct {
	Key         string       `db:"key"         json:"key"`
	Value       core.RawJSON `db:"value"       json:"value"`
	Description string       `db:"description" json:"description"`
	UpdatedBy   *string      `db:"updated_by"  json:"updated_by"`
	UpdatedAt   time.Time    `db:"updated_at"  json:"updated_at"`
}

type APIKey struct {
	ID         string          `db:"id"           json:"id"`
	Name       string          `db:"name"         json:"name"`
	Prefix     string          `db:"prefix"       json:"prefix"`
	KeyHash    string          `db:"key_hash"     json:"-"`
	Scopes     core.StringList `db:"scopes"       json:"scopes"`
	CreatedBy  *string         `db:"created_by"   json:"created_by"`
	LastUsedAt *time.Time      `db:"last_used_at" json:"last_used_at"`
	RevokedAt  *time.Time      `db:"revoked_at"   json:"revoked_at"`
	CreatedAt  time.Time       `db:"created_at"   json:"created_at"`
}

type Webhook struct {
	ID        string          `db:"id"         json:"id"`
	URL       string          `db:"url"        json:"url"`
	Events    core.StringList `db:"events"     json:"events"`
	Secret    string          `db:"secret"     json:"-"`
	IsActive  bool            `db:"is_active"  json:"is_active"`
	CreatedBy *string         `db:"created_by" json:"created_by"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Wants reports whether the webhook subscribes to eventType. "*" matches all.
func (w *Webhook) Wants(eventType string) bool {
	return w.IsActive && (slices.Contains(w.Events, "*") || slices.Contains(w.Events, eventType))
}
