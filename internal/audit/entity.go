// AngelaMos | 2026
// entity.go

package audit

import (
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Log struct {
	ID         string       `db:"id"          json:"id"`
	ActorID    *string      `db:"actor_id"    json:"actor_id"`
	Action     string       `db:"action"      json:"action"`
	EntityType string       `db:"entity_type" json:"entity_type"`
	EntityID   string       `db:"entity_id"   json:"entity_id"`
	Details    core.JSONMap `db:"details"     json:"details"`
	CreatedAt  time.Time    `db:"created_at"  json:"created_at"`
}

type ListParams struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Since      *time.Time
	Page       int
	PageSize   int
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 50
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type LogEventRequest struct {
	Action     string         `json:"action"      validate:"required,max=100"`
	EntityType string         `json:"entity_type" validate:"required,max=100"`
	EntityID   string         `json:"entity_id"   validate:"max=255"`
	Details    map[string]any `json:"details"`
}
