// AngelaMos | 2026
// entity.go

package gig

import (
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
)

// Archived is terminal and nothing returns to draft.
var statusTransitions = core.Transitions[Status]{
	StatusDraft:    {},
	StatusActive:   {StatusDraft, StatusPaused},
	StatusPaused:   {StatusActive},
	StatusArchived: {StatusDraft, StatusActive, StatusPaused},
}

type Gig struct {
	ID           string    `db:"id"            json:"id"`
	SellerID     string    `db:"seller_id"     json:"seller_id"`
	CategoryID   *string   `db:"category_id"   json:"category_id"`
	Title        string    `db:"title"         json:"title"`
	Description  string    `db:"description"   json:"description"`
	PriceCents   int64     `db:"price_cents"   json:"price_cents"`
	Currency     string    `db:"currency"      json:"currency"`
	DeliveryDays int       `db:"delivery_days" json:"delivery_days"`
	IsAIAgent    bool      `db:"is_ai_agent"   json:"is_ai_agent"`
	Status       Status    `db:"status"        json:"status"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

func (g *Gig) IsPurchasable() bool {
	return g.Status == StatusActive
}
