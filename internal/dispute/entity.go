// AngelaMos | 2026
// entity.go

package dispute

import (
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Status string

const (
	StatusOpen        Status = "open"
	StatusUnderReview Status = "under_review"
	StatusEscalated   Status = "escalated"
	StatusResolved    Status = "resolved"
	StatusClosed      Status = "closed"
)

var statusTransitions = core.Transitions[Status]{
	StatusOpen:        {},
	StatusUnderReview: {StatusOpen, StatusEscalated},
	StatusEscalated:   {StatusOpen, StatusUnderReview},
	StatusResolved:    {StatusOpen, StatusUnderReview, StatusEscalated},
	StatusClosed:      {StatusOpen, StatusUnderReview, StatusEscalated, StatusResolved},
}

type Dispute struct {
	ID              string     `db:"id"               json:"id"`
	OrderID         string     `db:"order_id"         json:"order_id"`
	RaisedBy        string     `db:"raised_by"        json:"raised_by"`
	AgainstUserID   string     `db:"against_user_id"  json:"against_user_id"`
	Reason          string     `db:"reason"           json:"reason"`
	Description     string     `db:"description"      json:"description"`
	Status          Status     `db:"status"           json:"status"`
	EscalationCount int        `db:"escalation_count" json:"escalation_count"`
	Resolution      string     `db:"resolution"       json:"resolution"`
	ResolvedBy      *string    `db:"resolved_by"      json:"resolved_by"`
	ResolvedAt      *time.Time `db:"resolved_at"      json:"resolved_at"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

func (d *Dispute) IsParty(userID string) bool {
	return userID != "" && (d.RaisedBy == userID || d.AgainstUserID == userID)
}

func (d *Dispute) IsActive() bool {
	return d.Status != StatusResolved && d.Status != StatusClosed
}
