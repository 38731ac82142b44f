// AngelaMos | 2026
// entity.go

package moderation

import (
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type ContentType string

const (
	ContentGig     ContentType = "gig"
	ContentProfile ContentType = "profile"
	ContentMessage ContentType = "message"
	ContentReview  ContentType = "review"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusReviewing Status = "reviewing"
	StatusRemoved   Status = "removed"
	StatusDismissed Status = "dismissed"
)

var statusTransitions = core.Transitions[Status]{
	StatusPending:   {},
	StatusReviewing: {StatusPending},
	StatusRemoved:   {StatusPending, StatusReviewing},
	StatusDismissed: {StatusPending, StatusReviewing},
}

type Flag struct {
	ID             string      `db:"id"              json:"id"`
	ContentType    ContentType `db:"content_type"    json:"content_type"`
	ContentID      string      `db:"content_id"      json:"content_id"`
	OwnerID        *string     `db:"owner_id"        json:"owner_id"`
	ReporterID     string      `db:"reporter_id"     json:"reporter_id"`
	Reason         string      `db:"reason"          json:"reason"`
	Status         Status      `db:"status"          json:"status"`
	ModeratorNotes string      `db:"moderator_notes" json:"moderator_notes"`
	ReviewedBy     *string     `db:"reviewed_by"     json:"reviewed_by"`
	ReviewedAt     *time.Time  `db:"reviewed_at"     json:"reviewed_at"`
	CreatedAt      time.Time   `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"      json:"updated_at"`
}

func (f *Flag) IsClosed() bool {
	return f.Status == StatusRemoved || f.Status == StatusDismissed
}
