// AngelaMos | 2026
// dto.go

package trust

import (
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterSuspended Filter = "suspended"
	FilterWarned    Filter = "warned"
	FilterLowTrust  Filter = "low_trust"
)

type SortField string

const (
	SortTrustScore      SortField = "trust_score"
	SortWarningCount    SortField = "warning_count"
	SortCreatedAt       SortField = "created_at"
	SortUpdatedAt       SortField = "updated_at"
	SortLastWarningDate SortField = "last_warning_date"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type ListQuery struct {
	Filter    Filter
	Sort      SortField
	Direction Direction
}

// ParseListQuery validates raw query parameters; empty values take the
// defaults (all, updated_at, desc).
func ParseListQuery(filter, sort, direction string) (ListQuery, error) {
	q := ListQuery{Filter: FilterAll, Sort: SortUpdatedAt, Direction: Desc}

	if filter != "" {
		q.Filter = Filter(strings.ToLower(filter))
		switch q.Filter {
		case FilterAll, FilterActive, FilterSuspended, FilterWarned, FilterLowTrust:
		default:
			return q, core.ValidationError(fmt.Sprintf("unknown status filter %q", filter))
		}
	}

	if sort != "" {
		q.Sort = SortField(strings.ToLower(sort))
		switch q.Sort {
		case SortTrustScore, SortWarningCount, SortCreatedAt, SortUpdatedAt, SortLastWarningDate:
		default:
			return q, core.ValidationError(fmt.Sprintf("unknown sort field %q", sort))
		}
	}

	if direction != "" {
		q.Direction = Direction(strings.ToLower(direction))
		if q.Direction != Asc && q.Direction != Desc {
			return q, core.ValidationError(fmt.Sprintf("unknown sort direction %q", direction))
		}
	}

	return q, nil
}

type WarnRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type SuspendRequest struct {
	Reason string `json:"reason" validate:"required"`
	Days   int    `json:"days"   validate:"required,min=1,max=365"`
}

type ScoreRequest struct {
	Score  *int   `json:"score"  validate:"required,min=0,max=100"`
	Reason string `json:"reason" validate:"required"`
}

// View is the list/detail shape with the derived fields filled in.
type View struct {
	UserID            string            `json:"user_id"`
	DisplayName       string            `json:"display_name"`
	Email             string            `json:"email"`
	TrustScore        int               `json:"trust_score"`
	WarningCount      int               `json:"warning_count"`
	LastWarningAt     *time.Time        `json:"last_warning_at"`
	Status            Status            `json:"status"`
	IsSuspended       bool              `json:"is_suspended"`
	SuspensionCount   int               `json:"suspension_count"`
	SuspensionReason  *string           `json:"suspension_reason"`
	SuspensionUntil   *time.Time        `json:"suspension_until"`
	SuspensionExpired bool              `json:"suspension_expired"`
	SuspensionHistory SuspensionHistory `json:"suspension_history"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ToView derives the presentation fields. Expiry is reported, never
// enforced: a suspended record stays suspended past its until date.
func ToView(row Row, now time.Time) View {
	history := row.SuspensionHistory
	if history == nil {
		history = SuspensionHistory{}
	}

	v := View{
		UserID:            row.UserID,
		DisplayName:       row.DisplayName,
		Email:             row.Email,
		TrustScore:        row.TrustScore,
		WarningCount:      row.WarningCount,
		LastWarningAt:     row.LastWarningDate,
		Status:            row.Status,
		IsSuspended:       row.IsSuspended(),
		SuspensionCount:   len(history),
		SuspensionHistory: history,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}

	if v.IsSuspended {
		if cur := history.Current(); cur != nil {
			reason, until := cur.Reason, cur.Until
			v.SuspensionReason = &reason
			v.SuspensionUntil = &until
			v.SuspensionExpired = !until.After(now)
		}
	}

	return v
}

func ToViews(rows []Row, now time.Time) []View {
	out := make([]View, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToView(row, now))
	}
	return out
}

type WarnResult struct {
	UserID        string    `json:"user_id"`
	WarningCount  int       `json:"warning_count"`
	LastWarningAt time.Time `json:"last_warning_at"`
}

type SuspendResult struct {
	UserID           string    `json:"user_id"`
	IsSuspended      bool      `json:"is_suspended"`
	SuspensionReason string    `json:"suspension_reason"`
	SuspensionUntil  time.Time `json:"suspension_until"`
	SuspensionCount  int       `json:"suspension_count"`
}

type RemoveSuspensionResult struct {
	UserID           string     `json:"user_id"`
	IsSuspended      bool       `json:"is_suspended"`
	SuspensionReason *string    `json:"suspension_reason"`
	SuspensionUntil  *time.Time `json:"suspension_until"`
	SuspensionCount  int        `json:"suspension_count"`
}

type ScoreResult struct {
	UserID     string `json:"user_id"`
	TrustScore int    `json:"trust_score"`
}
