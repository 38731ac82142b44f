// AngelaMos | 2026
// entity.go

package trust

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// statusTransitions lists the predecessors of each status. Suspending a
// suspended user appends another history entry; lifting is unconditional.
var statusTransitions = core.Transitions[Status]{
	StatusActive:    {StatusActive, StatusSuspended},
	StatusSuspended: {StatusActive, StatusSuspended},
}

const (
	DefaultTrustScore = 100
	LowTrustThreshold = 50
	MaxReasonLength   = 500
	MinSuspendDays    = 1
	MaxSuspendDays    = 365
)

type SuspensionEntry struct {
	Reason    string    `json:"reason"`
	Until     time.Time `json:"until"`
	CreatedAt time.Time `json:"created_at"`
}

// SuspensionHistory is stored oldest first.
type SuspensionHistory []SuspensionEntry

func (h SuspensionHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal([]SuspensionEntry(h))
	if err != nil {
		return nil, fmt.Errorf("marshal suspension history: %w", err)
	}
	return b, nil
}

func (h *SuspensionHistory) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*h = SuspensionHistory{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan suspension history: unsupported type %T", src)
	}

	var out []SuspensionEntry
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan suspension history: %w", err)
	}
	*h = out
	return nil
}

// Current is the most recent entry, or nil when the user was never
// suspended. Entries are appended oldest first and never removed, so only
// the last one can be in force; earlier ones were lifted or superseded.
func (h SuspensionHistory) Current() *SuspensionEntry {
	if len(h) == 0 {
		return nil
	}
	return &h[len(h)-1]
}

type Record struct {
	ID                string            `db:"id"`
	UserID            string            `db:"user_id"`
	TrustScore        int               `db:"trust_score"`
	WarningCount      int               `db:"warning_count"`
	SuspensionHistory SuspensionHistory `db:"suspension_history"`
	Status            Status            `db:"status"`
	LastWarningDate   *time.Time        `db:"last_warning_date"`
	CreatedAt         time.Time         `db:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at"`
}

func (r *Record) IsSuspended() bool {
	return r.Status == StatusSuspended
}

func (r *Record) SuspensionCount() int {
	return len(r.SuspensionHistory)
}

// Row is a record joined with the owning user's display fields.
type Row struct {
	Record
	DisplayName string `db:"display_name"`
	Email       string `db:"email"`
}
