// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

// Counter reads marketplace counters for the overview.
type Counter interface {
	Counts(ctx context.Context) (*MarketplaceCounts, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Counter {
	return &repository{db: db}
}

type statusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

func (r *repository) Counts(ctx context.Context) (*MarketplaceCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE deleted_at IS NULL) AS users,
			(SELECT COUNT(*) FROM user_trust_records WHERE status = 'suspended') AS suspended_users,
			(SELECT COUNT(*) FROM gigs WHERE status = 'active') AS active_gigs,
			(SELECT COUNT(*) FROM disputes WHERE status IN ('open', 'under_review', 'escalated')) AS open_disputes,
			(SELECT COUNT(*) FROM flagged_content WHERE status IN ('pending', 'reviewing')) AS pending_flags,
			(SELECT COUNT(*) FROM ops_tasks WHERE status IN ('todo', 'in_progress', 'blocked')) AS open_tasks`

	var counts MarketplaceCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("marketplace counts: %w", core.MapPgError(err))
	}

	var byStatus []statusCount
	if err := r.db.SelectContext(ctx, &byStatus,
		`SELECT status, COUNT(*) AS count FROM orders GROUP BY status`); err != nil {
		return nil, fmt.Errorf("orders by status: %w", core.MapPgError(err))
	}

	counts.OrdersByStatus = make(map[string]int, len(byStatus))
	for _, sc := range byStatus {
		counts.OrdersByStatus[sc.Status] = sc.Count
	}

	return &counts, nil
}
