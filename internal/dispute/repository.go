// AngelaMos | 2026
// repository.go

package dispute

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Repository interface {
	Create(ctx context.Context, d *Dispute) error
	GetByID(ctx context.Context, id string) (*Dispute, error)
	Lock(ctx context.Context, id string) (*Dispute, error)
	HasActiveForOrder(ctx context.Context, orderID string) (bool, error)
	SetStatus(ctx context.Context, id string, status Status) (*Dispute, error)
	Escalate(ctx context.Context, id string) (*Dispute, error)
	Resolve(ctx context.Context, id, resolution, resolvedBy string, at time.Time) (*Dispute, error)
	List(ctx context.Context, params ListParams) ([]Dispute, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const disputeColumns = `
	id, order_id, raised_by, against_user_id, reason, description, status,
	escalation_count, resolution, resolved_by, resolved_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, d *Dispute) error {
	query := `
		INSERT INTO disputes (id, order_id, raised_by, against_user_id, reason, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		d.ID, d.OrderID, d.RaisedBy, d.AgainstUserID, d.Reason, d.Description, d.Status,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create dispute: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Dispute, error) {
	return r.get(ctx, "get dispute", `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
}

func (r *repository) Lock(ctx context.Context, id string) (*Dispute, error) {
	return r.get(ctx, "lock dispute", `SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) get(ctx context.Context, op, query string, args ...any) (*Dispute, error) {
	var d Dispute
	err := r.db.GetContext(ctx, &d, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, core.MapPgError(err))
	}
	return &d, nil
}

func (r *repository) HasActiveForOrder(ctx context.Context, orderID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM disputes
			WHERE order_id = $1 AND status NOT IN ('resolved', 'closed')
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, orderID); err != nil {
		return false, fmt.Errorf("check active dispute: %w", core.MapPgError(err))
	}
	return exists, nil
}

func (r *repository) SetStatus(ctx context.Context, id string, status Status) (*Dispute, error) {
	query := `
		UPDATE disputes
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + disputeColumns

	return r.get(ctx, "set dispute status", query, id, status)
}

// Escalate bumps the counter in the same statement as the status change, so
// concurrent escalations cannot lose an increment.
func (r *repository) Escalate(ctx context.Context, id string) (*Dispute, error) {
	query := `
		UPDATE disputes
		SET status = 'escalated', escalation_count = escalation_count + 1, updated_at = NOW()
		WHERE id = $1 AND status IN ('open', 'under_review')
		RETURNING ` + disputeColumns

	return r.get(ctx, "escalate dispute", query, id)
}

func (r *repository) Resolve(
	ctx context.Context,
	id, resolution, resolvedBy string,
	at time.Time,
) (*Dispute, error) {
	query := `
		UPDATE disputes
		SET status = 'resolved', resolution = $2, resolved_by = $3, resolved_at = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + disputeColumns

	return r.get(ctx, "resolve dispute", query, id, resolution, resolvedBy, at)
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Dispute, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}
	if params.PartyID != "" {
		conditions = append(conditions, fmt.Sprintf("(raised_by = $%d OR against_user_id = $%d)", argIdx, argIdx))
		args = append(args, params.PartyID)
		argIdx++
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM disputes WHERE "+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count disputes: %w", core.MapPgError(err))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM disputes
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		disputeColumns, whereClause, argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	var out []Dispute
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list disputes: %w", core.MapPgError(err))
	}
	return out, total, nil
}
