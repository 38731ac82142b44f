// AngelaMos | 2026
// repository.go

package trust

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Repository interface {
	List(ctx context.Context, q ListQuery) ([]Row, error)
	Get(ctx context.Context, userID string) (*Row, error)
	// Lock reads the record with a row lock; inside a transaction only.
	Lock(ctx context.Context, userID string) (*Record, error)
	Provision(ctx context.Context, userID string) error
	IncrementWarning(ctx context.Context, userID string, at time.Time) (*Record, error)
	AppendSuspension(
		ctx context.Context,
		userID string,
		entry SuspensionEntry,
	) (*Record, error)
	SetStatus(ctx context.Context, userID string, status Status, at time.Time) (*Record, error)
	SetScore(ctx context.Context, userID string, score int, at time.Time) (*Record, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const recordColumns = `
	t.id, t.user_id, t.trust_score, t.warning_count, t.suspension_history,
	t.status, t.last_warning_date, t.created_at, t.updated_at`

const returningColumns = `
	RETURNING id, user_id, trust_score, warning_count, suspension_history,
		status, last_warning_date, created_at, updated_at`

var filterClauses = map[Filter]string{
	FilterAll:       "",
	FilterActive:    "WHERE t.status = 'active'",
	FilterSuspended: "WHERE t.status = 'suspended'",
	FilterWarned:    "WHERE t.warning_count > 0",
	FilterLowTrust:  fmt.Sprintf("WHERE t.trust_score < %d", LowTrustThreshold),
}

var sortColumns = map[SortField]string{
	SortTrustScore:      "t.trust_score",
	SortWarningCount:    "t.warning_count",
	SortCreatedAt:       "t.created_at",
	SortUpdatedAt:       "t.updated_at",
	SortLastWarningDate: "t.last_warning_date",
}

func orderClause(q ListQuery) (string, error) {
	col, ok := sortColumns[q.Sort]
	if !ok {
		return "", core.ValidationError(fmt.Sprintf("unknown sort field %q", q.Sort))
	}

	dir := "DESC"
	if q.Direction == Asc {
		dir = "ASC"
	}

	return fmt.Sprintf("ORDER BY %s %s NULLS LAST, t.user_id", col, dir), nil
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]Row, error) {
	where, ok := filterClauses[q.Filter]
	if !ok {
		return nil, core.ValidationError(fmt.Sprintf("unknown status filter %q", q.Filter))
	}

	order, err := orderClause(q)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + recordColumns + `,
			COALESCE(p.display_name, '') AS display_name,
			COALESCE(u.email, '') AS email
		FROM user_trust_records t
		LEFT JOIN users u ON u.id = t.user_id
		LEFT JOIN profiles p ON p.user_id = t.user_id
		` + where + `
		` + order

	var rows []Row
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list trust records: %w", err)
	}

	return rows, nil
}

func (r *repository) Get(ctx context.Context, userID string) (*Row, error) {
	query := `
		SELECT ` + recordColumns + `,
			COALESCE(p.display_name, '') AS display_name,
			COALESCE(u.email, '') AS email
		FROM user_trust_records t
		LEFT JOIN users u ON u.id = t.user_id
		LEFT JOIN profiles p ON p.user_id = t.user_id
		WHERE t.user_id = $1`

	var row Row
	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get trust record: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get trust record: %w", core.MapPgError(err))
	}

	return &row, nil
}

func (r *repository) Lock(ctx context.Context, userID string) (*Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM user_trust_records t
		WHERE t.user_id = $1
		FOR UPDATE`

	var rec Record
	err := r.db.GetContext(ctx, &rec, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lock trust record: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock trust record: %w", core.MapPgError(err))
	}

	return &rec, nil
}

func (r *repository) Provision(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_trust_records (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("provision trust record: %w", core.MapPgError(err))
	}
	return nil
}

// IncrementWarning bumps the counter in one statement, creating the record
// for a user that has none yet.
func (r *repository) IncrementWarning(
	ctx context.Context,
	userID string,
	at time.Time,
) (*Record, error) {
	query := `
		INSERT INTO user_trust_records (user_id, warning_count, last_warning_date, updated_at)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET warning_count = user_trust_records.warning_count + 1,
			last_warning_date = EXCLUDED.last_warning_date,
			updated_at = EXCLUDED.updated_at` + returningColumns

	var rec Record
	if err := r.db.GetContext(ctx, &rec, query, userID, at); err != nil {
		return nil, fmt.Errorf("increment warning: %w", core.MapPgError(err))
	}

	return &rec, nil
}

// AppendSuspension appends to the history with jsonb concatenation so
// concurrent suspensions never overwrite each other.
func (r *repository) AppendSuspension(
	ctx context.Context,
	userID string,
	entry SuspensionEntry,
) (*Record, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("append suspension: %w", err)
	}

	query := `
		INSERT INTO user_trust_records (user_id, status, suspension_history, updated_at)
		VALUES ($1, 'suspended', jsonb_build_array($2::jsonb), $3)
		ON CONFLICT (user_id) DO UPDATE
		SET status = 'suspended',
			suspension_history = user_trust_records.suspension_history || EXCLUDED.suspension_history,
			updated_at = EXCLUDED.updated_at` + returningColumns

	var rec Record
	if err := r.db.GetContext(ctx, &rec, query, userID, string(raw), entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("append suspension: %w", core.MapPgError(err))
	}

	return &rec, nil
}

func (r *repository) SetStatus(
	ctx context.Context,
	userID string,
	status Status,
	at time.Time,
) (*Record, error) {
	query := `
		INSERT INTO user_trust_records (user_id, status, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at` + returningColumns

	var rec Record
	if err := r.db.GetContext(ctx, &rec, query, userID, string(status), at); err != nil {
		return nil, fmt.Errorf("set trust status: %w", core.MapPgError(err))
	}

	return &rec, nil
}

func (r *repository) SetScore(
	ctx context.Context,
	userID string,
	score int,
	at time.Time,
) (*Record, error) {
	query := `
		INSERT INTO user_trust_records (user_id, trust_score, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET trust_score = EXCLUDED.trust_score,
			updated_at = EXCLUDED.updated_at` + returningColumns

	var rec Record
	if err := r.db.GetContext(ctx, &rec, query, userID, score, at); err != nil {
		return nil, fmt.Errorf("set trust score: %w", core.MapPgError(err))
	}

	return &rec, nil
}
