// AngelaMos | 2026
// repository.go

package gig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Repository interface {
	Create(ctx context.Context, g *Gig) error
	GetByID(ctx context.Context, id string) (*Gig, error)
	Lock(ctx context.Context, id string) (*Gig, error)
	Update(ctx context.Context, g *Gig) error
	SetStatus(ctx context.Context, id string, status Status) error
	List(ctx context.Context, params BrowseParams) ([]Gig, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const gigColumns = `
	id, seller_id, category_id, title, description, price_cents, currency,
	delivery_days, is_ai_agent, status, created_at, updated_at`

func (r *repository) Create(ctx context.Context, g *Gig) error {
	query := `
		INSERT INTO gigs (id, seller_id, category_id, title, description, price_cents,
			currency, delivery_days, is_ai_agent, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		g.ID, g.SellerID, g.CategoryID, g.Title, g.Description, g.PriceCents,
		g.Currency, g.DeliveryDays, g.IsAIAgent, g.Status,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create gig: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Gig, error) {
	return r.get(ctx, "get gig", `SELECT `+gigColumns+` FROM gigs WHERE id = $1`, id)
}

func (r *repository) Lock(ctx context.Context, id string) (*Gig, error) {
	return r.get(ctx, "lock gig", `SELECT `+gigColumns+` FROM gigs WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) get(ctx context.Context, op, query, id string) (*Gig, error) {
	var g Gig
	err := r.db.GetContext(ctx, &g, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, core.MapPgError(err))
	}
	return &g, nil
}

func (r *repository) Update(ctx context.Context, g *Gig) error {
	query := `
		UPDATE gigs
		SET category_id = $2, title = $3, description = $4, price_cents = $5,
			delivery_days = $6, is_ai_agent = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &g.UpdatedAt, query,
		g.ID, g.CategoryID, g.Title, g.Description, g.PriceCents, g.DeliveryDays, g.IsAIAgent,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update gig: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update gig: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id string, status Status) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE gigs SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set gig status: %w", core.MapPgError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set gig status: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set gig status: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) List(ctx context.Context, params BrowseParams) ([]Gig, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIdx))
		args = append(args, params.CategoryID)
		argIdx++
	}

	if params.SellerID != "" {
		conditions = append(conditions, fmt.Sprintf("seller_id = $%d", argIdx))
		args = append(args, params.SellerID)
		argIdx++
	}

	if params.IsAIAgent != nil {
		conditions = append(conditions, fmt.Sprintf("is_ai_agent = $%d", argIdx))
		args = append(args, *params.IsAIAgent)
		argIdx++
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM gigs WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count gigs: %w", core.MapPgError(err))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM gigs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		gigColumns, whereClause, argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	var gigs []Gig
	if err := r.db.SelectContext(ctx, &gigs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list gigs: %w", core.MapPgError(err))
	}

	return gigs, total, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
