// AngelaMos | 2026
// repository.go

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Repository interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListLocations(ctx context.Context, activeOnly bool) ([]Location, error)
	GetLocation(ctx context.Context, id string) (*Location, error)
	CreateLocation(ctx context.Context, l *Location) error
	UpdateLocation(ctx context.Context, l *Location) error
	DeleteLocation(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) ListCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	query := `
		SELECT id, name, slug, description, parent_id, sort_order, is_active, created_at, updated_at
		FROM categories
		WHERE ($1 = FALSE OR is_active)
		ORDER BY sort_order, name`

	var out []Category
	if err := r.db.SelectContext(ctx, &out, query, activeOnly); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *repository) GetCategory(ctx context.Context, id string) (*Category, error) {
	query := `
		SELECT id, name, slug, description, parent_id, sort_order, is_active, created_at, updated_at
		FROM categories
		WHERE id = $1`

	var c Category
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get category: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", core.MapPgError(err))
	}
	return &c, nil
}

func (r *repository) CreateCategory(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (name, slug, description, parent_id, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		c.Name, c.Slug, c.Description, c.ParentID, c.SortOrder, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create category: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) UpdateCategory(ctx context.Context, c *Category) error {
	query := `
		UPDATE categories
		SET name = $2, slug = $3, description = $4, parent_id = $5,
			sort_order = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &c.UpdatedAt, query,
		c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.SortOrder, c.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update category: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update category: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) DeleteCategory(ctx context.Context, id string) error {
	return r.deleteOne(ctx, "delete category", `DELETE FROM categories WHERE id = $1`, id)
}

func (r *repository) ListLocations(ctx context.Context, activeOnly bool) ([]Location, error) {
	query := `
		SELECT id, name, country_code, region, is_active, created_at, updated_at
		FROM locations
		WHERE ($1 = FALSE OR is_active)
		ORDER BY country_code, name`

	var out []Location
	if err := r.db.SelectContext(ctx, &out, query, activeOnly); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return out, nil
}

func (r *repository) GetLocation(ctx context.Context, id string) (*Location, error) {
	query := `
		SELECT id, name, country_code, region, is_active, created_at, updated_at
		FROM locations
		WHERE id = $1`

	var l Location
	err := r.db.GetContext(ctx, &l, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get location: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", core.MapPgError(err))
	}
	return &l, nil
}

func (r *repository) CreateLocation(ctx context.Context, l *Location) error {
	query := `
		INSERT INTO locations (name, country_code, region, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		l.Name, l.CountryCode, l.Region, l.IsActive,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create location: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) UpdateLocation(ctx context.Context, l *Location) error {
	query := `
		UPDATE locations
		SET name = $2, country_code = $3, region = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &l.UpdatedAt, query,
		l.ID, l.Name, l.CountryCode, l.Region, l.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update location: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update location: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) DeleteLocation(ctx context.Context, id string) error {
	return r.deleteOne(ctx, "delete location", `DELETE FROM locations WHERE id = $1`, id)
}

func (r *repository) deleteOne(ctx context.Context, op, query, id string) error {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, core.MapPgError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}
