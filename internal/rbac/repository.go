// AngelaMos | 2026
// repository.go

package rbac

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Repository interface {
	ListForUser(ctx context.Context, userID string) ([]UserRole, error)
	Add(ctx context.Context, userID, role string, grantedBy *string) (bool, error)
	Remove(ctx context.Context, userID, role string) (bool, error)
	DeleteAll(ctx context.Context, userID string) error
	CountWithRole(ctx context.Context, role string) (int, error)
	// LockHolders row-locks every assignment of role until the transaction
	// ends; inside a transaction only.
	LockHolders(ctx context.Context, role string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) ListForUser(ctx context.Context, userID string) ([]UserRole, error) {
	query := `
		SELECT user_id, role, granted_by, created_at
		FROM user_roles
		WHERE user_id = $1
		ORDER BY role`

	var roles []UserRole
	if err := r.db.SelectContext(ctx, &roles, query, userID); err != nil {
		return nil, fmt.Errorf("list user roles: %w", core.MapPgError(err))
	}

	return roles, nil
}

// Add reports whether a row was inserted; granting a held role is a no-op.
func (r *repository) Add(
	ctx context.Context,
	userID, role string,
	grantedBy *string,
) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, role) DO NOTHING`,
		userID, role, grantedBy,
	)
	if err != nil {
		return false, fmt.Errorf("add role: %w", core.MapPgError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add role: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) Remove(ctx context.Context, userID, role string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role)
	if err != nil {
		return false, fmt.Errorf("remove role: %w", core.MapPgError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove role: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) DeleteAll(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete roles: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) CountWithRole(ctx context.Context, role string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM user_roles ur
		JOIN users u ON u.id = ur.user_id
		WHERE ur.role = $1 AND u.deleted_at IS NULL`

	var n int
	if err := r.db.GetContext(ctx, &n, query, role); err != nil {
		return 0, fmt.Errorf("count role holders: %w", err)
	}

	return n, nil
}

func (r *repository) LockHolders(ctx context.Context, role string) error {
	query := `
		SELECT user_id
		FROM user_roles
		WHERE role = $1
		ORDER BY user_id
		FOR UPDATE`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, role); err != nil {
		return fmt.Errorf("lock role holders: %w", err)
	}
	return nil
}
