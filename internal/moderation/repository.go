// AngelaMos | 2026
// repository.go

package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Repository interface {
	Create(ctx context.Context, f *Flag) error
	GetByID(ctx context.Context, id string) (*Flag, error)
	Lock(ctx context.Context, id string) (*Flag, error)
	HasOpenFlag(ctx context.Context, reporterID string, contentType ContentType, contentID string) (bool, error)
	Review(ctx context.Context, f *Flag) error
	List(ctx context.Context, params ListParams) ([]Flag, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const flagColumns = `
	id, content_type, content_id, owner_id, reporter_id, reason, status,
	moderator_notes, reviewed_by, reviewed_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, f *Flag) error {
	query := `
		INSERT INTO flagged_content (id, content_type, content_id, owner_id, reporter_id, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		f.ID, f.ContentType, f.ContentID, f.OwnerID, f.ReporterID, f.Reason, f.Status,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create flag: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Flag, error) {
	return r.get(ctx, "get flag", `SELECT `+flagColumns+` FROM flagged_content WHERE id = $1`, id)
}

func (r *repository) Lock(ctx context.Context, id string) (*Flag, error) {
	return r.get(ctx, "lock flag", `SELECT `+flagColumns+` FROM flagged_content WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) get(ctx context.Context, op, query, id string) (*Flag, error) {
	var f Flag
	err := r.db.GetContext(ctx, &f, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, core.MapPgError(err))
	}
	return &f, nil
}

func (r *repository) HasOpenFlag(
	ctx context.Context,
	reporterID string,
	contentType ContentType,
	contentID string,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM flagged_content
			WHERE reporter_id = $1 AND content_type = $2 AND content_id = $3
				AND status IN ('pending', 'reviewing')
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, reporterID, contentType, contentID); err != nil {
		return false, fmt.Errorf("check open flag: %w", core.MapPgError(err))
	}
	return exists, nil
}

func (r *repository) Review(ctx context.Context, f *Flag) error {
	query := `
		UPDATE flagged_content
		SET status = $2, moderator_notes = $3, reviewed_by = $4, reviewed_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &f.UpdatedAt, query,
		f.ID, f.Status, f.ModeratorNotes, f.ReviewedBy, f.ReviewedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("review flag: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("review flag: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Flag, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}
	if params.ContentType != "" {
		conditions = append(conditions, fmt.Sprintf("content_type = $%d", argIdx))
		args = append(args, params.ContentType)
		argIdx++
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM flagged_content WHERE "+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count flags: %w", core.MapPgError(err))
	}

	// Oldest first: the queue is worked in arrival order.
	query := fmt.Sprintf(`
		SELECT %s
		FROM flagged_content
		WHERE %s
		ORDER BY created_at ASC
		LIMIT $%d OFFSET $%d`,
		flagColumns, whereClause, argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	var flags []Flag
	if err := r.db.SelectContext(ctx, &flags, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list flags: %w", core.MapPgError(err))
	}
	return flags, total, nil
}
