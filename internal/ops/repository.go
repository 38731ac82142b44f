// AngelaMos | 2026
// repository.go

package ops

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
	ListKRAs(ctx context.Context) ([]KRA, error)
	GetKRA(ctx context.Context, id string) (*KRA, error)
	CreateKRA(ctx context.Context, k *KRA) error
	UpdateKRA(ctx context.Context, k *KRA) error
	DeleteKRA(ctx context.Context, id string) error

	Assign(ctx context.Context, a *Assignment) error
	Unassign(ctx context.Context, kraID, userID string) error
	ListAssignmentsForKRA(ctx context.Context, kraID string) ([]Assignment, error)
	ListAssignmentsForUser(ctx context.Context, userID string) ([]Assignment, error)

	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	LockTask(ctx context.Context, id string) (*Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	SetTaskStatus(ctx context.Context, id string, status TaskStatus, completedAt *time.Time) (*Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, params TaskListParams) ([]Task, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const kraColumns = `id, name, description, is_active, created_at, updated_at`

func (r *repository) ListKRAs(ctx context.Context) ([]KRA, error) {
	var out []KRA
	if err := r.db.SelectContext(ctx, &out, `SELECT `+kraColumns+` FROM kras ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list kras: %w", err)
	}
	return out, nil
}

func (r *repository) GetKRA(ctx context.Context, id string) (*KRA, error) {
	var k KRA
	err := r.db.GetContext(ctx, &k, `SELECT `+kraColumns+` FROM kras WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get kra: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get kra: %w", core.MapPgError(err))
	}
	return &k, nil
}

func (r *repository) CreateKRA(ctx context.Context, k *KRA) error {
	query := `
		INSERT INTO kras (id, name, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query, k.ID, k.Name, k.Description, k.IsActive).
		Scan(&k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create kra: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) UpdateKRA(ctx context.Context, k *KRA) error {
	query := `
		UPDATE kras
		SET name = $2, description = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &k.UpdatedAt, query, k.ID, k.Name, k.Description, k.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update kra: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update kra: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) DeleteKRA(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete kra", `DELETE FROM kras WHERE id = $1`, id)
}

func (r *repository) Assign(ctx context.Context, a *Assignment) error {
	query := `
		INSERT INTO ops_assignments (id, user_id, kra_id, assigned_by)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &a.CreatedAt, query, a.ID, a.UserID, a.KRAID, a.AssignedBy)
	if err != nil {
		return fmt.Errorf("assign kra: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) Unassign(ctx context.Context, kraID, userID string) error {
	return r.execOne(ctx, "unassign kra",
		`DELETE FROM ops_assignments WHERE kra_id = $1 AND user_id = $2`, kraID, userID)
}

const assignmentSelect = `
	SELECT a.id, a.user_id, a.kra_id, k.name AS kra_name, a.assigned_by, a.created_at
	FROM ops_assignments a
	JOIN kras k ON k.id = a.kra_id`

func (r *repository) ListAssignmentsForKRA(ctx context.Context, kraID string) ([]Assignment, error) {
	var out []Assignment
	err := r.db.SelectContext(ctx, &out, assignmentSelect+` WHERE a.kra_id = $1 ORDER BY a.created_at`, kraID)
	if err != nil {
		return nil, fmt.Errorf("list kra assignments: %w", core.MapPgError(err))
	}
	return out, nil
}

func (r *repository) ListAssignmentsForUser(ctx context.Context, userID string) ([]Assignment, error) {
	var out []Assignment
	err := r.db.SelectContext(ctx, &out, assignmentSelect+` WHERE a.user_id = $1 ORDER BY k.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user assignments: %w", core.MapPgError(err))
	}
	return out, nil
}

const taskColumns = `
	id, kra_id, title, description, assigned_to, created_by, status, priority,
	due_date, completed_at, created_at, updated_at`

func (r *repository) CreateTask(ctx context.Context, t *Task) error {
	query := `
		INSERT INTO ops_tasks (id, kra_id, title, description, assigned_to, created_by, status, priority, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		t.ID, t.KRAID, t.Title, t.Description, t.AssignedTo, t.CreatedBy, t.Status, t.Priority, t.DueDate,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) GetTask(ctx context.Context, id string) (*Task, error) {
	return r.getTask(ctx, "get task", `SELECT `+taskColumns+` FROM ops_tasks WHERE id = $1`, id)
}

func (r *repository) LockTask(ctx context.Context, id string) (*Task, error) {
	return r.getTask(ctx, "lock task", `SELECT `+taskColumns+` FROM ops_tasks WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) getTask(ctx context.Context, op, query string, args ...any) (*Task, error) {
	var t Task
	err := r.db.GetContext(ctx, &t, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, core.MapPgError(err))
	}
	return &t, nil
}

func (r *repository) UpdateTask(ctx context.Context, t *Task) error {
	query := `
		UPDATE ops_tasks
		SET kra_id = $2, title = $3, description = $4, assigned_to = $5, priority = $6,
			due_date = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &t.UpdatedAt, query,
		t.ID, t.KRAID, t.Title, t.Description, t.AssignedTo, t.Priority, t.DueDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update task: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update task: %w", core.MapPgError(err))
	}
	return nil
}

func (r *repository) SetTaskStatus(
	ctx context.Context,
	id string,
	status TaskStatus,
	completedAt *time.Time,
) (*Task, error) {
	query := `
		UPDATE ops_tasks
		SET status = $2, completed_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + taskColumns

	return r.getTask(ctx, "set task status", query, id, status, completedAt)
}

func (r *repository) DeleteTask(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete task", `DELETE FROM ops_tasks WHERE id = $1`, id)
}

func (r *repository) ListTasks(ctx context.Context, params TaskListParams) ([]Task, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	add := func(column string, value any) {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Status != "" {
		add("status", params.Status)
	}
	if params.Priority != "" {
		add("priority", params.Priority)
	}
	if params.KRAID != "" {
		add("kra_id", params.KRAID)
	}
	if params.AssignedTo != "" {
		add("assigned_to", params.AssignedTo)
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM ops_tasks WHERE "+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", core.MapPgError(err))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM ops_tasks
		WHERE %s
		ORDER BY
			CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END,
			due_date ASC NULLS LAST,
			created_at DESC
		LIMIT $%d OFFSET $%d`,
		taskColumns, whereClause, argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	var out []Task
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", core.MapPgError(err))
	}
	return out, total, nil
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
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
