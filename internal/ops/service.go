// AngelaMos | 2026
// service.go

package ops

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/journal"
	"github.com/carterperez-dev/gigmarket/internal/notification"
	"github.com/carterperez-dev/gigmarket/internal/rbac"
)

var (
	// StaffRoles may use the ops console.
	StaffRoles = []string{rbac.RoleAdmin, rbac.RoleOpsManager, rbac.RoleOpsAgent}
	// ManagerRoles may edit KRAs, assignments and any task.
	ManagerRoles = []string{rbac.RoleAdmin, rbac.RoleOpsManager}
)

// RoleLister returns a user's current roles. Implemented by rbac.Service.
type RoleLister interface {
	Roles(ctx context.Context, userID string) ([]string, error)
}

// Actor is the caller of a task operation.
type Actor struct {
	UserID  string
	Manager bool
}

type ServiceConfig struct {
	DB         core.Transactor
	Repository func(core.DBTX) Repository
	Journal    journal.Factory
	Roles      RoleLister
	Now        func() time.Time
}

type Service struct {
	db      core.Transactor
	repo    func(core.DBTX) Repository
	journal journal.Factory
	roles   RoleLister
	now     func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:      cfg.DB,
		repo:    cfg.Repository,
		journal: cfg.Journal,
		roles:   cfg.Roles,
		now:     cfg.Now,
	}
	if s.repo == nil {
		s.repo = NewRepository
	}
	if s.journal == nil {
		s.journal = journal.New
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) ListKRAs(ctx context.Context) ([]KRA, error) {
	out, err := s.repo(s.db.Conn()).ListKRAs(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []KRA{}
	}
	return out, nil
}

func (s *Service) GetKRA(ctx context.Context, id string) (*KRA, error) {
	k, err := s.repo(s.db.Conn()).GetKRA(ctx, id)
	if err != nil {
		return nil, notFound(err, "kra")
	}
	return k, nil
}

func (s *Service) CreateKRA(ctx context.Context, actorID string, req KRARequest) (*KRA, error) {
	k := &KRA{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		IsActive:    true,
	}
	if req.IsActive != nil {
		k.IsActive = *req.IsActive
	}

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).CreateKRA(ctx, k); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "ops.kra_created", "kra", k.ID, map[string]any{"name": k.Name}, nil)
	})
	if err != nil {
		return nil, kraErr(err)
	}
	return k, nil
}

func (s *Service) UpdateKRA(ctx context.Context, actorID, id string, req KRARequest) (*KRA, error) {
	var k *KRA

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		var err error
		k, err = repo.GetKRA(ctx, id)
		if err != nil {
			return err
		}
		k.Name = strings.TrimSpace(req.Name)
		k.Description = strings.TrimSpace(req.Description)
		if req.IsActive != nil {
			k.IsActive = *req.IsActive
		}
		if err := repo.UpdateKRA(ctx, k); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "ops.kra_updated", "kra", k.ID, map[string]any{"name": k.Name}, nil)
	})
	if err != nil {
		return nil, kraErr(err)
	}
	return k, nil
}

func (s *Service) DeleteKRA(ctx context.Context, actorID, id string) error {
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).DeleteKRA(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "ops.kra_deleted", "kra", id, nil, nil)
	})
	return notFound(err, "kra")
}

// Assign puts an ops user on a KRA. The pair is unique.
func (s *Service) Assign(ctx context.Context, actorID, kraID, userID string) (*Assignment, error) {
	if err := s.requireOpsUser(ctx, userID); err != nil {
		return nil, err
	}

	a := &Assignment{
		ID:     uuid.New().String(),
		UserID: userID,
		KRAID:  kraID,
	}
	if actorID != "" {
		a.AssignedBy = &actorID
	}

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		k, err := repo.GetKRA(ctx, kraID)
		if err != nil {
			return err
		}
		if !k.IsActive {
			return core.ConflictError("cannot assign users to an inactive kra")
		}
		a.KRAName = k.Name

		if err := repo.Assign(ctx, a); err != nil {
			return err
		}

		return s.record(ctx, tx, actorID, "ops.assigned", "kra", kraID,
			map[string]any{"user_id": userID},
			[]notification.Notice{{
				UserID:   userID,
				Type:     "ops",
				Template: "ops.assigned",
				Vars:     map[string]string{"kra": k.Name},
				Title:    "New KRA assignment",
				Message:  "You were assigned to {{kra}}.",
			}},
		)
	})
	if err != nil {
		if !core.IsAppError(err) && errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.ConflictError("user is already assigned to this kra")
		}
		return nil, notFound(err, "kra")
	}
	return a, nil
}

func (s *Service) Unassign(ctx context.Context, actorID, kraID, userID string) error {
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).Unassign(ctx, kraID, userID); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "ops.unassigned", "kra", kraID, map[string]any{"user_id": userID}, nil)
	})
	return notFound(err, "assignment")
}

func (s *Service) KRAAssignments(ctx context.Context, kraID string) ([]Assignment, error) {
	out, err := s.repo(s.db.Conn()).ListAssignmentsForKRA(ctx, kraID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Assignment{}
	}
	return out, nil
}

func (s *Service) MyAssignments(ctx context.Context, userID string) ([]Assignment, error) {
	out, err := s.repo(s.db.Conn()).ListAssignmentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Assignment{}
	}
	return out, nil
}

func (s *Service) CreateTask(ctx context.Context, actorID string, req CreateTaskRequest) (*TaskView, error) {
	if req.AssignedTo != nil {
		if err := s.requireOpsUser(ctx, *req.AssignedTo); err != nil {
			return nil, err
		}
	}

	t := &Task{
		ID:          uuid.New().String(),
		KRAID:       req.KRAID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		AssignedTo:  req.AssignedTo,
		Status:      TaskTodo,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if actorID != "" {
		t.CreatedBy = &actorID
	}

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).CreateTask(ctx, t); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "ops.task_created", "ops_task", t.ID,
			map[string]any{"title": t.Title, "priority": t.Priority},
			assigneeNotice(t, actorID),
		)
	})
	if err != nil {
		return nil, notFound(err, "kra")
	}
	return s.view(t), nil
}

func (s *Service) GetTask(ctx context.Context, id string) (*TaskView, error) {
	t, err := s.repo(s.db.Conn()).GetTask(ctx, id)
	if err != nil {
		return nil, notFound(err, "task")
	}
	return s.view(t), nil
}

func (s *Service) ListTasks(ctx context.Context, params TaskListParams) ([]TaskView, int, error) {
	tasks, total, err := s.repo(s.db.Conn()).ListTasks(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return toTaskViews(tasks, s.now()), total, nil
}

func (s *Service) MyTasks(ctx context.Context, userID string, params TaskListParams) ([]TaskView, int, error) {
	params.AssignedTo = userID
	return s.ListTasks(ctx, params)
}

func (s *Service) UpdateTask(ctx context.Context, actorID, id string, req UpdateTaskRequest) (*TaskView, error) {
	if req.AssignedTo != nil {
		if err := s.requireOpsUser(ctx, *req.AssignedTo); err != nil {
			return nil, err
		}
	}

	var t *Task
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		var err error
		t, err = repo.LockTask(ctx, id)
		if err != nil {
			return err
		}

		previousAssignee := t.AssignedTo
		changed := applyTaskUpdate(t, req)
		if len(changed) == 0 {
			return nil
		}
		if err := repo.UpdateTask(ctx, t); err != nil {
			return err
		}

		var notices []notification.Notice
		if t.AssignedTo != nil && (previousAssignee == nil || *previousAssignee != *t.AssignedTo) {
			notices = assigneeNotice(t, actorID)
		}

		return s.record(ctx, tx, actorID, "ops.task_updated", "ops_task", t.ID,
			map[string]any{"fields": changed}, notices)
	})
	if err != nil {
		return nil, notFound(err, "task")
	}
	return s.view(t), nil
}

// SetTaskStatus moves a task. Agents may only move tasks assigned to them.
// Entering done stamps completed_at; leaving it is not possible.
func (s *Service) SetTaskStatus(ctx context.Context, actor Actor, id string, to TaskStatus) (*TaskView, error) {
	var t *Task

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		current, err := repo.LockTask(ctx, id)
		if err != nil {
			return err
		}
		if !actor.Manager && (current.AssignedTo == nil || *current.AssignedTo != actor.UserID) {
			return core.ForbiddenError("only the assignee or an ops manager can move this task")
		}
		if err := taskTransitions.Check(current.Status, to); err != nil {
			return err
		}

		var completedAt *time.Time
		if to == TaskDone {
			now := s.now().UTC()
			completedAt = &now
		}

		t, err = repo.SetTaskStatus(ctx, id, to, completedAt)
		if err != nil {
			return err
		}

		return s.record(ctx, tx, actor.UserID, "ops.task_status_changed", "ops_task", id,
			map[string]any{"from": current.Status, "to": to}, nil)
	})
	if err != nil {
		return nil, notFound(err, "task")
	}
	return s.view(t), nil
}

func (s *Service) DeleteTask(ctx context.Context, actorID, id string) error {
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).DeleteTask(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "ops.task_deleted", "ops_task", id, nil, nil)
	})
	return notFound(err, "task")
}

func (s *Service) requireOpsUser(ctx context.Context, userID string) error {
	if s.roles == nil {
		return nil
	}
	roles, err := s.roles.Roles(ctx, userID)
	if err != nil {
		return err
	}
	for _, role := range StaffRoles {
		if slices.Contains(roles, role) {
			return nil
		}
	}
	return core.ValidationError("user does not hold an ops role")
}

func (s *Service) view(t *Task) *TaskView {
	return &TaskView{Task: *t, IsOverdue: t.IsOverdue(s.now())}
}

func (s *Service) record(
	ctx context.Context,
	tx core.DBTX,
	actorID, action, entity, entityID string,
	details map[string]any,
	notify []notification.Notice,
) error {
	return s.journal(tx).Record(ctx, journal.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entity,
		EntityID:   entityID,
		Details:    details,
		Notify:     notify,
	})
}

func assigneeNotice(t *Task, actorID string) []notification.Notice {
	if t.AssignedTo == nil || *t.AssignedTo == actorID {
		return nil
	}
	return []notification.Notice{{
		UserID:   *t.AssignedTo,
		Type:     "ops",
		Template: "ops.task_assigned",
		Vars: map[string]string{
			"title":    t.Title,
			"priority": string(t.Priority),
		},
		Title:   "New task assigned",
		Message: "{{title}} ({{priority}} priority) is now yours.",
		Link:    "/ops/tasks/" + t.ID,
	}}
}

func applyTaskUpdate(t *Task, req UpdateTaskRequest) []string {
	var changed []string

	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
		changed = append(changed, "title")
	}
	if req.Description != nil {
		t.Description = strings.TrimSpace(*req.Description)
		changed = append(changed, "description")
	}
	if req.KRAID != nil {
		id := *req.KRAID
		t.KRAID = &id
		changed = append(changed, "kra_id")
	}
	if req.AssignedTo != nil {
		id := *req.AssignedTo
		t.AssignedTo = &id
		changed = append(changed, "assigned_to")
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
		changed = append(changed, "priority")
	}
	if req.DueDate != nil {
		due := *req.DueDate
		t.DueDate = &due
		changed = append(changed, "due_date")
	}

	return changed
}

func notFound(err error, resource string) error {
	if err != nil && !core.IsAppError(err) && errors.Is(err, core.ErrNotFound) {
		return core.NotFoundError(resource)
	}
	return err
}

func kraErr(err error) error {
	if !core.IsAppError(err) && errors.Is(err, core.ErrDuplicateKey) {
		return core.DuplicateError("name")
	}
	return notFound(err, "kra")
}
