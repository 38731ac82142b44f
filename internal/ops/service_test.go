// AngelaMos | 2026
// service_test.go

package ops

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/core/coretest"
	"github.com/carterperez-dev/gigmarket/internal/journal/journaltest"
	"github.com/carterperez-dev/gigmarket/internal/rbac"
)

const (
	manager = "manager"
	agent   = "agent"
	other   = "other-agent"
	buyer   = "buyer"
)

type memRepo struct {
	Repository
	mu          sync.Mutex
	kras        map[string]*KRA
	assignments map[string]*Assignment
	tasks       map[string]*Task
}

func newMemRepo() *memRepo {
	return &memRepo{
		kras:        map[string]*KRA{},
		assignments: map[string]*Assignment{},
		tasks:       map[string]*Task{},
	}
}

func (m *memRepo) GetKRA(_ context.Context, id string) (*KRA, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.kras[id]
	if !ok {
		return nil, fmt.Errorf("get kra: %w", core.ErrNotFound)
	}
	cp := *k
	return &cp, nil
}

func (m *memRepo) CreateKRA(_ context.Context, k *KRA) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.kras {
		if existing.Name == k.Name {
			return fmt.Errorf("create kra: %w", core.ErrDuplicateKey)
		}
	}
	cp := *k
	m.kras[k.ID] = &cp
	return nil
}

func (m *memRepo) Assign(_ context.Context, a *Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := a.KRAID + "/" + a.UserID
	if _, ok := m.assignments[key]; ok {
		return fmt.Errorf("assign: %w", core.ErrDuplicateKey)
	}
	cp := *a
	m.assignments[key] = &cp
	return nil
}

func (m *memRepo) CreateTask(_ context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memRepo) GetTask(_ context.Context, id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("get task: %w", core.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *memRepo) LockTask(ctx context.Context, id string) (*Task, error) {
	return m.GetTask(ctx, id)
}

func (m *memRepo) UpdateTask(_ context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memRepo) SetTaskStatus(
	ctx context.Context,
	id string,
	status TaskStatus,
	completedAt *time.Time,
) (*Task, error) {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if ok {
		t.Status = status
		t.CompletedAt = completedAt
	}
	m.mu.Unlock()
	return m.GetTask(ctx, id)
}

type roleTable map[string][]string

func (r roleTable) Roles(_ context.Context, userID string) ([]string, error) {
	return r[userID], nil
}

type fixture struct {
	svc     *Service
	repo    *memRepo
	tx      *coretest.Tx
	journal *journaltest.Recorder
	now     time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMemRepo(),
		tx:      &coretest.Tx{},
		journal: &journaltest.Recorder{},
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(ServiceConfig{
		DB:         f.tx,
		Repository: func(core.DBTX) Repository { return f.repo },
		Journal:    f.journal.Factory(),
		Roles: roleTable{
			manager: {rbac.RoleUser, rbac.RoleOpsManager},
			agent:   {rbac.RoleUser, rbac.RoleOpsAgent},
			other:   {rbac.RoleUser, rbac.RoleOpsAgent},
			buyer:   {rbac.RoleUser},
		},
		Now: func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) kra(t *testing.T, name string, active bool) *KRA {
	t.Helper()
	k, err := f.svc.CreateKRA(context.Background(), manager, KRARequest{Name: name, IsActive: &active})
	require.NoError(t, err)
	return k
}

func (f *fixture) task(t *testing.T, assignee string) *TaskView {
	t.Helper()
	req := CreateTaskRequest{Title: "  Review payouts  "}
	if assignee != "" {
		req.AssignedTo = &assignee
	}
	v, err := f.svc.CreateTask(context.Background(), manager, req)
	require.NoError(t, err)
	return v
}

func TestCreateKRA_DuplicateName(t *testing.T) {
	f := newFixture()
	f.kra(t, "Seller onboarding", true)

	_, err := f.svc.CreateKRA(context.Background(), manager, KRARequest{Name: "Seller onboarding"})

	assert.ErrorIs(t, err, core.ErrDuplicateKey)
	assert.Equal(t, []string{"ops.kra_created"}, f.journal.Actions())
}

func TestAssign(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	k := f.kra(t, "Payout review", true)

	a, err := f.svc.Assign(ctx, manager, k.ID, agent)
	require.NoError(t, err)
	assert.Equal(t, "Payout review", a.KRAName)
	require.NotNil(t, a.AssignedBy)
	assert.Equal(t, manager, *a.AssignedBy)

	last := f.journal.Last()
	assert.Equal(t, "ops.assigned", last.Action)
	require.Len(t, last.Notify, 1)
	assert.Equal(t, agent, last.Notify[0].UserID)

	_, err = f.svc.Assign(ctx, manager, k.ID, agent)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestAssign_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	active := f.kra(t, "Trust queue", true)
	inactive := f.kra(t, "Old queue", false)

	_, err := f.svc.Assign(ctx, manager, active.ID, buyer)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = f.svc.Assign(ctx, manager, inactive.ID, agent)
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = f.svc.Assign(ctx, manager, "missing", agent)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateTask_Defaults(t *testing.T) {
	f := newFixture()

	v := f.task(t, agent)

	assert.Equal(t, "Review payouts", v.Title)
	assert.Equal(t, TaskTodo, v.Status)
	assert.Equal(t, PriorityMedium, v.Priority)
	assert.False(t, v.IsOverdue)

	last := f.journal.Last()
	assert.Equal(t, "ops.task_created", last.Action)
	require.Len(t, last.Notify, 1)
	assert.Equal(t, "ops.task_assigned", last.Notify[0].Template)
}

func TestCreateTask_RejectsNonOpsAssignee(t *testing.T) {
	f := newFixture()
	assignee := buyer

	_, err := f.svc.CreateTask(context.Background(), manager, CreateTaskRequest{
		Title:      "Call buyer",
		AssignedTo: &assignee,
	})

	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Zero(t, f.tx.Commits)
}

func TestSetTaskStatus_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		path  []TaskStatus
		final TaskStatus
		ok    bool
	}{
		{"start", nil, TaskInProgress, true},
		{"todo straight to done", nil, TaskDone, false},
		{"block while working", []TaskStatus{TaskInProgress}, TaskBlocked, true},
		{"blocked cannot finish", []TaskStatus{TaskInProgress, TaskBlocked}, TaskDone, false},
		{"cancel from blocked", []TaskStatus{TaskInProgress, TaskBlocked}, TaskCancelled, true},
		{"done is final", []TaskStatus{TaskInProgress, TaskDone}, TaskInProgress, false},
		{"unknown status", nil, TaskStatus("archived"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			v := f.task(t, agent)
			actor := Actor{UserID: agent}

			for _, step := range tc.path {
				_, err := f.svc.SetTaskStatus(ctx, actor, v.ID, step)
				require.NoError(t, err)
			}

			_, err := f.svc.SetTaskStatus(ctx, actor, v.ID, tc.final)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSetTaskStatus_DoneStampsCompletion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.task(t, agent)
	actor := Actor{UserID: agent}

	_, err := f.svc.SetTaskStatus(ctx, actor, v.ID, TaskInProgress)
	require.NoError(t, err)

	done, err := f.svc.SetTaskStatus(ctx, actor, v.ID, TaskDone)
	require.NoError(t, err)

	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.Equal(f.now))
	assert.Equal(t, map[string]any{"from": TaskInProgress, "to": TaskDone}, f.journal.Last().Details)
}

func TestSetTaskStatus_Permissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.task(t, agent)
	unassigned := f.task(t, "")

	_, err := f.svc.SetTaskStatus(ctx, Actor{UserID: other}, v.ID, TaskInProgress)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = f.svc.SetTaskStatus(ctx, Actor{UserID: agent}, unassigned.ID, TaskInProgress)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = f.svc.SetTaskStatus(ctx, Actor{UserID: manager, Manager: true}, unassigned.ID, TaskInProgress)
	assert.NoError(t, err)

	_, err = f.svc.SetTaskStatus(ctx, Actor{UserID: agent}, "missing", TaskInProgress)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateTask_NotifiesNewAssigneeOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.task(t, agent)

	urgent := PriorityUrgent
	_, err := f.svc.UpdateTask(ctx, manager, v.ID, UpdateTaskRequest{Priority: &urgent})
	require.NoError(t, err)
	assert.Empty(t, f.journal.Last().Notify)

	reassigned := other
	updated, err := f.svc.UpdateTask(ctx, manager, v.ID, UpdateTaskRequest{AssignedTo: &reassigned})
	require.NoError(t, err)
	assert.Equal(t, other, *updated.AssignedTo)
	assert.Equal(t, PriorityUrgent, updated.Priority)

	last := f.journal.Last()
	assert.Equal(t, map[string]any{"fields": []string{"assigned_to"}}, last.Details)
	require.Len(t, last.Notify, 1)
	assert.Equal(t, other, last.Notify[0].UserID)
}

func TestUpdateTask_NoChangesSkipsJournal(t *testing.T) {
	f := newFixture()
	v := f.task(t, agent)
	before := len(f.journal.Entries)

	_, err := f.svc.UpdateTask(context.Background(), manager, v.ID, UpdateTaskRequest{})

	require.NoError(t, err)
	assert.Len(t, f.journal.Entries, before)
}

func TestTaskView_Overdue(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	due := f.now.Add(-time.Hour)

	v, err := f.svc.CreateTask(ctx, manager, CreateTaskRequest{Title: "Late", DueDate: &due})
	require.NoError(t, err)
	assert.True(t, v.IsOverdue)

	_, err = f.svc.SetTaskStatus(ctx, Actor{UserID: manager, Manager: true}, v.ID, TaskCancelled)
	require.NoError(t, err)

	got, err := f.svc.GetTask(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOverdue)
}
