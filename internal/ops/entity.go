// AngelaMos | 2026
// entity.go

package ops

import (
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

// KRA is a key result area that ops staff are assigned to.
type KRA struct {
	ID          string    `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active"   json:"is_active"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}

type Assignment struct {
	ID         string    `db:"id"          json:"id"`
	UserID     string    `db:"user_id"     json:"user_id"`
	KRAID      string    `db:"kra_id"      json:"kra_id"`
	KRAName    string    `db:"kra_name"    json:"kra_name"`
	AssignedBy *string   `db:"assigned_by" json:"assigned_by"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

var taskTransitions = core.Transitions[TaskStatus]{
	TaskTodo:       {TaskInProgress},
	TaskInProgress: {TaskTodo, TaskBlocked},
	TaskBlocked:    {TaskInProgress},
	TaskDone:       {TaskInProgress},
	TaskCancelled:  {TaskTodo, TaskInProgress, TaskBlocked},
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Task struct {
	ID          string     `db:"id"           json:"id"`
	KRAID       *string    `db:"kra_id"       json:"kra_id"`
	Title       string     `db:"title"        json:"title"`
	Description string     `db:"description"  json:"description"`
	AssignedTo  *string    `db:"assigned_to"  json:"assigned_to"`
	CreatedBy   *string    `db:"created_by"   json:"created_by"`
	Status      TaskStatus `db:"status"       json:"status"`
	Priority    Priority   `db:"priority"     json:"priority"`
	DueDate     *time.Time `db:"due_date"     json:"due_date"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
}

func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskDone || t.Status == TaskCancelled {
		return false
	}
	return now.After(*t.DueDate)
}
