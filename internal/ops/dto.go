// AngelaMos | 2026
// dto.go

package ops

import (
	"time"
)

type KRARequest struct {
	Name        string `json:"name"        validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=2000"`
	IsActive    *bool  `json:"is_active"`
}

type AssignRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type CreateTaskRequest struct {
	Title       string     `json:"title"       validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	KRAID       *string    `json:"kra_id"      validate:"omitempty,uuid"`
	AssignedTo  *string    `json:"assigned_to" validate:"omitempty,uuid"`
	Priority    Priority   `json:"priority"    validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"       validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	KRAID       *string    `json:"kra_id,omitempty"      validate:"omitempty,uuid"`
	AssignedTo  *string    `json:"assigned_to,omitempty" validate:"omitempty,uuid"`
	Priority    *Priority  `json:"priority,omitempty"    validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type TaskStatusRequest struct {
	Status TaskStatus `json:"status" validate:"required,oneof=todo in_progress blocked done cancelled"`
}

type TaskView struct {
	Task
	IsOverdue bool `json:"is_overdue"`
}

type TaskListParams struct {
	Page       int
	PageSize   int
	Status     TaskStatus
	Priority   Priority
	KRAID      string
	AssignedTo string
}

func (p *TaskListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *TaskListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func toTaskViews(tasks []Task, now time.Time) []TaskView {
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskView{Task: t, IsOverdue: t.IsOverdue(now)})
	}
	return out
}
