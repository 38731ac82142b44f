// AngelaMos | 2026
// entity.go

package notification

import (
	"time"
)

type Notification struct {
	ID        string    `db:"id"         json:"id"`
	UserID    string    `db:"user_id"    json:"user_id"`
	Type      string    `db:"type"       json:"type"`
	Title     string    `db:"title"      json:"title"`
	Message   string    `db:"message"    json:"message"`
	Link      string    `db:"link"       json:"link"`
	IsRead    bool      `db:"is_read"    json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Template struct {
	ID        string    `db:"id"         json:"id"`
	Key       string    `db:"key"        json:"key"`
	Title     string    `db:"title"      json:"title"`
	Body      string    `db:"body"       json:"body"`
	IsActive  bool      `db:"is_active"  json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type ListParams struct {
	UnreadOnly bool
	Page       int
	PageSize   int
}

func (p *ListParams) Normalize() {
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

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type TemplateRequest struct {
	Key      string `json:"key"       validate:"required,min=1,max=100"`
	Title    string `json:"title"     validate:"required,min=1,max=200"`
	Body     string `json:"body"      validate:"required,min=1,max=2000"`
	IsActive *bool  `json:"is_active"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
