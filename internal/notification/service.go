// AngelaMos | 2026
// service.go

package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

// Notice describes a notification before it is rendered. When Template
// names an active template its title and body win over the fallback text.
type Notice struct {
	UserID   string
	Type     string
	Template string
	Vars     map[string]string
	Title    string
	Message  string
	Link     string
}

// Compose renders a notice into a row, using repo for the template lookup
// so it participates in the caller's transaction.
func Compose(ctx context.Context, repo Repository, n Notice) (*Notification, error) {
	title, message := n.Title, n.Message

	if n.Template != "" {
		tpl, err := repo.GetActiveTemplateByKey(ctx, n.Template)
		switch {
		case err == nil:
			title, message = tpl.Title, tpl.Body
		case errors.Is(err, core.ErrNotFound):
		default:
			return nil, err
		}
	}

	return &Notification{
		ID:      uuid.New().String(),
		UserID:  n.UserID,
		Type:    n.Type,
		Title:   Render(title, n.Vars),
		Message: Render(message, n.Vars),
		Link:    n.Link,
	}, nil
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListMine(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Notification, int, error) {
	params.Normalize()
	return s.repo.ListForUser(ctx, userID, params)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) ListTemplates(ctx context.Context) ([]Template, error) {
	return s.repo.ListTemplates(ctx)
}

func (s *Service) CreateTemplate(
	ctx context.Context,
	req TemplateRequest,
) (*Template, error) {
	t := &Template{
		ID:       uuid.New().String(),
		IsActive: true,
	}
	if err := applyTemplate(t, req); err != nil {
		return nil, err
	}

	if err := s.repo.CreateTemplate(ctx, t); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.DuplicateError("template key")
		}
		return nil, err
	}

	return t, nil
}

func (s *Service) UpdateTemplate(
	ctx context.Context,
	id string,
	req TemplateRequest,
) (*Template, error) {
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := applyTemplate(t, req); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTemplate(ctx, t); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.DuplicateError("template key")
		}
		return nil, err
	}

	return t, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	return s.repo.DeleteTemplate(ctx, id)
}

func applyTemplate(t *Template, req TemplateRequest) error {
	key := strings.TrimSpace(req.Key)
	title := strings.TrimSpace(req.Title)
	body := strings.TrimSpace(req.Body)

	if key == "" || title == "" || body == "" {
		return core.ValidationError("key, title and body are required")
	}
	if strings.ContainsAny(key, " \t\n") {
		return core.ValidationError(fmt.Sprintf("template key %q must not contain whitespace", key))
	}

	t.Key, t.Title, t.Body = key, title, body
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	return nil
}
