// AngelaMos | 2026
// service.go

package audit

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(
	ctx context.Context,
	params ListParams,
) ([]Log, int, error) {
	params.Normalize()
	return s.repo.List(ctx, params)
}

// LogEvent records a client-reported event under the caller's identity.
func (s *Service) LogEvent(
	ctx context.Context,
	actorID string,
	req LogEventRequest,
) (*Log, error) {
	action := strings.TrimSpace(req.Action)
	entityType := strings.TrimSpace(req.EntityType)
	if action == "" || entityType == "" {
		return nil, core.ValidationError("action and entity_type are required")
	}

	log := &Log{
		ID:         uuid.New().String(),
		Action:     action,
		EntityType: entityType,
		EntityID:   strings.TrimSpace(req.EntityID),
		Details:    core.JSONMap(req.Details),
	}
	if actorID != "" {
		log.ActorID = &actorID
	}

	if err := s.repo.Insert(ctx, log); err != nil {
		return nil, err
	}

	return log, nil
}
