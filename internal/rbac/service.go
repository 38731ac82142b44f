// AngelaMos | 2026
// service.go

package rbac

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/journal"
	"github.com/carterperez-dev/gigmarket/internal/middleware"
)

const entityType = "user"

type ServiceConfig struct {
	DB         core.Transactor
	Repository func(core.DBTX) Repository
	Journal    journal.Factory
	CacheSize  int
	CacheTTL   time.Duration
}

type Service struct {
	db      core.Transactor
	repo    func(core.DBTX) Repository
	journal journal.Factory
	cache   *core.Cache[[]string]
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:      cfg.DB,
		repo:    cfg.Repository,
		journal: cfg.Journal,
		cache:   core.NewCache[[]string]("roles", cfg.CacheSize, cfg.CacheTTL),
	}
	if s.repo == nil {
		s.repo = NewRepository
	}
	if s.journal == nil {
		s.journal = journal.New
	}
	return s
}

// Roles returns the role names held by the user, served from the cache
// when fresh.
func (s *Service) Roles(ctx context.Context, userID string) ([]string, error) {
	if roles, ok := s.cache.Get(userID); ok {
		return slices.Clone(roles), nil
	}

	rows, err := s.repo(s.db.Conn()).ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles := make([]string, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.Role)
	}

	s.cache.Set(userID, roles)
	return slices.Clone(roles), nil
}

func (s *Service) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if !IsValidRole(role) {
		return false, core.ValidationError(fmt.Sprintf("unknown role %q", role))
	}

	roles, err := s.Roles(ctx, userID)
	if err != nil {
		return false, err
	}

	return slices.Contains(roles, role), nil
}

func (s *Service) ListUserRoles(ctx context.Context, userID string) ([]UserRole, error) {
	rows, err := s.repo(s.db.Conn()).ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []UserRole{}
	}
	return rows, nil
}

func (s *Service) AddRole(ctx context.Context, actorID, userID, role string) (*RolesResponse, error) {
	if !IsValidRole(role) {
		return nil, core.ValidationError(fmt.Sprintf("unknown role %q", role))
	}

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		added, err := s.repo(tx).Add(ctx, userID, role, optional(actorID))
		if err != nil {
			return err
		}
		if !added {
			return nil
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "rbac.role_granted",
			EntityType: entityType,
			EntityID:   userID,
			Details:    map[string]any{"role": role},
		})
	})
	if err != nil {
		return nil, mapUserErr(err)
	}

	return s.afterChange(ctx, userID)
}

func (s *Service) RemoveRole(ctx context.Context, actorID, userID, role string) (*RolesResponse, error) {
	if !IsValidRole(role) {
		return nil, core.ValidationError(fmt.Sprintf("unknown role %q", role))
	}
	if role == RoleAdmin && actorID == userID {
		return nil, core.ForbiddenError("cannot remove your own admin role")
	}

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		if role == RoleAdmin {
			if err := repo.LockHolders(ctx, RoleAdmin); err != nil {
				return err
			}
		}

		removed, err := repo.Remove(ctx, userID, role)
		if err != nil {
			return err
		}
		if !removed {
			return core.NotFoundError("role assignment")
		}

		if role == RoleAdmin {
			if err := guardLastAdmin(ctx, repo); err != nil {
				return err
			}
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "rbac.role_revoked",
			EntityType: entityType,
			EntityID:   userID,
			Details:    map[string]any{"role": role},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.afterChange(ctx, userID)
}

// ReplaceRoles swaps the whole role set in one transaction: readers see
// either the old set or the new one.
func (s *Service) ReplaceRoles(
	ctx context.Context,
	actorID, userID string,
	roles []string,
) (*RolesResponse, error) {
	next := make([]string, 0, len(roles))
	for _, role := range roles {
		if !IsValidRole(role) {
			return nil, core.ValidationError(fmt.Sprintf("unknown role %q", role))
		}
		if !slices.Contains(next, role) {
			next = append(next, role)
		}
	}
	slices.Sort(next)

	dropsAdmin := !slices.Contains(next, RoleAdmin)
	if dropsAdmin && actorID == userID {
		return nil, core.ForbiddenError("cannot remove your own admin role")
	}

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		if dropsAdmin {
			if err := repo.LockHolders(ctx, RoleAdmin); err != nil {
				return err
			}
		}

		current, err := repo.ListForUser(ctx, userID)
		if err != nil {
			return err
		}

		previous := make([]string, 0, len(current))
		for _, row := range current {
			previous = append(previous, row.Role)
		}

		if err := repo.DeleteAll(ctx, userID); err != nil {
			return err
		}
		for _, role := range next {
			if _, err := repo.Add(ctx, userID, role, optional(actorID)); err != nil {
				return err
			}
		}

		if dropsAdmin && slices.Contains(previous, RoleAdmin) {
			if err := guardLastAdmin(ctx, repo); err != nil {
				return err
			}
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "rbac.roles_replaced",
			EntityType: entityType,
			EntityID:   userID,
			Details: map[string]any{
				"previous": previous,
				"roles":    next,
			},
		})
	})
	if err != nil {
		return nil, mapUserErr(err)
	}

	return s.afterChange(ctx, userID)
}

// Invalidate drops the cached role set after an out-of-band change such as
// account deletion.
func (s *Service) Invalidate(userID string) {
	s.cache.Delete(userID)
}

func (s *Service) afterChange(ctx context.Context, userID string) (*RolesResponse, error) {
	s.cache.Delete(userID)

	roles, err := s.Roles(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &RolesResponse{UserID: userID, Roles: roles}, nil
}

// guardLastAdmin runs after the change, inside the transaction, and rolls
// it back when no admin would remain. Callers take LockHolders first so two
// concurrent demotions cannot both see one admin left.
func guardLastAdmin(ctx context.Context, repo Repository) error {
	n, err := repo.CountWithRole(ctx, RoleAdmin)
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ConflictError("cannot remove the last admin")
	}
	return nil
}

func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func mapUserErr(err error) error {
	if core.IsAppError(err) {
		return err
	}
	if core.IsNotFound(err) {
		return core.NotFoundError("user")
	}
	return err
}

var _ middleware.RoleChecker = (*Service)(nil)
