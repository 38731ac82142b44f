// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/gigmarket/internal/auth"
	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/journal"
	"github.com/carterperez-dev/gigmarket/internal/notification"
	"github.com/carterperez-dev/gigmarket/internal/rbac"
	"github.com/carterperez-dev/gigmarket/internal/trust"
)

const entityType = "user"

// RoleCache is told when role rows change outside the rbac service.
type RoleCache interface {
	Invalidate(userID string)
}

type ServiceConfig struct {
	DB         core.Transactor
	Repository func(core.DBTX) Repository
	Roles      func(core.DBTX) rbac.Repository
	Tokens     func(core.DBTX) auth.Repository
	Provision  func(ctx context.Context, db core.DBTX, userID string) error
	Journal    journal.Factory
	RoleCache  RoleCache
}

type Service struct {
	db        core.Transactor
	repo      func(core.DBTX) Repository
	roles     func(core.DBTX) rbac.Repository
	tokens    func(core.DBTX) auth.Repository
	provision func(ctx context.Context, db core.DBTX, userID string) error
	journal   journal.Factory
	roleCache RoleCache
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:        cfg.DB,
		repo:      cfg.Repository,
		roles:     cfg.Roles,
		tokens:    cfg.Tokens,
		provision: cfg.Provision,
		journal:   cfg.Journal,
		roleCache: cfg.RoleCache,
	}
	if s.repo == nil {
		s.repo = NewRepository
	}
	if s.roles == nil {
		s.roles = rbac.NewRepository
	}
	if s.tokens == nil {
		s.tokens = auth.NewRepository
	}
	if s.provision == nil {
		s.provision = trust.Provision
	}
	if s.journal == nil {
		s.journal = journal.New
	}
	return s
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	account, err := s.repo(s.db.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(account), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	account, err := s.repo(s.db.Conn()).GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(account), nil
}

// Create registers a self-service account with the default role.
func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, displayName string,
) (*auth.UserInfo, error) {
	account, err := s.createAccount(ctx, "", email, passwordHash, displayName, []string{rbac.RoleUser})
	if err != nil {
		return nil, err
	}

	return toUserInfo(account), nil
}

// createAccount inserts the user, profile, role rows and trust record in
// one transaction.
func (s *Service) createAccount(
	ctx context.Context,
	actorID, email, passwordHash, displayName string,
	roles []string,
) (*Account, error) {
	account := &Account{
		User: User{
			ID:           uuid.New().String(),
			Email:        strings.ToLower(strings.TrimSpace(email)),
			PasswordHash: passwordHash,
		},
	}
	account.Profile = Profile{
		UserID:      account.ID,
		DisplayName: strings.TrimSpace(displayName),
	}

	var grantedBy *string
	if actorID != "" {
		grantedBy = &actorID
	}

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		if err := repo.Create(ctx, &account.User); err != nil {
			return err
		}
		if err := repo.CreateProfile(ctx, &account.Profile); err != nil {
			return err
		}

		roleRepo := s.roles(tx)
		for _, role := range roles {
			if _, err := roleRepo.Add(ctx, account.ID, role, grantedBy); err != nil {
				return err
			}
		}

		if err := s.provision(ctx, tx, account.ID); err != nil {
			return err
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "user.created",
			EntityType: entityType,
			EntityID:   account.ID,
			Details: map[string]any{
				"email": account.Email,
				"roles": roles,
			},
			Notify: []notification.Notice{{
				UserID:   account.ID,
				Type:     "account",
				Template: "user.welcome",
				Vars:     map[string]string{"display_name": account.DisplayName},
				Title:    "Welcome to gigmarket",
				Message:  "Hi {{display_name}}, your account is ready.",
			}},
		})
	})
	if err != nil {
		return nil, err
	}

	account.Roles = append(account.Roles, roles...)
	return account, nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo(s.db.Conn()).IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo(s.db.Conn()).UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*Account, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo(s.db.Conn()).GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateProfileRequest,
) (*Account, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.updateProfile(ctx, userID, userID, AdminUpdateUserRequest{UpdateProfileRequest: req})
}

// BecomeSeller flips the profile flag; already being a seller is fine.
func (s *Service) BecomeSeller(ctx context.Context, userID string) (*Account, error) {
	if userID == "" {
		return nil, fmt.Errorf("become seller: %w", core.ErrUnauthorized)
	}

	seller := true
	return s.updateProfile(ctx, userID, userID, AdminUpdateUserRequest{IsSeller: &seller})
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	return s.deleteAccount(ctx, userID, userID)
}

func (s *Service) MyRoles(ctx context.Context, userID string) ([]string, error) {
	account, err := s.GetMe(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles := []string(account.Roles)
	if roles == nil {
		roles = []string{}
	}
	return roles, nil
}

func (s *Service) IsSeller(ctx context.Context, userID string) (bool, error) {
	account, err := s.repo(s.db.Conn()).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.IsSeller, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*Account, error) {
	return s.repo(s.db.Conn()).GetByID(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]Account, int, error) {
	return s.repo(s.db.Conn()).List(ctx, params)
}

func (s *Service) UpdateUser(
	ctx context.Context,
	actorID, id string,
	req AdminUpdateUserRequest,
) (*Account, error) {
	return s.updateProfile(ctx, actorID, id, req)
}

// AdminCreateUser creates an account with an explicit role set. The route
// re-checks the caller's admin role against the database first.
func (s *Service) AdminCreateUser(
	ctx context.Context,
	actorID string,
	req AdminCreateUserRequest,
) (*Account, error) {
	roles := []string{rbac.RoleUser}
	for _, role := range req.Roles {
		if !rbac.IsValidRole(role) {
			return nil, core.ValidationError(fmt.Sprintf("unknown role %q", role))
		}
		if !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.createAccount(ctx, actorID, req.Email, passwordHash, req.DisplayName, roles)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.DuplicateError("email")
		}
		return nil, err
	}

	return account, nil
}

// DeleteUser soft deletes another account. Admin accounts must be demoted
// first.
func (s *Service) DeleteUser(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return core.ForbiddenError("use the account endpoint to delete yourself")
	}

	target, err := s.repo(s.db.Conn()).GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.HasRole(rbac.RoleAdmin) {
		return core.ForbiddenError("cannot delete admin users")
	}

	return s.deleteAccount(ctx, actorID, targetID)
}

// deleteAccount soft deletes the user, drops role rows and revokes every
// refresh token in one transaction. The token version bump in SoftDelete
// invalidates outstanding access tokens.
func (s *Service) deleteAccount(ctx context.Context, actorID, userID string) error {
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).SoftDelete(ctx, userID); err != nil {
			return err
		}
		if err := s.roles(tx).DeleteAll(ctx, userID); err != nil {
			return err
		}
		if err := s.tokens(tx).RevokeAllForUser(ctx, userID); err != nil {
			return err
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "user.deleted",
			EntityType: entityType,
			EntityID:   userID,
			Details:    map[string]any{"self": actorID == userID},
		})
	})
	if err != nil {
		return err
	}

	if s.roleCache != nil {
		s.roleCache.Invalidate(userID)
	}
	return nil
}

func (s *Service) updateProfile(
	ctx context.Context,
	actorID, userID string,
	req AdminUpdateUserRequest,
) (*Account, error) {
	var account *Account

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		var err error
		account, err = repo.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		changed := applyProfile(&account.Profile, req)
		if len(changed) == 0 {
			return nil
		}

		if err := repo.UpdateProfile(ctx, &account.Profile); err != nil {
			return err
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "user.profile_updated",
			EntityType: entityType,
			EntityID:   userID,
			Details:    map[string]any{"fields": changed},
		})
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// applyProfile copies the set fields and returns their names.
func applyProfile(p *Profile, req AdminUpdateUserRequest) []string {
	var changed []string

	if req.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*req.DisplayName)
		changed = append(changed, "display_name")
	}
	if req.AvatarURL != nil {
		p.AvatarURL = *req.AvatarURL
		changed = append(changed, "avatar_url")
	}
	if req.Bio != nil {
		p.Bio = *req.Bio
		changed = append(changed, "bio")
	}
	if req.LocationID != nil {
		loc := *req.LocationID
		p.LocationID = &loc
		changed = append(changed, "location_id")
	}
	if req.IsSeller != nil && *req.IsSeller != p.IsSeller {
		p.IsSeller = *req.IsSeller
		changed = append(changed, "is_seller")
	}

	return changed
}

func toUserInfo(a *Account) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           a.ID,
		Email:        a.Email,
		DisplayName:  a.DisplayName,
		PasswordHash: a.PasswordHash,
		Roles:        []string(a.Roles),
		TokenVersion: a.TokenVersion,
		CreatedAt:    a.User.CreatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
