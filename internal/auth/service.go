// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrAccountSuspended   = errors.New("account suspended")
)

var authEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gigmarket_auth_events_total",
		Help: "Authentication outcomes by event.",
	},
	[]string{"event"},
)

type UserInfo struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Roles        []string
	TokenVersion int
	CreatedAt    time.Time
}

// UserProvider is the account store. Implemented by user.Service.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, email, passwordHash, displayName string) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// SuspensionChecker gates login and refresh for suspended accounts.
type SuspensionChecker interface {
	IsSuspended(ctx context.Context, userID string) (bool, error)
}

type ServiceConfig struct {
	Repository  Repository
	JWT         *JWTManager
	Users       UserProvider
	Suspensions SuspensionChecker
	Redis       *redis.Client
	Now         func() time.Time
	Logger      *slog.Logger
}

type Service struct {
	repo        Repository
	jwt         *JWTManager
	users       UserProvider
	suspensions SuspensionChecker
	redis       *redis.Client
	now         func() time.Time
	logger      *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:        cfg.Repository,
		jwt:         cfg.JWT,
		users:       cfg.Users,
		suspensions: cfg.Suspensions,
		redis:       cfg.Redis,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

var _ middleware.TokenVerifier = (*Service)(nil)

// VerifyAccessToken is the revocation-aware verifier handed to the
// authenticator: signature, blacklist, then token version.
func (s *Service) VerifyAccessToken(ctx context.Context, token string) (*middleware.AccessTokenClaims, error) {
	parsed, err := s.jwt.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}

	if parsed.JTI != "" {
		revoked, err := s.IsAccessTokenBlacklisted(ctx, parsed.JTI)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, core.TokenRevokedError()
		}
	}

	if err := s.ValidateTokenVersion(ctx, parsed.Claims.UserID, parsed.Claims.TokenVersion); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.TokenRevokedError()
		}
		return nil, err
	}

	return &parsed.Claims, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest, client Client) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, core.ErrNotFound) {
		//nolint:errcheck // burn the same argon2 time as a real check
		_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
		authEvents.WithLabelValues("login_failed").Inc()
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	valid, rehash, err := core.VerifyPasswordTimingSafe(req.Password, &user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !valid {
		authEvents.WithLabelValues("login_failed").Inc()
		return nil, invalidCredentials()
	}

	if err := s.checkSuspended(ctx, user.ID); err != nil {
		return nil, err
	}

	if rehash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, rehash); err != nil {
			s.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID, "error", err)
		}
	}

	authEvents.WithLabelValues("login").Inc()
	return s.issue(ctx, user, client, nil)
}

func (s *Service) Register(ctx context.Context, req RegisterRequest, client Client) (*AuthResponse, error) {
	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	user, err := s.users.Create(ctx, req.Email, hash, req.DisplayName)
	if errors.Is(err, core.ErrDuplicateKey) {
		return nil, core.DuplicateError("email")
	}
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	authEvents.WithLabelValues("register").Inc()
	return s.issue(ctx, user, client, nil)
}

// Refresh exchanges a refresh token for a new pair. Presenting a token that
// was already exchanged revokes its whole family.
func (s *Service) Refresh(ctx context.Context, refreshToken string, client Client) (*AuthResponse, error) {
	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.TokenInvalidError()
	}
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	switch stored.State(s.now()) {
	case TokenUsed:
		if err := s.repo.RevokeByFamilyID(ctx, stored.FamilyID); err != nil {
			s.logger.ErrorContext(ctx, "revoke token family failed",
				"family_id", stored.FamilyID,
				"error", err,
			)
		}
		authEvents.WithLabelValues("token_reuse").Inc()
		s.logger.WarnContext(ctx, "refresh token reuse", "user_id", stored.UserID, "family_id", stored.FamilyID)
		return nil, core.NewAppError(
			ErrTokenReuse,
			"security alert: token reuse detected, all sessions revoked",
			http.StatusUnauthorized,
			"TOKEN_REUSE_DETECTED",
		)
	case TokenRevoked:
		return nil, core.TokenRevokedError()
	case TokenExpired:
		return nil, core.TokenExpiredError()
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.TokenRevokedError()
	}
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	if err := s.checkSuspended(ctx, user.ID); err != nil {
		return nil, err
	}

	authEvents.WithLabelValues("refresh").Inc()
	return s.issue(ctx, user, client, stored)
}

// Logout revokes the refresh token and blacklists the access token that
// made the request until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, userID, refreshToken, accessToken string) error {
	if parsed, err := s.jwt.ParseAccessToken(accessToken); err == nil && parsed.JTI != "" {
		if err := s.RevokeAccessToken(ctx, parsed.JTI, parsed.ExpiresAt); err != nil {
			s.logger.WarnContext(ctx, "blacklist access token failed", "user_id", userID, "error", err)
		}
	}

	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	if stored.UserID != userID {
		return core.ForbiddenError("cannot revoke another user's token")
	}

	if err := s.repo.RevokeByID(ctx, stored.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("logout: %w", err)
	}

	return nil
}

// LogoutAll revokes every refresh token and bumps the token version so
// outstanding access tokens fail verification.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}

	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}

	return nil
}

func (s *Service) RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 || s.redis == nil {
		return nil
	}

	if err := s.redis.Set(ctx, revokedKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *Service) IsAccessTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	if s.redis == nil {
		return false, nil
	}

	n, err := s.redis.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return n > 0, nil
}

func (s *Service) GetActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	tokens, err := s.repo.GetActiveSessionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for i := range tokens {
		sessions = append(sessions, tokens[i].Session())
	}

	return sessions, nil
}

func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	token, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}

	// Someone else's session looks the same as a missing one.
	if token.UserID != userID {
		return core.NotFoundError("session")
	}

	return s.repo.RevokeByID(ctx, sessionID)
}

func (s *Service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	valid, _, err := core.VerifyPasswordWithRehash(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !valid {
		return core.NewAppError(
			ErrInvalidCredentials,
			"current password is incorrect",
			http.StatusUnauthorized,
			"INVALID_CREDENTIALS",
		)
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	return s.LogoutAll(ctx, userID)
}

func (s *Service) ValidateTokenVersion(ctx context.Context, userID string, tokenVersion int) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("validate token version: %w", err)
	}

	if tokenVersion < user.TokenVersion {
		return core.TokenRevokedError()
	}

	return nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *Service) checkSuspended(ctx context.Context, userID string) error {
	if s.suspensions == nil {
		return nil
	}

	suspended, err := s.suspensions.IsSuspended(ctx, userID)
	if err != nil {
		return fmt.Errorf("check suspension: %w", err)
	}
	if suspended {
		authEvents.WithLabelValues("suspended").Inc()
		return core.NewAppError(ErrAccountSuspended, "account is suspended", http.StatusForbidden, "ACCOUNT_SUSPENDED")
	}

	return nil
}

// issue mints an access token and the next refresh token. When parent is
// set the new token joins its family and the parent is marked used.
func (s *Service) issue(ctx context.Context, user *UserInfo, client Client, parent *RefreshToken) (*AuthResponse, error) {
	accessToken, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Roles:        user.Roles,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	familyID := ""
	if parent != nil {
		familyID = parent.FamilyID
	}

	refresh, err := s.jwt.CreateRefreshToken(familyID)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	next := &RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: refresh.Hash,
		FamilyID:  refresh.FamilyID,
		ExpiresAt: refresh.ExpiresAt,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}

	if parent != nil {
		if err := s.repo.MarkAsUsed(ctx, parent.ID, next.ID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, core.TokenRevokedError()
			}
			return nil, fmt.Errorf("issue tokens: %w", err)
		}
	}

	if err := s.repo.Create(ctx, next); err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	ttl := s.jwt.AccessTokenTTL()

	return &AuthResponse{
		User: toUserResponse(user),
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refresh.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(ttl / time.Second),
			ExpiresAt:    s.now().Add(ttl),
		},
	}, nil
}

func revokedKey(jti string) string {
	return core.RedisKey("revoked_jti", jti)
}

func invalidCredentials() error {
	return core.NewAppError(ErrInvalidCredentials, "invalid email or password", http.StatusUnauthorized, "INVALID_CREDENTIALS")
}

func toUserResponse(u *UserInfo) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Roles:       roles,
		CreatedAt:   u.CreatedAt,
	}
}
