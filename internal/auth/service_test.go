// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/gigmarket/internal/config"
	"github.com/carterperez-dev/gigmarket/internal/core"
)

type memTokens struct {
	Repository
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func (m *memTokens) Create(_ context.Context, t *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]*RefreshToken{}
	}
	t.CreatedAt = time.Now()
	m.tokens[t.TokenHash] = t
	return nil
}

func (m *memTokens) FindByHash(_ context.Context, hash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[hash]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
}

func (m *memTokens) MarkAsUsed(_ context.Context, id, replacedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.ID == id {
			if t.IsUsed {
				return fmt.Errorf("mark refresh token used: %w", core.ErrNotFound)
			}
			now := time.Now()
			t.IsUsed = true
			t.UsedAt = &now
			t.ReplacedByID = &replacedBy
		}
	}
	return nil
}

func (m *memTokens) FindByID(_ context.Context, id string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
}

func (m *memTokens) RevokeByID(_ context.Context, id string) error {
	return m.revoke(func(t *RefreshToken) bool { return t.ID == id })
}

func (m *memTokens) RevokeByFamilyID(_ context.Context, familyID string) error {
	return m.revoke(func(t *RefreshToken) bool { return t.FamilyID == familyID })
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID string) error {
	return m.revoke(func(t *RefreshToken) bool { return t.UserID == userID })
}

func (m *memTokens) revoke(match func(*RefreshToken) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tokens {
		if match(t) && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *memTokens) GetActiveSessionsForUser(_ context.Context, userID string) ([]RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RefreshToken
	for _, t := range m.tokens {
		if t.UserID == userID && t.State(time.Now()) == TokenActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

type memUsers struct {
	users map[string]*UserInfo
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
}

func (m *memUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
}

func (m *memUsers) Create(context.Context, string, string, string) (*UserInfo, error) {
	return nil, errors.New("not used")
}

func (m *memUsers) IncrementTokenVersion(_ context.Context, id string) error {
	m.users[id].TokenVersion++
	return nil
}

func (m *memUsers) UpdatePassword(context.Context, string, string) error {
	return nil
}

var testClient = Client{UserAgent: "ua", IPAddress: "127.0.0.1"}

type suspensionSet map[string]bool

func (s suspensionSet) IsSuspended(_ context.Context, userID string) (bool, error) {
	return s[userID], nil
}

func newTestJWT(t *testing.T) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	require.NoError(t, GenerateKeyPair(priv, pub))

	m, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     priv,
		PublicKeyPath:      pub,
		AccessTokenExpire:  10 * time.Minute,
		RefreshTokenExpire: time.Hour,
		Issuer:             "gigmarket-test",
		Audience:           "gigmarket-test",
	})
	require.NoError(t, err)
	return m
}

func newTestService(t *testing.T, suspended suspensionSet) (*Service, *memUsers, *memTokens) {
	t.Helper()

	hash, err := core.HashPassword("correct-horse")
	require.NoError(t, err)

	users := &memUsers{users: map[string]*UserInfo{
		"u1": {
			ID:           "u1",
			Email:        "sam@example.com",
			DisplayName:  "Sam",
			PasswordHash: hash,
			Roles:        []string{"user", "moderator"},
		},
	}}
	tokens := &memTokens{}

	svc := NewService(ServiceConfig{
		Repository:  tokens,
		JWT:         newTestJWT(t),
		Users:       users,
		Suspensions: suspended,
	})
	return svc, users, tokens
}

func TestLogin_IssuesTokensWithRoles(t *testing.T) {
	svc, _, tokens := newTestService(t, suspensionSet{})
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{Email: "sam@example.com", Password: "correct-horse"}, testClient)
	require.NoError(t, err)

	assert.Equal(t, []string{"user", "moderator"}, resp.User.Roles)
	assert.Equal(t, 600, resp.Tokens.ExpiresIn)
	assert.Len(t, tokens.tokens, 1)

	claims, err := svc.jwt.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, []string{"user", "moderator"}, claims.Roles)
}

func TestLogin_RejectsSuspendedAccount(t *testing.T) {
	svc, _, tokens := newTestService(t, suspensionSet{"u1": true})

	_, err := svc.Login(context.Background(),
		LoginRequest{Email: "sam@example.com", Password: "correct-horse"}, testClient)

	assert.ErrorIs(t, err, ErrAccountSuspended)
	assert.Empty(t, tokens.tokens)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t, suspensionSet{})

	_, err := svc.Login(context.Background(),
		LoginRequest{Email: "sam@example.com", Password: "wrong-password"}, testClient)

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RejectsSuspendedAccount(t *testing.T) {
	suspended := suspensionSet{}
	svc, _, _ := newTestService(t, suspended)
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{Email: "sam@example.com", Password: "correct-horse"}, testClient)
	require.NoError(t, err)

	suspended["u1"] = true

	_, err = svc.Refresh(ctx, resp.Tokens.RefreshToken, testClient)
	assert.ErrorIs(t, err, ErrAccountSuspended)
}

func TestVerifyAccessToken_RejectsStaleTokenVersion(t *testing.T) {
	svc, users, _ := newTestService(t, suspensionSet{})
	ctx := context.Background()

	token, err := svc.jwt.CreateAccessToken(AccessTokenClaims{UserID: "u1", Roles: []string{"user"}})
	require.NoError(t, err)

	claims, err := svc.jwt.VerifyAccessToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, claims.Roles)

	require.NoError(t, users.IncrementTokenVersion(ctx, "u1"))

	err = svc.ValidateTokenVersion(ctx, "u1", claims.TokenVersion)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestParseAccessToken_RejectsGarbage(t *testing.T) {
	m := newTestJWT(t)

	_, err := m.ParseAccessToken("not.a.token")

	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestRefresh_RotatesWithinFamily(t *testing.T) {
	svc, _, tokens := newTestService(t, suspensionSet{})
	ctx := context.Background()

	first, err := svc.Login(ctx, LoginRequest{Email: "sam@example.com", Password: "correct-horse"}, testClient)
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.Tokens.RefreshToken, testClient)
	require.NoError(t, err)
	assert.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)

	old := tokens.tokens[core.HashToken(first.Tokens.RefreshToken)]
	next := tokens.tokens[core.HashToken(second.Tokens.RefreshToken)]
	require.NotNil(t, old.ReplacedByID)
	assert.Equal(t, next.ID, *old.ReplacedByID)
	assert.Equal(t, old.FamilyID, next.FamilyID)
}

func TestRefresh_ReuseRevokesFamily(t *testing.T) {
	svc, _, tokens := newTestService(t, suspensionSet{})
	ctx := context.Background()

	first, err := svc.Login(ctx, LoginRequest{Email: "sam@example.com", Password: "correct-horse"}, testClient)
	require.NoError(t, err)
	second, err := svc.Refresh(ctx, first.Tokens.RefreshToken, testClient)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.Tokens.RefreshToken, testClient)
	require.ErrorIs(t, err, ErrTokenReuse)

	var appErr *core.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "TOKEN_REUSE_DETECTED", appErr.Code)

	live := tokens.tokens[core.HashToken(second.Tokens.RefreshToken)]
	assert.Equal(t, TokenRevoked, live.State(time.Now()))

	_, err = svc.Refresh(ctx, second.Tokens.RefreshToken, testClient)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRefresh_UnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t, suspensionSet{})

	_, err := svc.Refresh(context.Background(), "never-issued", testClient)

	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestLogout_RejectsForeignToken(t *testing.T) {
	svc, users, _ := newTestService(t, suspensionSet{})
	ctx := context.Background()
	users.users["u2"] = &UserInfo{ID: "u2", Email: "kim@example.com"}

	resp, err := svc.Login(ctx, LoginRequest{Email: "sam@example.com", Password: "correct-horse"}, testClient)
	require.NoError(t, err)

	err = svc.Logout(ctx, "u2", resp.Tokens.RefreshToken, "")
	assert.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, svc.Logout(ctx, "u1", resp.Tokens.RefreshToken, ""))
	sessions, err := svc.GetActiveSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestLogoutAll_BumpsTokenVersion(t *testing.T) {
	svc, users, _ := newTestService(t, suspensionSet{})
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{Email: "sam@example.com", Password: "correct-horse"}, testClient)
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)

	require.NoError(t, svc.LogoutAll(ctx, "u1"))
	assert.Equal(t, 1, users.users["u1"].TokenVersion)

	_, err = svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRevokeSession_HidesOtherUsersSessions(t *testing.T) {
	svc, users, _ := newTestService(t, suspensionSet{})
	ctx := context.Background()
	users.users["u2"] = &UserInfo{ID: "u2", Email: "kim@example.com"}

	_, err := svc.Login(ctx, LoginRequest{Email: "sam@example.com", Password: "correct-horse"}, testClient)
	require.NoError(t, err)
	sessions, err := svc.GetActiveSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	err = svc.RevokeSession(ctx, "u2", sessions[0].ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, svc.RevokeSession(ctx, "u1", sessions[0].ID))
}

func TestTokenState(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	revokedAt := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token RefreshToken
		want  TokenState
	}{
		{"active", RefreshToken{ExpiresAt: now.Add(time.Hour)}, TokenActive},
		{"expired at boundary", RefreshToken{ExpiresAt: now}, TokenExpired},
		{"revoked", RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}, TokenRevoked},
		{"used beats revoked", RefreshToken{IsUsed: true, RevokedAt: &revokedAt}, TokenUsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.State(now))
		})
	}
}
