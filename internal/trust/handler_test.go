// AngelaMos | 2026
// handler_test.go

package trust

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/gigmarket/internal/middleware"
)

type rolesVerifier struct{}

// VerifyAccessToken treats the bearer token as "<user>:<role>".
func (rolesVerifier) VerifyAccessToken(
	_ context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	user, role, _ := strings.Cut(token, ":")
	return &middleware.AccessTokenClaims{UserID: user, Roles: []string{role}}, nil
}

func newTestRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(
		r,
		middleware.Authenticator(rolesVerifier{}),
		middleware.RequireRole("admin", "moderator"),
		middleware.RequireAdmin,
	)
	return r
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Access(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		method string
		path   string
		body   string
		want   int
	}{
		{"anonymous", "", http.MethodGet, "/admin/trust", "", http.StatusUnauthorized},
		{"plain user", "u2:user", http.MethodGet, "/admin/trust", "", http.StatusForbidden},
		{"moderator lists", "mod:moderator", http.MethodGet, "/admin/trust", "", http.StatusOK},
		{
			"moderator cannot score", "mod:moderator", http.MethodPut,
			"/admin/trust/u1/score", `{"score":10,"reason":"x"}`, http.StatusForbidden,
		},
		{
			"admin scores", "admin:admin", http.MethodPut,
			"/admin/trust/u1/score", `{"score":10,"reason":"x"}`, http.StatusOK,
		},
		{
			"zero score allowed", "admin:admin", http.MethodPut,
			"/admin/trust/u1/score", `{"score":0,"reason":"x"}`, http.StatusOK,
		},
		{
			"missing score", "admin:admin", http.MethodPut,
			"/admin/trust/u1/score", `{"reason":"x"}`, http.StatusBadRequest,
		},
		{"bad filter", "mod:moderator", http.MethodGet, "/admin/trust?status=banned", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("mod", "admin", "u1", "u2")
			rec := do(t, newTestRouter(f), tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_SuspendThenLift(t *testing.T) {
	f := newFixture("mod", "u1")
	h := newTestRouter(f)

	rec := do(t, h, http.MethodPost, "/admin/trust/u1/suspend", "mod:moderator",
		`{"reason":"fraud","days":14}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var suspended struct {
		Data SuspendResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suspended))
	assert.True(t, suspended.Data.IsSuspended)
	assert.Equal(t, 1, suspended.Data.SuspensionCount)

	rec = do(t, h, http.MethodDelete, "/admin/trust/u1/suspension", "mod:moderator", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var lifted struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lifted))
	assert.Equal(t, false, lifted.Data["is_suspended"])
	assert.Nil(t, lifted.Data["suspension_reason"])
	assert.EqualValues(t, 1, lifted.Data["suspension_count"])
}

func TestHandler_SuspendValidation(t *testing.T) {
	f := newFixture("mod", "u1")
	h := newTestRouter(f)

	for _, body := range []string{
		`{"reason":"fraud","days":0}`,
		`{"reason":"fraud","days":400}`,
		`{"days":3}`,
		`not json`,
	} {
		rec := do(t, h, http.MethodPost, "/admin/trust/u1/suspend", "mod:moderator", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, f.journal.Entries)
}

func TestHandler_WarnSelfForbidden(t *testing.T) {
	f := newFixture("mod")

	rec := do(t, newTestRouter(f), http.MethodPost, "/admin/trust/mod/warn",
		"mod:moderator", `{"reason":"testing"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_WarnUnknownUser(t *testing.T) {
	f := newFixture("mod")

	rec := do(t, newTestRouter(f), http.MethodPost, "/admin/trust/ghost/warn",
		"mod:moderator", `{"reason":"spam"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
