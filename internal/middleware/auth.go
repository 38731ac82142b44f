// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type contextKey string

const (
	sessionKey   contextKey = "session"
	requestIDKey contextKey = "request_id"
)

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*AccessTokenClaims, error)
}

// RoleChecker answers role questions against the current role rows
// rather than the token.
type RoleChecker interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

type AccessTokenClaims struct {
	UserID       string
	Roles        []string
	TokenVersion int
}

// Session is the immutable view of the caller that handlers receive.
type Session struct {
	UserID       string
	Roles        []string
	TokenVersion int
}

func (s Session) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

func (s Session) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, s.HasRole)
}

func newSession(claims *AccessTokenClaims) Session {
	return Session{
		UserID:       claims.UserID,
		Roles:        slices.Clone(claims.Roles),
		TokenVersion: claims.TokenVersion,
	}
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func GetSession(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok && s.UserID != ""
}

// Authenticator rejects requests without a valid bearer token and stores
// the caller's Session on the context.
func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				core.JSONError(w, core.UnauthorizedError("missing authorization token"))
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), newSession(claims))))
		})
	}
}

// OptionalAuth attaches a Session when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := ExtractToken(r); token != "" {
				if claims, err := verifier.VerifyAccessToken(r.Context(), token); err == nil {
					r = r.WithContext(WithSession(r.Context(), newSession(claims)))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole passes callers whose token carries any of the roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := requireSession(w, r)
			if !ok {
				return
			}
			if !session.HasAnyRole(roles...) {
				core.JSONError(w, core.ForbiddenError("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole("admin")(next)
}

// RequireFreshRole re-reads the caller's role rows instead of trusting the
// token, so a revoked role stops working before the token expires.
func RequireFreshRole(checker RoleChecker, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := requireSession(w, r)
			if !ok {
				return
			}

			has, err := checker.HasRole(r.Context(), session.UserID, role)
			if err != nil {
				slog.ErrorContext(r.Context(), "role check failed",
					"user_id", session.UserID,
					"role", role,
					"error", err,
				)
				core.InternalServerError(w, err)
				return
			}
			if !has {
				core.JSONError(w, core.ForbiddenError("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	session, ok := GetSession(r.Context())
	if !ok {
		core.JSONError(w, core.UnauthorizedError("authentication required"))
	}
	return session, ok
}

// ExtractToken returns the bearer credential, or "" for any other scheme.
func ExtractToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenRevoked):
		core.JSONError(w, core.TokenRevokedError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func GetUserID(ctx context.Context) string {
	if s, ok := GetSession(ctx); ok {
		return s.UserID
	}
	return ""
}
