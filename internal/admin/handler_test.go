// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterFunc func(ctx context.Context) (*MarketplaceCounts, error)

func (f counterFunc) Counts(ctx context.Context) (*MarketplaceCounts, error) {
	return f(ctx)
}

func passthrough(next http.Handler) http.Handler { return next }

func deny(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
}

func newRouter(h *Handler, adminOnly func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r, passthrough, passthrough, adminOnly)
	return r
}

func TestOverview(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Counter: counterFunc(func(context.Context) (*MarketplaceCounts, error) {
			return &MarketplaceCounts{
				Users:          12,
				SuspendedUsers: 2,
				OpenDisputes:   1,
				PendingFlags:   4,
				OpenTasks:      3,
				OrdersByStatus: map[string]int{"paid": 5, "completed": 7},
			}, nil
		}),
		DBPing:    func(context.Context) error { return nil },
		RedisPing: func(context.Context) error { return errors.New("down") },
	})

	rec := httptest.NewRecorder()
	newRouter(h, passthrough).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/overview/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data Overview `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.Equal(t, 12, body.Data.Marketplace.Users)
	assert.Equal(t, 2, body.Data.Marketplace.SuspendedUsers)
	assert.Equal(t, 5, body.Data.Marketplace.OrdersByStatus["paid"])
	assert.True(t, body.Data.System.Database.Healthy)
	assert.False(t, body.Data.System.Redis.Healthy)
	assert.Nil(t, body.Data.System.Runtime)
	assert.Nil(t, body.Data.System.Database.Pool)
}

func TestSystem_IncludesPoolDetail(t *testing.T) {
	h := NewHandler(HandlerConfig{
		DBPing:  func(context.Context) error { return nil },
		DBStats: func() sql.DBStats { return sql.DBStats{OpenConnections: 4, InUse: 1, Idle: 3, MaxOpenConnections: 25} },
		RedisStats: func() *redis.PoolStats {
			return &redis.PoolStats{TotalConns: 6, IdleConns: 5, Timeouts: 2}
		},
	})

	rec := httptest.NewRecorder()
	newRouter(h, passthrough).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/overview/system", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data SystemStats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	require.NotNil(t, body.Data.Database.Pool)
	assert.Equal(t, 4, body.Data.Database.Pool.Open)
	assert.Equal(t, 25, body.Data.Database.Pool.MaxOpen)
	require.NotNil(t, body.Data.Redis.Pool)
	assert.Equal(t, 6, body.Data.Redis.Pool.Open)
	assert.Equal(t, int64(2), body.Data.Redis.Pool.Timeouts)
	require.NotNil(t, body.Data.Runtime)
	assert.NotEmpty(t, body.Data.Runtime.GoVersion)
}

func TestOverview_CounterError(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Counter: counterFunc(func(context.Context) (*MarketplaceCounts, error) {
			return nil, errors.New("db gone")
		}),
	})

	rec := httptest.NewRecorder()
	newRouter(h, passthrough).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/overview/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSystem_AdminOnly(t *testing.T) {
	h := NewHandler(HandlerConfig{})

	rec := httptest.NewRecorder()
	newRouter(h, deny).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/overview/system", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
