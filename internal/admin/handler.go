// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type HandlerConfig struct {
	Counter    Counter
	DBStats    func() sql.DBStats
	DBPing     func(ctx context.Context) error
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
}

type Handler struct {
	cfg HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

// RegisterRoutes mounts the dashboard. staffOnly lets any staff role read
// marketplace counters; pool and runtime stats stay admin only.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, staffOnly, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/overview", func(r chi.Router) {
		r.Use(authenticator)

		r.With(staffOnly).Get("/", h.Overview)
		r.With(adminOnly).Get("/system", h.System)
	})
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	counts, err := h.cfg.Counter.Counts(r.Context())
	if err != nil {
		core.HandleServiceError(w, err, "overview")
		return
	}

	core.OK(w, Overview{
		Marketplace: counts,
		System:      h.systemStats(r.Context(), false),
	})
}

func (h *Handler) System(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.systemStats(r.Context(), true))
}

// systemStats always reports health; detail adds pool and runtime numbers.
func (h *Handler) systemStats(ctx context.Context, detail bool) SystemStats {
	var out SystemStats

	if h.cfg.DBPing != nil {
		out.Database.Healthy = h.cfg.DBPing(ctx) == nil
	}
	if h.cfg.RedisPing != nil {
		out.Redis.Healthy = h.cfg.RedisPing(ctx) == nil
	}
	if !detail {
		return out
	}

	if h.cfg.DBStats != nil {
		out.Database.Pool = dbPool(h.cfg.DBStats())
	}
	if h.cfg.RedisStats != nil {
		out.Redis.Pool = redisPool(h.cfg.RedisStats())
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	out.Runtime = &RuntimeStats{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		CPUs:       runtime.NumCPU(),
		HeapAlloc:  mem.HeapAlloc,
		GCCycles:   mem.NumGC,
	}

	return out
}
