// AngelaMos | 2026
// handler.go

package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the audit log. Reading is admin only; any staff
// role may append events.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	adminOnly func(http.Handler) http.Handler,
	staffOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/audit-logs", func(r chi.Router) {
		r.Use(authenticator)
		r.With(adminOnly).Get("/", h.List)
		r.With(staffOnly).Post("/", h.LogEvent)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := ListParams{
		ActorID:    q.Get("actor_id"),
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}

	if v := q.Get("page"); v != "" {
		params.Page, _ = strconv.Atoi(v) //nolint:errcheck // defaults on parse failure
	}
	if v := q.Get("page_size"); v != "" {
		params.PageSize, _ = strconv.Atoi(v) //nolint:errcheck // defaults on parse failure
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			core.BadRequest(w, "since must be an RFC3339 timestamp")
			return
		}
		params.Since = &since
	}

	params.Normalize()
	logs, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.HandleServiceError(w, err, "audit log")
		return
	}

	if logs == nil {
		logs = []Log{}
	}

	core.Paginated(w, logs, params.Page, params.PageSize, total)
}

func (h *Handler) LogEvent(w http.ResponseWriter, r *http.Request) {
	var req LogEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	log, err := h.service.LogEvent(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleServiceError(w, err, "audit log")
		return
	}

	core.Created(w, log)
}
