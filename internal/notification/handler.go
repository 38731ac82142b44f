// AngelaMos | 2026
// handler.go

package notification

import (
	"encoding/json"
	"net/http"
	"strconv"

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

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/", h.ListMine)
		r.Get("/unread-count", h.UnreadCount)
		r.Post("/read-all", h.MarkAllRead)
		r.Post("/{notificationID}/read", h.MarkRead)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/notification-templates", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)
		r.Get("/", h.ListTemplates)
		r.Post("/", h.CreateTemplate)
		r.Put("/{templateID}", h.UpdateTemplate)
		r.Delete("/{templateID}", h.DeleteTemplate)
	})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListParams{UnreadOnly: q.Get("unread") == "true"}
	params.Page, _ = strconv.Atoi(q.Get("page"))          //nolint:errcheck // defaults on parse failure
	params.PageSize, _ = strconv.Atoi(q.Get("page_size")) //nolint:errcheck // defaults on parse failure
	params.Normalize()

	items, total, err := h.service.ListMine(r.Context(), middleware.GetUserID(r.Context()), params)
	if err != nil {
		core.HandleServiceError(w, err, "notification")
		return
	}
	if items == nil {
		items = []Notification{}
	}

	core.Paginated(w, items, params.Page, params.PageSize, total)
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UnreadCount(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.HandleServiceError(w, err, "notification")
		return
	}

	core.OK(w, UnreadCountResponse{Count: count})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "notificationID")

	if err := h.service.MarkRead(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		core.HandleServiceError(w, err, "notification")
		return
	}

	core.NoContent(w)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.MarkAllRead(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.HandleServiceError(w, err, "notification")
		return
	}

	core.OK(w, MarkAllReadResponse{Updated: n})
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListTemplates(r.Context())
	if err != nil {
		core.HandleServiceError(w, err, "notification template")
		return
	}
	if items == nil {
		items = []Template{}
	}

	core.OK(w, items)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTemplate(w, r)
	if !ok {
		return
	}

	t, err := h.service.CreateTemplate(r.Context(), req)
	if err != nil {
		core.HandleServiceError(w, err, "notification template")
		return
	}

	core.Created(w, t)
}

func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTemplate(w, r)
	if !ok {
		return
	}

	t, err := h.service.UpdateTemplate(r.Context(), chi.URLParam(r, "templateID"), req)
	if err != nil {
		core.HandleServiceError(w, err, "notification template")
		return
	}

	core.OK(w, t)
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTemplate(r.Context(), chi.URLParam(r, "templateID")); err != nil {
		core.HandleServiceError(w, err, "notification template")
		return
	}

	core.NoContent(w)
}

func (h *Handler) decodeTemplate(
	w http.ResponseWriter,
	r *http.Request,
) (TemplateRequest, bool) {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return req, false
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return req, false
	}

	return req, true
}
