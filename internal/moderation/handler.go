// AngelaMos | 2026
// handler.go

package moderation

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

// RegisterRoutes mounts flagging for any signed-in user and the review
// queue for moderators.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	moderatorOnly func(http.Handler) http.Handler,
) {
	r.With(authenticator).Post("/flags", h.Flag)

	r.Route("/admin/moderation", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(moderatorOnly)

		r.Get("/flags", h.List)
		r.Get("/flags/{flagID}", h.Get)
		r.Post("/flags/{flagID}/review", h.Review)
	})
}

func (h *Handler) Flag(w http.ResponseWriter, r *http.Request) {
	var req FlagRequest
	if !h.decode(w, r, &req) {
		return
	}

	f, err := h.service.Flag(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleServiceError(w, err, "flag")
		return
	}

	core.Created(w, f)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := ListParams{
		Status:      Status(q.Get("status")),
		ContentType: ContentType(q.Get("content_type")),
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	params.Normalize()

	flags, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.HandleServiceError(w, err, "flag")
		return
	}
	if flags == nil {
		flags = []Flag{}
	}

	core.Paginated(w, flags, params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.Get(r.Context(), chi.URLParam(r, "flagID"))
	if err != nil {
		core.HandleServiceError(w, err, "flag")
		return
	}

	core.OK(w, f)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Review(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "flagID"),
		req,
	)
	if err != nil {
		core.HandleServiceError(w, err, "flag")
		return
	}

	core.OK(w, result)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}
