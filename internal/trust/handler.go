// AngelaMos | 2026
// handler.go

package trust

import (
	"encoding/json"
	"net/http"

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

// RegisterRoutes mounts the trust console. Moderators and admins may read,
// warn and suspend; only admins may set the score.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	moderatorOnly func(http.Handler) http.Handler,
	adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/trust", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(moderatorOnly)

		r.Get("/", h.List)
		r.Get("/{userID}", h.Get)
		r.Post("/{userID}/warn", h.Warn)
		r.Post("/{userID}/suspend", h.Suspend)
		r.Delete("/{userID}/suspension", h.RemoveSuspension)
		r.With(adminOnly).Put("/{userID}/score", h.SetScore)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	q, err := ParseListQuery(qs.Get("status"), qs.Get("sort"), qs.Get("direction"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	views, err := h.service.FetchUserTrustData(r.Context(), q)
	if err != nil {
		core.HandleServiceError(w, err, "trust record")
		return
	}

	core.OK(w, views)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetUserTrust(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		core.HandleServiceError(w, err, "trust record")
		return
	}

	core.OK(w, view)
}

func (h *Handler) Warn(w http.ResponseWriter, r *http.Request) {
	var req WarnRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.WarnUser(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "userID"),
		req.Reason,
	)
	if err != nil {
		core.HandleServiceError(w, err, "user")
		return
	}

	core.OK(w, result)
}

func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	var req SuspendRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.SuspendUser(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "userID"),
		req.Reason,
		req.Days,
	)
	if err != nil {
		core.HandleServiceError(w, err, "user")
		return
	}

	core.OK(w, result)
}

func (h *Handler) RemoveSuspension(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RemoveSuspension(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "userID"),
	)
	if err != nil {
		core.HandleServiceError(w, err, "user")
		return
	}

	core.OK(w, result)
}

func (h *Handler) SetScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.SetTrustScore(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "userID"),
		*req.Score,
		req.Reason,
	)
	if err != nil {
		core.HandleServiceError(w, err, "user")
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
