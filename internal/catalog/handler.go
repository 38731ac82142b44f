// AngelaMos | 2026
// handler.go

package catalog

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

// RegisterRoutes mounts the public lists and the admin editor.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	adminOnly func(http.Handler) http.Handler,
) {
	r.Get("/categories", h.PublicCategories)
	r.Get("/locations", h.PublicLocations)

	r.Route("/admin/catalog", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/categories", h.AllCategories)
		r.Post("/categories", h.CreateCategory)
		r.Get("/categories/{id}", h.GetCategory)
		r.Put("/categories/{id}", h.UpdateCategory)
		r.Delete("/categories/{id}", h.DeleteCategory)

		r.Get("/locations", h.AllLocations)
		r.Post("/locations", h.CreateLocation)
		r.Get("/locations/{id}", h.GetLocation)
		r.Put("/locations/{id}", h.UpdateLocation)
		r.Delete("/locations/{id}", h.DeleteLocation)
	})
}

func (h *Handler) PublicCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.PublicCategories(r.Context())
	if err != nil {
		core.HandleServiceError(w, err, "category")
		return
	}
	core.OK(w, out)
}

func (h *Handler) PublicLocations(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.PublicLocations(r.Context())
	if err != nil {
		core.HandleServiceError(w, err, "location")
		return
	}
	core.OK(w, out)
}

func (h *Handler) AllCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.AllCategories(r.Context())
	if err != nil {
		core.HandleServiceError(w, err, "category")
		return
	}
	core.OK(w, out)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.HandleServiceError(w, err, "category")
		return
	}
	core.OK(w, c)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.CreateCategory(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleServiceError(w, err, "category")
		return
	}
	core.Created(w, c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.UpdateCategory(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		core.HandleServiceError(w, err, "category")
		return
	}
	core.OK(w, c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteCategory(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		core.HandleServiceError(w, err, "category")
		return
	}
	core.NoContent(w)
}

func (h *Handler) AllLocations(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.AllLocations(r.Context())
	if err != nil {
		core.HandleServiceError(w, err, "location")
		return
	}
	core.OK(w, out)
}

func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.GetLocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.HandleServiceError(w, err, "location")
		return
	}
	core.OK(w, l)
}

func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if !h.decode(w, r, &req) {
		return
	}

	l, err := h.service.CreateLocation(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleServiceError(w, err, "location")
		return
	}
	core.Created(w, l)
}

func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if !h.decode(w, r, &req) {
		return
	}

	l, err := h.service.UpdateLocation(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		core.HandleServiceError(w, err, "location")
		return
	}
	core.OK(w, l)
}

func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteLocation(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		core.HandleServiceError(w, err, "location")
		return
	}
	core.NoContent(w)
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
