// AngelaMos | 2026
// handler.go

package rbac

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

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/rbac", func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/has-role", h.HasRole)
	})

	r.Route("/admin/rbac/users/{userID}/roles", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListUserRoles)
		r.Post("/", h.AddRole)
		r.Put("/", h.ReplaceRoles)
		r.Delete("/{role}", h.RemoveRole)
	})
}

// HasRole answers from the role rows, not the token, so a role granted a
// moment ago is visible before the caller refreshes.
func (h *Handler) HasRole(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		core.BadRequest(w, "role is required")
		return
	}

	has, err := h.service.HasRole(r.Context(), middleware.GetUserID(r.Context()), role)
	if err != nil {
		core.HandleServiceError(w, err, "role")
		return
	}

	core.OK(w, HasRoleResponse{Role: role, HasRole: has})
}

func (h *Handler) ListUserRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListUserRoles(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		core.HandleServiceError(w, err, "user")
		return
	}

	core.OK(w, roles)
}

func (h *Handler) AddRole(w http.ResponseWriter, r *http.Request) {
	var req AddRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.AddRole(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "userID"),
		req.Role,
	)
	if err != nil {
		core.HandleServiceError(w, err, "user")
		return
	}

	core.OK(w, resp)
}

func (h *Handler) ReplaceRoles(w http.ResponseWriter, r *http.Request) {
	var req ReplaceRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.ReplaceRoles(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "userID"),
		req.Roles,
	)
	if err != nil {
		core.HandleServiceError(w, err, "user")
		return
	}

	core.OK(w, resp)
}

func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.RemoveRole(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "userID"),
		chi.URLParam(r, "role"),
	)
	if err != nil {
		core.HandleServiceError(w, err, "role assignment")
		return
	}

	core.OK(w, resp)
}
