// AngelaMos | 2026
// handler.go

package dispute

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/middleware"
	"github.com/carterperez-dev/gigmarket/internal/rbac"
)

// StaffRoles may work the dispute desk.
var StaffRoles = []string{rbac.RoleAdmin, rbac.RoleModerator, rbac.RoleSupport}

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
	r.Route("/disputes", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.Open)
		r.Get("/mine", h.Mine)
		r.Get("/{disputeID}", h.Get)
		r.Post("/{disputeID}/escalate", h.Escalate)
	})

	r.Route("/admin/disputes", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireRole(StaffRoles...))

		r.Get("/", h.List)
		r.Patch("/{disputeID}/status", h.SetStatus)
		r.Post("/{disputeID}/resolve", h.Resolve)
	})
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !h.decode(w, r, &req) {
		return
	}

	d, err := h.service.Open(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleServiceError(w, err, "dispute")
		return
	}

	core.Created(w, d)
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	out, total, err := h.service.MyDisputes(r.Context(), middleware.GetUserID(r.Context()), params)
	if err != nil {
		core.HandleServiceError(w, err, "dispute")
		return
	}

	core.Paginated(w, nonNil(out), params.Page, params.PageSize, total)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	out, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.HandleServiceError(w, err, "dispute")
		return
	}

	core.Paginated(w, nonNil(out), params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), viewerFrom(r), chi.URLParam(r, "disputeID"))
	if err != nil {
		core.HandleServiceError(w, err, "dispute")
		return
	}

	core.OK(w, d)
}

func (h *Handler) Escalate(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Escalate(r.Context(), viewerFrom(r), chi.URLParam(r, "disputeID"))
	if err != nil {
		core.HandleServiceError(w, err, "dispute")
		return
	}

	core.OK(w, d)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	d, err := h.service.SetStatus(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "disputeID"),
		req,
	)
	if err != nil {
		core.HandleServiceError(w, err, "dispute")
		return
	}

	core.OK(w, d)
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !h.decode(w, r, &req) {
		return
	}

	d, err := h.service.Resolve(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "disputeID"),
		req,
	)
	if err != nil {
		core.HandleServiceError(w, err, "dispute")
		return
	}

	core.OK(w, d)
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

func viewerFrom(r *http.Request) Viewer {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		return Viewer{}
	}
	return Viewer{
		UserID: session.UserID,
		Staff:  session.HasAnyRole(StaffRoles...),
	}
}

func listParams(r *http.Request) ListParams {
	q := r.URL.Query()

	params := ListParams{Status: Status(q.Get("status"))}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	params.Normalize()

	return params
}

func nonNil(in []Dispute) []Dispute {
	if in == nil {
		return []Dispute{}
	}
	return in
}
