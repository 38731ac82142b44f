// AngelaMos | 2026
// handler.go

package gig

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

// RegisterRoutes mounts browsing (public, optional token) and seller
// management (authenticated).
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/gigs", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/", h.Browse)
			r.Get("/{gigID}", h.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/", h.Create)
			r.Get("/mine", h.MyGigs)
			r.Put("/{gigID}", h.Update)
			r.Patch("/{gigID}/status", h.SetStatus)
		})
	})
}

func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	params, ok := parseBrowseParams(w, r)
	if !ok {
		return
	}

	gigs, total, err := h.service.Browse(r.Context(), params)
	if err != nil {
		core.HandleServiceError(w, err, "gig")
		return
	}

	core.Paginated(w, nonNil(gigs), params.Page, params.PageSize, total)
}

func (h *Handler) MyGigs(w http.ResponseWriter, r *http.Request) {
	params, ok := parseBrowseParams(w, r)
	if !ok {
		return
	}
	params.Status = Status(r.URL.Query().Get("status"))

	gigs, total, err := h.service.MyGigs(r.Context(), middleware.GetUserID(r.Context()), params)
	if err != nil {
		core.HandleServiceError(w, err, "gig")
		return
	}

	core.Paginated(w, nonNil(gigs), params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.Get(r.Context(), chi.URLParam(r, "gigID"), viewerFrom(r))
	if err != nil {
		core.HandleServiceError(w, err, "gig")
		return
	}

	core.OK(w, g)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGigRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleServiceError(w, err, "gig")
		return
	}

	core.Created(w, g)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateGigRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, err := h.service.Update(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "gigID"), req)
	if err != nil {
		core.HandleServiceError(w, err, "gig")
		return
	}

	core.OK(w, g)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, err := h.service.SetStatus(r.Context(), viewerFrom(r), chi.URLParam(r, "gigID"), req.Status)
	if err != nil {
		core.HandleServiceError(w, err, "gig")
		return
	}

	core.OK(w, g)
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
		Staff:  session.HasAnyRole(rbac.StaffRoles...),
	}
}

func parseBrowseParams(w http.ResponseWriter, r *http.Request) (BrowseParams, bool) {
	q := r.URL.Query()

	params := BrowseParams{
		Search:     q.Get("search"),
		CategoryID: q.Get("category_id"),
		SellerID:   q.Get("seller_id"),
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	if v := q.Get("is_ai_agent"); v != "" {
		ai, err := strconv.ParseBool(v)
		if err != nil {
			core.BadRequest(w, "is_ai_agent must be a boolean")
			return params, false
		}
		params.IsAIAgent = &ai
	}

	params.Normalize()
	return params, true
}

func nonNil(gigs []Gig) []Gig {
	if gigs == nil {
		return []Gig{}
	}
	return gigs
}
