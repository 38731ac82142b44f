// AngelaMos | 2026
// handler.go

package order

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/middleware"
	"github.com/carterperez-dev/gigmarket/internal/rbac"
)

// StaffRoles may view and move any order.
var StaffRoles = []string{rbac.RoleAdmin, rbac.RoleSupport}

const maxWebhookBody = 1 << 20

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

// RegisterRoutes mounts buyer and seller order routes plus the provider
// webhook. checkoutLimit wraps checkout creation only.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, checkoutLimit func(http.Handler) http.Handler,
) {
	r.Post("/payments/webhook", h.Webhook)

	r.Route("/orders", func(r chi.Router) {
		r.Use(authenticator)

		r.With(checkoutLimit).Post("/checkout", h.Checkout)
		r.Post("/verify-payment", h.VerifyPayment)
		r.Get("/mine", h.MyOrders)
		r.Get("/wallet", h.Wallet)
		r.Get("/{orderID}", h.Get)
		r.Patch("/{orderID}/status", h.SetStatus)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/admin/orders", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireRole(StaffRoles...))

		r.Get("/", h.List)
		r.Get("/{orderID}", h.Get)
		r.Patch("/{orderID}/status", h.SetStatus)
	})
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.Checkout(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleServiceError(w, err, "gig")
		return
	}
	core.Created(w, resp)
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.VerifyPayment(r.Context(), viewerFrom(r), req.SessionID)
	if err != nil {
		core.HandleServiceError(w, err, "transaction")
		return
	}
	core.OK(w, o)
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		core.BadRequest(w, "unreadable body")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		core.HandleServiceError(w, err, "transaction")
		return
	}
	core.OK(w, map[string]bool{"received": true})
}

func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	out, total, err := h.service.MyOrders(r.Context(), middleware.GetUserID(r.Context()), params)
	if err != nil {
		core.HandleServiceError(w, err, "order")
		return
	}
	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)
	params.UserID = r.URL.Query().Get("user_id")

	out, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.HandleServiceError(w, err, "order")
		return
	}
	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) Wallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.service.Wallet(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.HandleServiceError(w, err, "wallet")
		return
	}
	core.OK(w, wallet)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), viewerFrom(r), chi.URLParam(r, "orderID"))
	if err != nil {
		core.HandleServiceError(w, err, "order")
		return
	}
	core.OK(w, o)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.SetStatus(r.Context(), viewerFrom(r), chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		core.HandleServiceError(w, err, "order")
		return
	}
	core.OK(w, o)
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
	session, _ := middleware.GetSession(r.Context())
	return Viewer{
		UserID: session.UserID,
		Staff:  session.HasAnyRole(StaffRoles...),
	}
}

func listParams(r *http.Request) ListParams {
	q := r.URL.Query()

	params := ListParams{
		Role:   q.Get("role"),
		Status: Status(q.Get("status")),
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	params.Normalize()

	return params
}
