// AngelaMos | 2026
// handler.go

package settings

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

// RegisterRoutes mounts admin settings. Minting API keys and webhook
// secrets goes through freshAdmin.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly, freshAdmin func(http.Handler) http.Handler,
) {
	r.Route("/admin/settings", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListSettings)
		r.Get("/system/{key}", h.GetSetting)
		r.Put("/system/{key}", h.PutSetting)
		r.Delete("/system/{key}", h.DeleteSetting)

		r.Get("/api-keys", h.ListAPIKeys)
		r.With(freshAdmin).Post("/api-keys", h.CreateAPIKey)
		r.Delete("/api-keys/{keyID}", h.RevokeAPIKey)

		r.Get("/webhooks", h.ListWebhooks)
		r.With(freshAdmin).Post("/webhooks", h.CreateWebhook)
		r.Get("/webhooks/{webhookID}", h.GetWebhook)
		r.Put("/webhooks/{webhookID}", h.UpdateWebhook)
		r.With(freshAdmin).Post("/webhooks/{webhookID}/rotate-secret", h.RotateWebhookSecret)
		r.Delete("/webhooks/{webhookID}", h.DeleteWebhook)
	})
}

func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListSettings(r.Context())
	if err != nil {
		core.HandleServiceError(w, err, "setting")
		return
	}
	core.OK(w, out)
}

func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		core.HandleServiceError(w, err, "setting")
		return
	}
	core.OK(w, s)
}

func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	var req SettingRequest
	if !h.decode(w, r, &req) {
		return
	}

	s, err := h.service.PutSetting(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "key"), req)
	if err != nil {
		core.HandleServiceError(w, err, "setting")
		return
	}
	core.OK(w, s)
}

func (h *Handler) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSetting(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "key")); err != nil {
		core.HandleServiceError(w, err, "setting")
		return
	}
	core.NoContent(w)
}

func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListAPIKeys(r.Context())
	if err != nil {
		core.HandleServiceError(w, err, "api key")
		return
	}
	core.OK(w, out)
}

func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if !h.decode(w, r, &req) {
		return
	}

	k, err := h.service.CreateAPIKey(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleServiceError(w, err, "api key")
		return
	}
	core.Created(w, k)
}

func (h *Handler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	k, err := h.service.RevokeAPIKey(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "keyID"))
	if err != nil {
		core.HandleServiceError(w, err, "api key")
		return
	}
	core.OK(w, k)
}

func (h *Handler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListWebhooks(r.Context())
	if err != nil {
		core.HandleServiceError(w, err, "webhook")
		return
	}
	core.OK(w, out)
}

func (h *Handler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	hook, err := h.service.GetWebhook(r.Context(), chi.URLParam(r, "webhookID"))
	if err != nil {
		core.HandleServiceError(w, err, "webhook")
		return
	}
	core.OK(w, hook)
}

func (h *Handler) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if !h.decode(w, r, &req) {
		return
	}

	hook, err := h.service.CreateWebhook(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleServiceError(w, err, "webhook")
		return
	}
	core.Created(w, hook)
}

func (h *Handler) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if !h.decode(w, r, &req) {
		return
	}

	hook, err := h.service.UpdateWebhook(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "webhookID"), req)
	if err != nil {
		core.HandleServiceError(w, err, "webhook")
		return
	}
	core.OK(w, hook)
}

func (h *Handler) RotateWebhookSecret(w http.ResponseWriter, r *http.Request) {
	hook, err := h.service.RotateWebhookSecret(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "webhookID"))
	if err != nil {
		core.HandleServiceError(w, err, "webhook")
		return
	}
	core.OK(w, hook)
}

func (h *Handler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteWebhook(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "webhookID")); err != nil {
		core.HandleServiceError(w, err, "webhook")
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
