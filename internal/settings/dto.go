// AngelaMos | 2026
// dto.go

package settings

import (
	"encoding/json"
)

type SettingRequest struct {
	Value       json.RawMessage `json:"value"       validate:"required"`
	Description string          `json:"description" validate:"max=500"`
}

type CreateAPIKeyRequest struct {
	Name   string   `json:"name"   validate:"required,min=1,max=100"`
	Scopes []string `json:"scopes" validate:"max=20,dive,min=1,max=64"`
}

// APIKeyCreated carries the plaintext key. It is only ever returned here.
type APIKeyCreated struct {
	APIKey
	Key string `json:"key"`
}

type WebhookRequest struct {
	URL      string   `json:"url"       validate:"required,url,max=2048"`
	Events   []string `json:"events"    validate:"required,min=1,max=50,dive,min=1,max=100"`
	IsActive *bool    `json:"is_active"`
}

// WebhookSecret carries a signing secret on create and rotate.
type WebhookSecret struct {
	Webhook
	Secret string `json:"secret"`
}
