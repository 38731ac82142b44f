// AngelaMos | 2026
// service.go

package settings

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/journal"
)

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_.]{1,63}$`)

type ServiceConfig struct {
	DB         core.Transactor
	Repository func(core.DBTX) Repository
	Journal    journal.Factory
}

type Service struct {
	db      core.Transactor
	repo    func(core.DBTX) Repository
	journal journal.Factory
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:      cfg.DB,
		repo:    cfg.Repository,
		journal: cfg.Journal,
	}
	if s.repo == nil {
		s.repo = NewRepository
	}
	if s.journal == nil {
		s.journal = journal.New
	}
	return s
}

func (s *Service) ListSettings(ctx context.Context) ([]Setting, error) {
	out, err := s.repo(s.db.Conn()).ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Setting{}
	}
	return out, nil
}

func (s *Service) GetSetting(ctx context.Context, key string) (*Setting, error) {
	setting, err := s.repo(s.db.Conn()).GetSetting(ctx, key)
	if err != nil {
		return nil, notFound(err, "setting")
	}
	return setting, nil
}

func (s *Service) PutSetting(ctx context.Context, actorID, key string, req SettingRequest) (*Setting, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !keyPattern.MatchString(key) {
		return nil, core.ValidationError("key must be 2-64 lowercase letters, digits, dots or underscores")
	}
	if !json.Valid(req.Value) {
		return nil, core.ValidationError("value must be valid JSON")
	}

	setting := &Setting{
		Key:         key,
		Value:       core.RawJSON(req.Value),
		Description: strings.TrimSpace(req.Description),
	}
	if actorID != "" {
		setting.UpdatedBy = &actorID
	}

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).PutSetting(ctx, setting); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "settings.updated", "system_setting", key,
			map[string]any{"value": json.RawMessage(req.Value)})
	})
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func (s *Service) DeleteSetting(ctx context.Context, actorID, key string) error {
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).DeleteSetting(ctx, key); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "settings.deleted", "system_setting", key, nil)
	})
	return notFound(err, "setting")
}

// CreateAPIKey stores only the key hash. The plaintext is in the result and
// cannot be recovered later.
func (s *Service) CreateAPIKey(ctx context.Context, actorID string, req CreateAPIKeyRequest) (*APIKeyCreated, error) {
	plaintext, prefix, err := core.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	k := &APIKey{
		ID:      uuid.New().String(),
		Name:    strings.TrimSpace(req.Name),
		Prefix:  prefix,
		KeyHash: core.HashToken(plaintext),
		Scopes:  core.StringList(req.Scopes),
	}
	if k.Scopes == nil {
		k.Scopes = core.StringList{}
	}
	if actorID != "" {
		k.CreatedBy = &actorID
	}

	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).CreateAPIKey(ctx, k); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "settings.api_key_created", "api_key", k.ID,
			map[string]any{"name": k.Name, "prefix": k.Prefix})
	})
	if err != nil {
		return nil, err
	}

	return &APIKeyCreated{APIKey: *k, Key: plaintext}, nil
}

func (s *Service) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	out, err := s.repo(s.db.Conn()).ListAPIKeys(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []APIKey{}
	}
	return out, nil
}

func (s *Service) RevokeAPIKey(ctx context.Context, actorID, id string) (*APIKey, error) {
	var k *APIKey

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		var err error
		if k, err = s.repo(tx).RevokeAPIKey(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "settings.api_key_revoked", "api_key", id,
			map[string]any{"prefix": k.Prefix})
	})
	if err != nil {
		return nil, notFound(err, "api key")
	}
	return k, nil
}

func (s *Service) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	out, err := s.repo(s.db.Conn()).ListWebhooks(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Webhook{}
	}
	return out, nil
}

func (s *Service) GetWebhook(ctx context.Context, id string) (*Webhook, error) {
	w, err := s.repo(s.db.Conn()).GetWebhook(ctx, id)
	if err != nil {
		return nil, notFound(err, "webhook")
	}
	return w, nil
}

func (s *Service) CreateWebhook(ctx context.Context, actorID string, req WebhookRequest) (*WebhookSecret, error) {
	secret, err := newWebhookSecret()
	if err != nil {
		return nil, err
	}

	w := &Webhook{
		ID:       uuid.New().String(),
		URL:      strings.TrimSpace(req.URL),
		Events:   normalizeEvents(req.Events),
		Secret:   secret,
		IsActive: true,
	}
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}
	if actorID != "" {
		w.CreatedBy = &actorID
	}

	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).CreateWebhook(ctx, w); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "settings.webhook_created", "webhook", w.ID,
			map[string]any{"url": w.URL, "events": []string(w.Events)})
	})
	if err != nil {
		return nil, err
	}

	return &WebhookSecret{Webhook: *w, Secret: secret}, nil
}

func (s *Service) UpdateWebhook(ctx context.Context, actorID, id string, req WebhookRequest) (*Webhook, error) {
	var w *Webhook

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		var err error
		if w, err = repo.GetWebhook(ctx, id); err != nil {
			return err
		}
		w.URL = strings.TrimSpace(req.URL)
		w.Events = normalizeEvents(req.Events)
		if req.IsActive != nil {
			w.IsActive = *req.IsActive
		}
		if err := repo.UpdateWebhook(ctx, w); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "settings.webhook_updated", "webhook", id,
			map[string]any{"url": w.URL, "events": []string(w.Events), "is_active": w.IsActive})
	})
	if err != nil {
		return nil, notFound(err, "webhook")
	}
	return w, nil
}

// RotateWebhookSecret replaces the signing secret and returns the new one.
func (s *Service) RotateWebhookSecret(ctx context.Context, actorID, id string) (*WebhookSecret, error) {
	secret, err := newWebhookSecret()
	if err != nil {
		return nil, err
	}

	var w *Webhook
	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		var err error
		if w, err = repo.GetWebhook(ctx, id); err != nil {
			return err
		}
		w.Secret = secret
		if err := repo.UpdateWebhook(ctx, w); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "settings.webhook_secret_rotated", "webhook", id, nil)
	})
	if err != nil {
		return nil, notFound(err, "webhook")
	}

	return &WebhookSecret{Webhook: *w, Secret: secret}, nil
}

func (s *Service) DeleteWebhook(ctx context.Context, actorID, id string) error {
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).DeleteWebhook(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "settings.webhook_deleted", "webhook", id, nil)
	})
	return notFound(err, "webhook")
}

func (s *Service) record(
	ctx context.Context,
	tx core.DBTX,
	actorID, action, entity, entityID string,
	details map[string]any,
) error {
	return s.journal(tx).Record(ctx, journal.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entity,
		EntityID:   entityID,
		Details:    details,
	})
}

func newWebhookSecret() (string, error) {
	token, err := core.GenerateSecureToken(24)
	if err != nil {
		return "", err
	}
	return "whsec_" + token, nil
}

func normalizeEvents(events []string) core.StringList {
	out := make(core.StringList, 0, len(events))
	seen := make(map[string]bool, len(events))
	for _, e := range events {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func notFound(err error, resource string) error {
	if err != nil && !core.IsAppError(err) && errors.Is(err, core.ErrNotFound) {
		return core.NotFoundError(resource)
	}
	return err
}
