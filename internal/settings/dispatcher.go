// AngelaMos | 2026
// dispatcher.go

package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/outbox"
)

var deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gigmarket_webhook_deliveries_total",
	Help: "Outgoing webhook deliveries by result.",
}, []string{"result"})

const (
	SignatureHeader = "X-Gigmarket-Signature"
	EventHeader     = "X-Gigmarket-Event"
	DeliveryHeader  = "X-Gigmarket-Delivery"
)

// Dispatcher posts outbox events to subscribed webhooks. The relay runs it
// after each batch commits, so no row locks are held during delivery.
// Endpoint failures are logged and counted; deliveries are not retried.
type Dispatcher struct {
	db         core.Transactor
	repo       func(core.DBTX) Repository
	httpClient *http.Client
	logger     *slog.Logger
}

func NewDispatcher(db core.Transactor, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		db:         db,
		repo:       NewRepository,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "webhooks"),
	}
}

func (d *Dispatcher) Publish(ctx context.Context, _ string, data []byte) error {
	var env outbox.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	hooks, err := d.repo(d.db.Conn()).ListActiveWebhooks(ctx)
	if err != nil {
		return err
	}

	for i := range hooks {
		w := &hooks[i]
		if !w.Wants(env.EventType) {
			continue
		}
		if err := d.deliver(ctx, w, env, data); err != nil {
			deliveries.WithLabelValues("failed").Inc()
			d.logger.Warn("webhook delivery failed",
				"webhook_id", w.ID,
				"event_type", env.EventType,
				"event_id", env.ID,
				"error", err,
			)
			continue
		}
		deliveries.WithLabelValues("delivered").Inc()
	}

	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, w *Webhook, env outbox.Envelope, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, env.EventType)
	req.Header.Set(DeliveryHeader, env.ID)
	req.Header.Set(SignatureHeader, "sha256="+core.SignPayload(w.Secret, body))

	resp, err := d.httpClient.Do(req) //nolint:gosec // admin-registered URL
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}

var _ outbox.Publisher = (*Dispatcher)(nil)
