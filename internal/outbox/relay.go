// AngelaMos | 2026
// relay.go

package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/carterperez-dev/gigmarket/internal/config"
	"github.com/carterperez-dev/gigmarket/internal/core"
)

var (
	relayPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gigmarket_outbox_published_total",
		Help: "Outbox events published to the broker.",
	})
	relayFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gigmarket_outbox_failed_total",
		Help: "Outbox publish attempts that failed.",
	})
)

type RelayConfig struct {
	DB         core.Transactor
	Repository func(core.DBTX) Repository
	// Publisher is the broker. An event stays pending until it accepts it.
	Publisher Publisher
	// AfterCommit receives each published event once the batch commits,
	// outside the transaction. Its errors are logged and never retried.
	AfterCommit   Publisher
	SubjectPrefix string
	Outbox        config.OutboxConfig
	Logger        *slog.Logger
}

type Relay struct {
	cfg RelayConfig
}

func NewRelay(cfg RelayConfig) *Relay {
	if cfg.Repository == nil {
		cfg.Repository = NewRepository
	}
	if cfg.Outbox.BatchSize <= 0 {
		cfg.Outbox.BatchSize = 100
	}
	if cfg.Outbox.MaxAttempts <= 0 {
		cfg.Outbox.MaxAttempts = 10
	}
	return &Relay{cfg: cfg}
}

func (r *Relay) Subject(eventType string) string {
	prefix := strings.TrimSuffix(r.cfg.SubjectPrefix, ".")
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Outbox.PollInterval)
	defer ticker.Stop()

	r.cfg.Logger.Info("outbox relay started",
		"interval", r.cfg.Outbox.PollInterval,
		"batch_size", r.cfg.Outbox.BatchSize,
	)

	for {
		select {
		case <-ctx.Done():
			r.cfg.Logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.cfg.Logger.Error("outbox relay batch failed", "error", err)
			}
		}
	}
}

type published struct {
	id      string
	subject string
	body    []byte
}

// RelayOnce publishes one batch and reports how many events went out.
// Failed events stay pending with attempts bumped.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var sent []published

	err := r.cfg.DB.InTx(ctx, func(tx core.DBTX) error {
		sent = sent[:0]
		repo := r.cfg.Repository(tx)

		events, err := repo.FetchPending(ctx, r.cfg.Outbox.BatchSize, r.cfg.Outbox.MaxAttempts)
		if err != nil {
			return err
		}

		for i := range events {
			e := &events[i]

			body, err := json.Marshal(e.Envelope())
			if err != nil {
				return err
			}
			subject := r.Subject(e.EventType)

			if pubErr := r.cfg.Publisher.Publish(ctx, subject, body); pubErr != nil {
				relayFailed.Inc()
				r.cfg.Logger.Warn("outbox publish failed",
					"event_id", e.ID,
					"event_type", e.EventType,
					"attempts", e.Attempts+1,
					"error", pubErr,
				)
				if err := repo.MarkFailed(ctx, e.ID, pubErr.Error()); err != nil {
					return err
				}
				continue
			}

			if err := repo.MarkPublished(ctx, e.ID); err != nil {
				return err
			}
			sent = append(sent, published{id: e.ID, subject: subject, body: body})
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	relayPublished.Add(float64(len(sent)))
	r.afterCommit(ctx, sent)

	return len(sent), nil
}

func (r *Relay) afterCommit(ctx context.Context, sent []published) {
	if r.cfg.AfterCommit == nil {
		return
	}
	for _, p := range sent {
		if err := r.cfg.AfterCommit.Publish(ctx, p.subject, p.body); err != nil {
			r.cfg.Logger.Warn("post-commit publish failed",
				"event_id", p.id,
				"subject", p.subject,
				"error", err,
			)
		}
	}
}
