// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/gigmarket/internal/config"
)

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "gigmarket"

type Redis struct {
	Client *redis.Client
}

func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	r := &Redis{Client: redis.NewClient(opts)}
	if err := r.Ping(ctx); err != nil {
		_ = r.Client.Close() //nolint:errcheck // already failing
		return nil, err
	}

	r.registerPoolGauges()
	return r, nil
}

func (r *Redis) Close() error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}

func (r *Redis) registerPoolGauges() {
	gauge := func(name, help string, read func(*redis.PoolStats) uint32) {
		registerCollector(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: KeyPrefix, Subsystem: "redis_pool", Name: name, Help: help},
			func() float64 { return float64(read(r.Client.PoolStats())) },
		))
	}

	gauge("total_conns", "Open connections in the pool.", func(s *redis.PoolStats) uint32 { return s.TotalConns })
	gauge("idle_conns", "Idle connections in the pool.", func(s *redis.PoolStats) uint32 { return s.IdleConns })
	gauge("timeouts", "Times a caller waited past PoolTimeout.", func(s *redis.PoolStats) uint32 { return s.Timeouts })
}

// RedisKey joins parts under the service prefix: RedisKey("rl", id)
// yields "gigmarket:rl:<id>".
func RedisKey(parts ...string) string {
	return KeyPrefix + ":" + strings.Join(parts, ":")
}
