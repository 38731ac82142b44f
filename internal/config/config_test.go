// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"DATABASE_URL":                    "database.url",
		"STRIPE_WEBHOOK_SECRET":           "payment.webhook_secret",
		"GIGMARKET_RATE_LIMIT__BURST":     "rate_limit.burst",
		"GIGMARKET_OUTBOX__POLL_INTERVAL": "outbox.poll_interval",
		"GIGMARKET_APP__FRONTEND_URL":     "app.frontend_url",
		"GIGMARKET_":                      "",
		"HOME":                            "",
		"GIGMARKETX_DATABASE__URL":        "",
	}

	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestLoad_LayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
rate_limit:
  checkout_requests: 3
outbox:
  poll_interval: 5s
`), 0o600))

	t.Setenv("DATABASE_URL", "postgres://localhost/gig")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("GIGMARKET_SERVER__PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 3, cfg.RateLimit.CheckoutRequests)
	assert.Equal(t, 5*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, "0.0.0.0:9100", cfg.Server.Address())
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	c := &Config{App: AppConfig{Environment: "production"}}

	err := c.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "database.url is required")
	assert.Contains(t, msg, "redis.url is required")
	assert.Contains(t, msg, "payment.secret_key is required in production")
}

func TestValidate_RejectsWildcardWithCredentials(t *testing.T) {
	c := &Config{CORS: CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}}

	assert.ErrorContains(t, c.Validate(), "wildcard origin")
}
