// AngelaMos | 2026
// stripe.go

package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/carterperez-dev/gigmarket/internal/config"
)

const defaultAPIBase = "https://api.stripe.com"

type StripeClient struct {
	secretKey  string
	apiBase    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewStripeClient(cfg config.PaymentConfig, logger *slog.Logger) *StripeClient {
	if logger == nil {
		logger = slog.Default()
	}

	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = defaultAPIBase
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &StripeClient{
		secretKey:  cfg.SecretKey,
		apiBase:    base,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "stripe"),
	}
}

func (c *StripeClient) Name() string {
	return "stripe"
}

func (c *StripeClient) CreateCheckoutSession(
	ctx context.Context,
	params CheckoutParams,
) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("client_reference_id", params.OrderID)
	form.Set("metadata[order_id]", params.OrderID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(params.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", params.GigTitle)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.apiBase+"/v1/checkout/sessions",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", "checkout-"+params.OrderID)

	return c.do(req)
}

func (c *StripeClient) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.apiBase+"/v1/checkout/sessions/"+url.PathEscape(sessionID),
		http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}

	return c.do(req)
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *StripeClient) do(req *http.Request) (*Session, error) {
	req.SetBasicAuth(c.secretKey, "")

	resp, err := c.httpClient.Do(req) //nolint:gosec // base URL comes from config
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrProvider, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)

		c.logger.Warn("provider request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"error_type", apiErr.Error.Type,
		)
		return nil, fmt.Errorf("%w: http %d: %s", ErrProvider, resp.StatusCode, apiErr.Error.Message)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", ErrProvider, err)
	}

	return &session, nil
}

var _ Provider = (*StripeClient)(nil)
