// AngelaMos | 2026
// webhook.go

package payment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

// SignatureTolerance bounds how old a signed webhook timestamp may be.
const SignatureTolerance = 5 * time.Minute

type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object Session `json:"object"`
	} `json:"data"`
}

// VerifyWebhook checks a "t=<unix>,v1=<hex>" signature header against
// HMAC-SHA256("<t>.<payload>") and decodes the event.
func VerifyWebhook(payload []byte, header, secret string, now time.Time) (*Event, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}

	var (
		timestamp  string
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return nil, fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	signedAt := time.Unix(unix, 0)
	if now.Sub(signedAt) > SignatureTolerance || signedAt.Sub(now) > SignatureTolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	signed := append([]byte(timestamp+"."), payload...)

	valid := false
	for _, sig := range signatures {
		if core.VerifySignature(secret, signed, sig) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}

	return &event, nil
}

// SignWebhook builds the header VerifyWebhook accepts.
func SignWebhook(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + core.SignPayload(secret, append([]byte(ts+"."), payload...))
}
