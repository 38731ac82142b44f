// AngelaMos | 2026
// webhook_test.go

package payment

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPayload = `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","status":"complete","payment_status":"paid"}}}`

func TestVerifyWebhook(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	header := SignWebhook([]byte(testPayload), "whsec", now)

	event, err := VerifyWebhook([]byte(testPayload), header, "whsec", now.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, EventCheckoutCompleted, event.Type)
	assert.Equal(t, "cs_1", event.Data.Object.ID)
	assert.Equal(t, SessionPaid, event.Data.Object.State())
}

func TestVerifyWebhook_Rejects(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	payload := []byte(testPayload)
	valid := SignWebhook(payload, "whsec", now)

	tests := []struct {
		name    string
		payload []byte
		header  string
		secret  string
		at      time.Time
	}{
		{"wrong secret", payload, valid, "other", now},
		{"tampered payload", []byte(`{"id":"evt_2"}`), valid, "whsec", now},
		{"stale", payload, valid, "whsec", now.Add(SignatureTolerance + time.Second)},
		{"missing signature", payload, "t=" + strconv.FormatInt(now.Unix(), 10), "whsec", now},
		{"garbage", payload, "nonsense", "whsec", now},
		{"no secret", payload, valid, "", now},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := VerifyWebhook(tc.payload, tc.header, tc.secret, tc.at)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}
