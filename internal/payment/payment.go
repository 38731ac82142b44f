// AngelaMos | 2026
// payment.go

// Package payment talks to the card processor that backs checkout.
package payment

import (
	"context"
	"errors"
)

var (
	ErrProvider         = errors.New("payment provider error")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Session payment states as reported by the provider.
const (
	SessionPaid    = "paid"
	SessionUnpaid  = "unpaid"
	SessionExpired = "expired"
)

// Webhook event types the order service acts on.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

type CheckoutParams struct {
	OrderID     string
	GigTitle    string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// State folds the provider's two status fields into paid, expired or unpaid.
func (s *Session) State() string {
	switch {
	case s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required":
		return SessionPaid
	case s.Status == "expired":
		return SessionExpired
	default:
		return SessionUnpaid
	}
}

type Provider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}
