// AngelaMos | 2026
// entity.go

package order

import (
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusPaid          Status = "paid"
	StatusPaymentFailed Status = "payment_failed"
	StatusInProgress    Status = "in_progress"
	StatusDelivered     Status = "delivered"
	StatusCompleted     Status = "completed"
	StatusDisputed      Status = "disputed"
	StatusCancelled     Status = "cancelled"
	StatusRefunded      Status = "refunded"
)

var transitions = core.Transitions[Status]{
	StatusPending:       {},
	StatusPaid:          {StatusPending},
	StatusPaymentFailed: {StatusPending},
	StatusInProgress:    {StatusPaid, StatusDelivered},
	StatusDelivered:     {StatusInProgress},
	StatusCompleted:     {StatusDelivered, StatusDisputed},
	StatusDisputed:      {StatusInProgress, StatusDelivered},
	StatusCancelled:     {StatusPending, StatusPaid},
	StatusRefunded:      {StatusPaid, StatusDisputed},
}

type Order struct {
	ID           string     `db:"id"           json:"id"`
	GigID        string     `db:"gig_id"       json:"gig_id"`
	BuyerID      string     `db:"buyer_id"     json:"buyer_id"`
	SellerID     string     `db:"seller_id"    json:"seller_id"`
	AmountCents  int64      `db:"amount_cents" json:"amount_cents"`
	Currency     string     `db:"currency"     json:"currency"`
	Requirements string     `db:"requirements" json:"requirements"`
	Status       Status     `db:"status"       json:"status"`
	PaidAt       *time.Time `db:"paid_at"      json:"paid_at"`
	CreatedAt    time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"   json:"updated_at"`
}

func (o *Order) IsParty(userID string) bool {
	return userID != "" && (o.BuyerID == userID || o.SellerID == userID)
}

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
	TxRefunded  TxStatus = "refunded"
)

type Transaction struct {
	ID                string    `db:"id"                  json:"id"`
	OrderID           string    `db:"order_id"            json:"order_id"`
	UserID            string    `db:"user_id"             json:"user_id"`
	AmountCents       int64     `db:"amount_cents"        json:"amount_cents"`
	Currency          string    `db:"currency"            json:"currency"`
	Provider          string    `db:"provider"            json:"provider"`
	ProviderSessionID string    `db:"provider_session_id" json:"provider_session_id"`
	Status            TxStatus  `db:"status"              json:"status"`
	CreatedAt         time.Time `db:"created_at"          json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"          json:"updated_at"`
}

func (t *Transaction) IsSettled() bool {
	return t.Status != TxPending
}

// Totals summarises a user's wallet.
type Totals struct {
	SpentCents           int64 `db:"spent_cents"            json:"spent_cents"`
	EarnedCents          int64 `db:"earned_cents"           json:"earned_cents"`
	PendingEarningsCents int64 `db:"pending_earnings_cents" json:"pending_earnings_cents"`
}
