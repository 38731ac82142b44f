// AngelaMos | 2026
// service_test.go

package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/core/coretest"
	"github.com/carterperez-dev/gigmarket/internal/gig"
	"github.com/carterperez-dev/gigmarket/internal/journal/journaltest"
	"github.com/carterperez-dev/gigmarket/internal/payment"
)

const (
	buyer   = "buyer"
	seller  = "seller"
	support = "support"
	gigID   = "gig-1"
	secret  = "whsec_test"
)

type memRepo struct {
	mu     sync.Mutex
	orders map[string]*Order
	txs    map[string]*Transaction
}

func (m *memRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (m *memRepo) Lock(ctx context.Context, id string) (*Order, error) {
	return m.GetByID(ctx, id)
}

func (m *memRepo) SetStatus(ctx context.Context, id string, status Status, paidAt *time.Time) (*Order, error) {
	m.mu.Lock()
	if o, ok := m.orders[id]; ok {
		o.Status = status
		if paidAt != nil {
			o.PaidAt = paidAt
		}
	}
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

func (m *memRepo) List(_ context.Context, params ListParams) ([]Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if params.UserID != "" && !o.IsParty(params.UserID) {
			continue
		}
		if params.Role == "buyer" && o.BuyerID != params.UserID {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *memRepo) CreateTransaction(_ context.Context, t *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.txs[t.ProviderSessionID] = &cp
	return nil
}

func (m *memRepo) GetTransactionBySession(_ context.Context, id string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok {
		return nil, fmt.Errorf("get transaction: %w", core.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *memRepo) LockTransactionBySession(ctx context.Context, id string) (*Transaction, error) {
	return m.GetTransactionBySession(ctx, id)
}

func (m *memRepo) SetTransactionStatus(_ context.Context, id string, status TxStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txs {
		if t.ID == id {
			t.Status = status
			return nil
		}
	}
	return fmt.Errorf("set transaction status: %w", core.ErrNotFound)
}

func (m *memRepo) RefundTransactions(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txs {
		if t.OrderID == orderID && t.Status == TxCompleted {
			t.Status = TxRefunded
		}
	}
	return nil
}

func (m *memRepo) ListTransactions(_ context.Context, userID string, _ int) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Transaction
	for _, t := range m.txs {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memRepo) Totals(_ context.Context, userID string) (*Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var totals Totals
	for _, t := range m.txs {
		if t.UserID == userID && t.Status == TxCompleted {
			totals.SpentCents += t.AmountCents
		}
	}
	for _, o := range m.orders {
		if o.SellerID == userID && o.Status == StatusCompleted {
			totals.EarnedCents += o.AmountCents
		}
	}
	return &totals, nil
}

type gigStub map[string]*gig.Gig

func (g gigStub) GetForPurchase(_ context.Context, id string) (*gig.Gig, error) {
	if found, ok := g[id]; ok {
		return found, nil
	}
	return nil, core.NotFoundError("gig")
}

type fakeProvider struct {
	mu       sync.Mutex
	fail     error
	sessions map[string]*payment.Session
	created  []payment.CheckoutParams
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, params payment.CheckoutParams) (*payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return nil, p.fail
	}
	p.created = append(p.created, params)
	s := &payment.Session{
		ID:            fmt.Sprintf("cs_%d", len(p.created)),
		URL:           "https://pay.example/session",
		Status:        "open",
		PaymentStatus: "unpaid",
	}
	p.sessions[s.ID] = s
	return s, nil
}

func (p *fakeProvider) GetSession(_ context.Context, id string) (*payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return nil, payment.ErrProvider
	}
	cp := *s
	return &cp, nil
}

func (p *fakeProvider) complete(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[id].Status = "complete"
	p.sessions[id].PaymentStatus = "paid"
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	provider *fakeProvider
	journal  *journaltest.Recorder
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:     &memRepo{orders: map[string]*Order{}, txs: map[string]*Transaction{}},
		provider: &fakeProvider{sessions: map[string]*payment.Session{}},
		journal:  &journaltest.Recorder{},
		now:      time.Unix(1_760_000_000, 0).UTC(),
	}
	f.svc = NewService(ServiceConfig{
		DB:         &coretest.Tx{},
		Repository: func(core.DBTX) Repository { return f.repo },
		Journal:    f.journal.Factory(),
		Gigs: gigStub{gigID: {
			ID:         gigID,
			SellerID:   seller,
			Title:      "Logo design",
			PriceCents: 4999,
			Currency:   "usd",
			Status:     gig.StatusActive,
		}},
		Provider:      f.provider,
		WebhookSecret: secret,
		FrontendURL:   "https://app.example/",
		Now:           func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) checkout(t *testing.T) *CheckoutResponse {
	t.Helper()
	resp, err := f.svc.Checkout(context.Background(), buyer, CheckoutRequest{GigID: gigID})
	require.NoError(t, err)
	return resp
}

func (f *fixture) paidOrder(t *testing.T) string {
	t.Helper()
	resp := f.checkout(t)
	f.provider.complete(resp.SessionID)
	_, err := f.svc.VerifyPayment(context.Background(), Viewer{UserID: buyer}, resp.SessionID)
	require.NoError(t, err)
	return resp.OrderID
}

func TestCheckout(t *testing.T) {
	f := newFixture()

	resp := f.checkout(t)

	assert.Equal(t, "https://pay.example/session", resp.CheckoutURL)

	o := f.repo.orders[resp.OrderID]
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, seller, o.SellerID)
	assert.Equal(t, int64(4999), o.AmountCents)

	tx := f.repo.txs[resp.SessionID]
	require.NotNil(t, tx)
	assert.Equal(t, TxPending, tx.Status)
	assert.Equal(t, "fake", tx.Provider)

	require.Len(t, f.provider.created, 1)
	assert.Equal(t, "https://app.example/gigs/"+gigID, f.provider.created[0].CancelURL)
	assert.Equal(t, []string{"order.created", "order.checkout_started"}, f.journal.Actions())
}

func TestCheckout_OwnGig(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Checkout(context.Background(), seller, CheckoutRequest{GigID: gigID})

	assert.ErrorIs(t, err, core.ErrForbidden)
	assert.Empty(t, f.repo.orders)
}

func TestCheckout_ProviderFailureMarksOrder(t *testing.T) {
	f := newFixture()
	f.provider.fail = errors.New("connection refused")

	_, err := f.svc.Checkout(context.Background(), buyer, CheckoutRequest{GigID: gigID})

	assert.ErrorIs(t, err, core.ErrUpstream)
	require.Len(t, f.repo.orders, 1)
	for _, o := range f.repo.orders {
		assert.Equal(t, StatusPaymentFailed, o.Status)
	}
	assert.Empty(t, f.repo.txs)
	assert.Equal(t, "order.payment_failed", f.journal.Last().Action)
}

func TestVerifyPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	resp := f.checkout(t)

	o, err := f.svc.VerifyPayment(ctx, Viewer{UserID: buyer}, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)

	f.provider.complete(resp.SessionID)

	o, err = f.svc.VerifyPayment(ctx, Viewer{UserID: buyer}, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)
	require.NotNil(t, o.PaidAt)
	assert.True(t, o.PaidAt.Equal(f.now))
	assert.Equal(t, TxCompleted, f.repo.txs[resp.SessionID].Status)

	last := f.journal.Last()
	assert.Equal(t, "order.paid", last.Action)
	require.Len(t, last.Notify, 2)
	assert.Equal(t, "49.99 USD", last.Notify[0].Vars["amount"])

	entries := len(f.journal.Entries)
	o, err = f.svc.VerifyPayment(ctx, Viewer{UserID: buyer}, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Len(t, f.journal.Entries, entries)
}

func TestVerifyPayment_AfterBuyerCancelled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	resp := f.checkout(t)

	_, err := f.svc.SetStatus(ctx, Viewer{UserID: buyer}, resp.OrderID, StatusCancelled)
	require.NoError(t, err)

	f.provider.complete(resp.SessionID)

	o, err := f.svc.VerifyPayment(ctx, Viewer{UserID: buyer}, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Nil(t, o.PaidAt)
	assert.Equal(t, TxRefunded, f.repo.txs[resp.SessionID].Status)

	assert.NotContains(t, f.journal.Actions(), "order.paid")
	last := f.journal.Last()
	assert.Equal(t, "order.payment_refunded", last.Action)
	require.Len(t, last.Notify, 1)
	assert.Equal(t, buyer, last.Notify[0].UserID)

	wallet, err := f.svc.Wallet(ctx, buyer)
	require.NoError(t, err)
	assert.Zero(t, wallet.Totals.SpentCents)

	entries := len(f.journal.Entries)
	_, err = f.svc.VerifyPayment(ctx, Viewer{UserID: buyer}, resp.SessionID)
	require.NoError(t, err)
	assert.Len(t, f.journal.Entries, entries)
}

func TestVerifyPayment_OtherUser(t *testing.T) {
	f := newFixture()
	resp := f.checkout(t)

	_, err := f.svc.VerifyPayment(context.Background(), Viewer{UserID: seller}, resp.SessionID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.VerifyPayment(context.Background(), Viewer{UserID: buyer}, "cs_unknown")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestHandleWebhook(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	resp := f.checkout(t)

	payload := []byte(`{"id":"evt_1","type":"checkout.session.expired","data":{"object":{"id":"` +
		resp.SessionID + `","status":"expired","payment_status":"unpaid"}}}`)

	err := f.svc.HandleWebhook(ctx, payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	require.NoError(t, f.svc.HandleWebhook(ctx, payload, payment.SignWebhook(payload, secret, f.now)))

	assert.Equal(t, StatusPaymentFailed, f.repo.orders[resp.OrderID].Status)
	assert.Equal(t, TxFailed, f.repo.txs[resp.SessionID].Status)

	require.NoError(t, f.svc.HandleWebhook(ctx, payload, payment.SignWebhook(payload, secret, f.now)))
	assert.Equal(t, "order.payment_failed", f.journal.Last().Action)
}

func TestHandleWebhook_UnknownSessionAcknowledged(t *testing.T) {
	f := newFixture()
	payload := []byte(`{"id":"evt_9","type":"checkout.session.completed","data":{"object":{"id":"cs_ghost","payment_status":"paid"}}}`)

	err := f.svc.HandleWebhook(context.Background(), payload, payment.SignWebhook(payload, secret, f.now))

	assert.NoError(t, err)
}

func TestSetStatus_Lifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.paidOrder(t)

	_, err := f.svc.SetStatus(ctx, Viewer{UserID: buyer}, id, StatusInProgress)
	assert.ErrorIs(t, err, core.ErrForbidden)

	o, err := f.svc.SetStatus(ctx, Viewer{UserID: seller}, id, StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, o.Status)

	_, err = f.svc.SetStatus(ctx, Viewer{UserID: buyer}, id, StatusCompleted)
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = f.svc.SetStatus(ctx, Viewer{UserID: seller}, id, StatusDelivered)
	require.NoError(t, err)

	o, err = f.svc.SetStatus(ctx, Viewer{UserID: buyer}, id, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, o.Status)

	last := f.journal.Last()
	require.Len(t, last.Notify, 1)
	assert.Equal(t, seller, last.Notify[0].UserID)

	wallet, err := f.svc.Wallet(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(4999), wallet.Totals.EarnedCents)
	assert.Empty(t, wallet.Transactions)
}

func TestSetStatus_Guards(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.paidOrder(t)

	_, err := f.svc.SetStatus(ctx, Viewer{UserID: "stranger"}, id, StatusCancelled)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.SetStatus(ctx, Viewer{UserID: buyer}, id, StatusDisputed)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = f.svc.SetStatus(ctx, Viewer{UserID: buyer}, id, StatusCancelled)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestSetStatus_StaffRefund(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.paidOrder(t)

	o, err := f.svc.SetStatus(ctx, Viewer{UserID: support, Staff: true}, id, StatusRefunded)
	require.NoError(t, err)

	assert.Equal(t, StatusRefunded, o.Status)
	for _, tx := range f.repo.txs {
		assert.Equal(t, TxRefunded, tx.Status)
	}
	assert.Len(t, f.journal.Last().Notify, 2)
}

func TestDisputeHooks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.paidOrder(t)

	b, s, err := f.svc.Parties(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, buyer, b)
	assert.Equal(t, seller, s)

	err = f.svc.MarkDisputed(ctx, nil, id)
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = f.svc.SetStatus(ctx, Viewer{UserID: seller}, id, StatusInProgress)
	require.NoError(t, err)
	require.NoError(t, f.svc.MarkDisputed(ctx, nil, id))

	_, err = f.svc.SetStatus(ctx, Viewer{UserID: buyer}, id, StatusCompleted)
	assert.ErrorIs(t, err, core.ErrConflict)

	assert.ErrorIs(t, f.svc.SettleDispute(ctx, nil, id, "paid"), core.ErrInvalidInput)
	require.NoError(t, f.svc.SettleDispute(ctx, nil, id, string(StatusRefunded)))

	assert.Equal(t, StatusRefunded, f.repo.orders[id].Status)
	assert.ErrorIs(t, f.svc.SettleDispute(ctx, nil, id, string(StatusCompleted)), core.ErrConflict)

	_, _, err = f.svc.Parties(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
