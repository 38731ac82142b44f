// AngelaMos | 2026
// service.go

package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/gig"
	"github.com/carterperez-dev/gigmarket/internal/journal"
	"github.com/carterperez-dev/gigmarket/internal/notification"
	"github.com/carterperez-dev/gigmarket/internal/payment"
)

var (
	checkouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmarket_checkouts_total",
		Help: "Checkout attempts by result.",
	}, []string{"result"})
	settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmarket_payment_settlements_total",
		Help: "Provider sessions settled by outcome and source.",
	}, []string{"outcome", "source"})
)

const (
	entityType       = "order"
	walletTxLimit    = 50
	settleFromVerify = "verify"
	settleFromHook   = "webhook"
)

// Gigs resolves a gig that can be bought. Implemented by gig.Service.
type Gigs interface {
	GetForPurchase(ctx context.Context, id string) (*gig.Gig, error)
}

// Viewer is the caller. Staff may see and move every order.
type Viewer struct {
	UserID string
	Staff  bool
}

type ServiceConfig struct {
	DB            core.Transactor
	Repository    func(core.DBTX) Repository
	Journal       journal.Factory
	Gigs          Gigs
	Provider      payment.Provider
	WebhookSecret string
	FrontendURL   string
	Now           func() time.Time
	Logger        *slog.Logger
}

type Service struct {
	db            core.Transactor
	repo          func(core.DBTX) Repository
	journal       journal.Factory
	gigs          Gigs
	provider      payment.Provider
	webhookSecret string
	frontendURL   string
	now           func() time.Time
	logger        *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:            cfg.DB,
		repo:          cfg.Repository,
		journal:       cfg.Journal,
		gigs:          cfg.Gigs,
		provider:      cfg.Provider,
		webhookSecret: cfg.WebhookSecret,
		frontendURL:   strings.TrimRight(cfg.FrontendURL, "/"),
		now:           cfg.Now,
		logger:        cfg.Logger,
	}
	if s.repo == nil {
		s.repo = NewRepository
	}
	if s.journal == nil {
		s.journal = journal.New
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Checkout creates a pending order and a provider checkout session for it.
// A provider failure leaves the order in payment_failed.
func (s *Service) Checkout(ctx context.Context, buyerID string, req CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := core.StartSpan(ctx, "order.Checkout", attribute.String("gig.id", req.GigID))
	defer span.End()

	g, err := s.gigs.GetForPurchase(ctx, req.GigID)
	if err != nil {
		return nil, err
	}
	if g.SellerID == buyerID {
		checkouts.WithLabelValues("rejected").Inc()
		return nil, core.ForbiddenError("cannot buy your own gig")
	}

	o := &Order{
		ID:           uuid.New().String(),
		GigID:        g.ID,
		BuyerID:      buyerID,
		SellerID:     g.SellerID,
		AmountCents:  g.PriceCents,
		Currency:     g.Currency,
		Requirements: strings.TrimSpace(req.Requirements),
		Status:       StatusPending,
	}

	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).Create(ctx, o); err != nil {
			return err
		}
		return s.record(ctx, tx, buyerID, "order.created", o.ID,
			map[string]any{"gig_id": g.ID, "amount_cents": o.AmountCents, "currency": o.Currency}, nil)
	})
	if err != nil {
		return nil, err
	}
	core.AddSpanEvent(ctx, "order.created", attribute.String("order.id", o.ID))

	session, err := s.provider.CreateCheckoutSession(ctx, payment.CheckoutParams{
		OrderID:     o.ID,
		GigTitle:    g.Title,
		AmountCents: o.AmountCents,
		Currency:    o.Currency,
		SuccessURL:  s.frontendURL + "/orders/" + o.ID + "?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.frontendURL + "/gigs/" + g.ID,
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		checkouts.WithLabelValues("provider_error").Inc()
		s.logger.Error("checkout session failed", "order_id", o.ID, "error", err)

		if markErr := s.markCheckoutFailed(ctx, o); markErr != nil {
			s.logger.Error("mark order payment_failed", "order_id", o.ID, "error", markErr)
		}
		return nil, core.UpstreamError("payment provider unavailable")
	}

	t := &Transaction{
		ID:                uuid.New().String(),
		OrderID:           o.ID,
		UserID:            buyerID,
		AmountCents:       o.AmountCents,
		Currency:          o.Currency,
		Provider:          s.provider.Name(),
		ProviderSessionID: session.ID,
		Status:            TxPending,
	}

	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).CreateTransaction(ctx, t); err != nil {
			return err
		}
		return s.record(ctx, tx, buyerID, "order.checkout_started", o.ID,
			map[string]any{"session_id": session.ID, "provider": t.Provider}, nil)
	})
	if err != nil {
		return nil, err
	}

	checkouts.WithLabelValues("started").Inc()
	return &CheckoutResponse{
		OrderID:     o.ID,
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

func (s *Service) markCheckoutFailed(ctx context.Context, o *Order) error {
	return s.db.InTx(ctx, func(tx core.DBTX) error {
		if _, err := s.repo(tx).SetStatus(ctx, o.ID, StatusPaymentFailed, nil); err != nil {
			return err
		}
		return s.record(ctx, tx, "", "order.payment_failed", o.ID,
			map[string]any{"reason": "checkout_session"}, nil)
	})
}

// VerifyPayment asks the provider for the session state and settles the
// order. Settled transactions are returned unchanged.
func (s *Service) VerifyPayment(ctx context.Context, viewer Viewer, sessionID string) (*Order, error) {
	repo := s.repo(s.db.Conn())

	t, err := repo.GetTransactionBySession(ctx, sessionID)
	if err != nil {
		return nil, notFound(err, "transaction")
	}
	if t.UserID != viewer.UserID && !viewer.Staff {
		return nil, core.NotFoundError("transaction")
	}
	if t.IsSettled() {
		o, err := repo.GetByID(ctx, t.OrderID)
		return o, notFound(err, "order")
	}

	session, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		s.logger.Error("fetch checkout session", "session_id", sessionID, "error", err)
		return nil, core.UpstreamError("payment provider unavailable")
	}

	return s.settle(ctx, sessionID, session.State(), settleFromVerify)
}

// HandleWebhook verifies and applies a provider event. Unknown sessions and
// event types are acknowledged without changes.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := payment.VerifyWebhook(payload, signature, s.webhookSecret, s.now())
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return core.ValidationError("invalid webhook signature")
		}
		return core.ValidationError("invalid webhook payload")
	}

	var state string
	switch event.Type {
	case payment.EventCheckoutCompleted:
		state = event.Data.Object.State()
	case payment.EventCheckoutExpired:
		state = payment.SessionExpired
	default:
		s.logger.Debug("ignoring webhook event", "type", event.Type, "event_id", event.ID)
		return nil
	}

	_, err = s.settle(ctx, event.Data.Object.ID, state, settleFromHook)
	if core.IsNotFound(err) {
		s.logger.Warn("webhook for unknown session", "session_id", event.Data.Object.ID, "event_id", event.ID)
		return nil
	}
	return err
}

func (s *Service) settle(ctx context.Context, sessionID, state, source string) (*Order, error) {
	var o *Order

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		t, err := repo.LockTransactionBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		o, err = repo.Lock(ctx, t.OrderID)
		if err != nil {
			return err
		}
		if t.IsSettled() || state == payment.SessionUnpaid {
			return nil
		}

		switch state {
		case payment.SessionPaid:
			if !transitions.Allowed(o.Status, StatusPaid) {
				return s.refundLatePayment(ctx, tx, t, o, source)
			}
			if err := repo.SetTransactionStatus(ctx, t.ID, TxCompleted); err != nil {
				return err
			}
			now := s.now().UTC()
			if o, err = repo.SetStatus(ctx, o.ID, StatusPaid, &now); err != nil {
				return err
			}
			settlements.WithLabelValues("paid", source).Inc()
			return s.record(ctx, tx, "", "order.paid", o.ID,
				map[string]any{"session_id": sessionID, "source": source},
				[]notification.Notice{
					{
						UserID:   o.SellerID,
						Type:     "order",
						Template: "order.new_sale",
						Vars:     map[string]string{"amount": formatAmount(o)},
						Title:    "New order",
						Message:  "You have a new paid order for {{amount}}.",
						Link:     "/orders/" + o.ID,
					},
					{
						UserID:   o.BuyerID,
						Type:     "order",
						Template: "order.payment_received",
						Vars:     map[string]string{"amount": formatAmount(o)},
						Title:    "Payment received",
						Message:  "Your payment of {{amount}} was received.",
						Link:     "/orders/" + o.ID,
					},
				},
			)

		case payment.SessionExpired:
			if err := repo.SetTransactionStatus(ctx, t.ID, TxFailed); err != nil {
				return err
			}
			if transitions.Allowed(o.Status, StatusPaymentFailed) {
				if o, err = repo.SetStatus(ctx, o.ID, StatusPaymentFailed, nil); err != nil {
					return err
				}
			}
			settlements.WithLabelValues("expired", source).Inc()
			return s.record(ctx, tx, "", "order.payment_failed", o.ID,
				map[string]any{"session_id": sessionID, "source": source},
				[]notification.Notice{{
					UserID:   o.BuyerID,
					Type:     "order",
					Template: "order.payment_failed",
					Title:    "Payment not completed",
					Message:  "Your checkout session expired before payment.",
					Link:     "/orders/" + o.ID,
				}},
			)
		}

		return fmt.Errorf("unknown session state %q", state)
	})
	if err != nil {
		return nil, notFound(err, "transaction")
	}
	return o, nil
}

// refundLatePayment books a payment that arrived after the order left
// pending, e.g. the buyer cancelled before finishing checkout. The money is
// owed back, so the transaction is recorded as refunded and no sale is
// announced.
func (s *Service) refundLatePayment(ctx context.Context, tx core.DBTX, t *Transaction, o *Order, source string) error {
	if err := s.repo(tx).SetTransactionStatus(ctx, t.ID, TxRefunded); err != nil {
		return err
	}
	settlements.WithLabelValues("refunded", source).Inc()
	s.logger.Warn("payment for order that can no longer be paid",
		"order_id", o.ID,
		"order_status", o.Status,
		"session_id", t.ProviderSessionID,
	)

	return s.record(ctx, tx, "", "order.payment_refunded", o.ID,
		map[string]any{"session_id": t.ProviderSessionID, "source": source, "order_status": o.Status},
		[]notification.Notice{{
			UserID:   o.BuyerID,
			Type:     "order",
			Template: "order.payment_refunded",
			Vars:     map[string]string{"amount": formatAmount(o), "status": string(o.Status)},
			Title:    "Payment refunded",
			Message:  "Your payment of {{amount}} arrived after the order was {{status}} and will be refunded.",
			Link:     "/orders/" + o.ID,
		}},
	)
}

func (s *Service) Get(ctx context.Context, viewer Viewer, id string) (*Order, error) {
	o, err := s.repo(s.db.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "order")
	}
	if !o.IsParty(viewer.UserID) && !viewer.Staff {
		return nil, core.NotFoundError("order")
	}
	return o, nil
}

func (s *Service) MyOrders(ctx context.Context, userID string, params ListParams) ([]Order, int, error) {
	params.UserID = userID
	return s.List(ctx, params)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Order, int, error) {
	out, total, err := s.repo(s.db.Conn()).List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	if out == nil {
		out = []Order{}
	}
	return out, total, nil
}

// SetStatus moves an order along its lifecycle. Sellers start and deliver
// work, buyers accept, request revisions or cancel unpaid orders, staff may
// make any allowed move. Disputed orders only move through dispute
// resolution.
func (s *Service) SetStatus(ctx context.Context, viewer Viewer, id string, to Status) (*Order, error) {
	var o *Order

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		current, err := repo.Lock(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsParty(viewer.UserID) && !viewer.Staff {
			return core.NotFoundError("order")
		}
		if to == StatusDisputed {
			return core.ValidationError("open a dispute to contest an order")
		}
		if current.Status == StatusDisputed {
			return core.ConflictError("order is under dispute; it settles when the dispute is resolved or closed")
		}
		if !canMove(current, viewer, to) {
			return core.ForbiddenError("you cannot move this order to " + string(to))
		}
		if err := transitions.Check(current.Status, to); err != nil {
			return err
		}

		if o, err = repo.SetStatus(ctx, id, to, nil); err != nil {
			return err
		}
		if to == StatusRefunded || (to == StatusCancelled && current.PaidAt != nil) {
			if err := repo.RefundTransactions(ctx, id); err != nil {
				return err
			}
		}

		return s.record(ctx, tx, viewer.UserID, "order.status_changed", id,
			map[string]any{"from": current.Status, "to": to},
			statusNotices(o, viewer.UserID),
		)
	})
	if err != nil {
		return nil, notFound(err, "order")
	}
	return o, nil
}

func canMove(o *Order, viewer Viewer, to Status) bool {
	if viewer.Staff {
		return true
	}

	switch viewer.UserID {
	case o.SellerID:
		return (to == StatusInProgress && o.Status == StatusPaid) || to == StatusDelivered
	case o.BuyerID:
		return to == StatusCompleted ||
			(to == StatusInProgress && o.Status == StatusDelivered) ||
			(to == StatusCancelled && o.Status == StatusPending)
	}
	return false
}

func statusNotices(o *Order, actorID string) []notification.Notice {
	var out []notification.Notice
	for _, userID := range []string{o.BuyerID, o.SellerID} {
		if userID == actorID {
			continue
		}
		out = append(out, notification.Notice{
			UserID:   userID,
			Type:     "order",
			Template: "order.status_changed",
			Vars:     map[string]string{"status": string(o.Status)},
			Title:    "Order updated",
			Message:  "Your order is now {{status}}.",
			Link:     "/orders/" + o.ID,
		})
	}
	return out
}

func (s *Service) Wallet(ctx context.Context, userID string) (*Wallet, error) {
	repo := s.repo(s.db.Conn())

	totals, err := repo.Totals(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := repo.ListTransactions(ctx, userID, walletTxLimit)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []Transaction{}
	}

	return &Wallet{Totals: *totals, Transactions: txs}, nil
}

// Parties returns the buyer and seller of an order.
func (s *Service) Parties(ctx context.Context, orderID string) (string, string, error) {
	o, err := s.repo(s.db.Conn()).GetByID(ctx, orderID)
	if err != nil {
		return "", "", notFound(err, "order")
	}
	return o.BuyerID, o.SellerID, nil
}

// MarkDisputed moves an order into disputed inside the caller's transaction.
func (s *Service) MarkDisputed(ctx context.Context, tx core.DBTX, orderID string) error {
	repo := s.repo(tx)

	o, err := repo.Lock(ctx, orderID)
	if err != nil {
		return notFound(err, "order")
	}
	if !transitions.Allowed(o.Status, StatusDisputed) {
		return core.ConflictError("order cannot be disputed while " + string(o.Status))
	}

	_, err = repo.SetStatus(ctx, orderID, StatusDisputed, nil)
	return err
}

// SettleDispute closes out a disputed order as completed or refunded inside
// the caller's transaction.
func (s *Service) SettleDispute(ctx context.Context, tx core.DBTX, orderID, status string) error {
	to := Status(status)
	if to != StatusCompleted && to != StatusRefunded {
		return core.ValidationError("dispute outcome must be completed or refunded")
	}

	repo := s.repo(tx)

	o, err := repo.Lock(ctx, orderID)
	if err != nil {
		return notFound(err, "order")
	}
	if o.Status != StatusDisputed {
		return core.ConflictError("order is not under dispute")
	}

	if _, err := repo.SetStatus(ctx, orderID, to, nil); err != nil {
		return err
	}
	if to == StatusRefunded {
		return repo.RefundTransactions(ctx, orderID)
	}
	return nil
}

func (s *Service) record(
	ctx context.Context,
	tx core.DBTX,
	actorID, action, entityID string,
	details map[string]any,
	notify []notification.Notice,
) error {
	return s.journal(tx).Record(ctx, journal.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		Notify:     notify,
	})
}

func formatAmount(o *Order) string {
	return fmt.Sprintf("%d.%02d %s", o.AmountCents/100, o.AmountCents%100, strings.ToUpper(o.Currency))
}

func notFound(err error, resource string) error {
	if err != nil && !core.IsAppError(err) && errors.Is(err, core.ErrNotFound) {
		return core.NotFoundError(resource)
	}
	return err
}
