// AngelaMos | 2026
// service.go

package dispute

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/journal"
	"github.com/carterperez-dev/gigmarket/internal/notification"
)

const entityType = "dispute"

// Orders is the slice of the order service that disputes drive. The tx
// variants run inside the dispute transaction.
type Orders interface {
	Parties(ctx context.Context, orderID string) (buyerID, sellerID string, err error)
	MarkDisputed(ctx context.Context, tx core.DBTX, orderID string) error
	SettleDispute(ctx context.Context, tx core.DBTX, orderID, status string) error
}

// Viewer is the caller. Staff may see and manage every dispute.
type Viewer struct {
	UserID string
	Staff  bool
}

type ServiceConfig struct {
	DB         core.Transactor
	Repository func(core.DBTX) Repository
	Journal    journal.Factory
	Orders     Orders
	Now        func() time.Time
}

type Service struct {
	db      core.Transactor
	repo    func(core.DBTX) Repository
	journal journal.Factory
	orders  Orders
	now     func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:      cfg.DB,
		repo:    cfg.Repository,
		journal: cfg.Journal,
		orders:  cfg.Orders,
		now:     cfg.Now,
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
	return s
}

// Open raises a dispute on an order. Only the buyer or seller may open one,
// the other party becomes the respondent, and the order moves to disputed
// in the same transaction.
func (s *Service) Open(ctx context.Context, actorID string, req OpenRequest) (*Dispute, error) {
	ctx, span := core.StartSpan(ctx, "dispute.Open", attribute.String("order.id", req.OrderID))
	defer span.End()

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, core.ValidationError("reason is required")
	}

	buyerID, sellerID, err := s.orders.Parties(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	var against string
	switch actorID {
	case buyerID:
		against = sellerID
	case sellerID:
		against = buyerID
	default:
		return nil, core.ForbiddenError("only the buyer or seller can open a dispute")
	}

	d := &Dispute{
		ID:            uuid.New().String(),
		OrderID:       req.OrderID,
		RaisedBy:      actorID,
		AgainstUserID: against,
		Reason:        reason,
		Description:   strings.TrimSpace(req.Description),
		Status:        StatusOpen,
	}

	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		active, err := repo.HasActiveForOrder(ctx, d.OrderID)
		if err != nil {
			return err
		}
		if active {
			return core.ConflictError("this order already has an open dispute")
		}

		if err := s.orders.MarkDisputed(ctx, tx, d.OrderID); err != nil {
			return err
		}
		if err := repo.Create(ctx, d); err != nil {
			return err
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "dispute.opened",
			EntityType: entityType,
			EntityID:   d.ID,
			Details: map[string]any{
				"order_id": d.OrderID,
				"reason":   reason,
			},
			Notify: []notification.Notice{{
				UserID:   against,
				Type:     "dispute",
				Template: "dispute.opened",
				Vars:     map[string]string{"reason": reason},
				Title:    "A dispute was opened on your order",
				Message:  "Reason: {{reason}}.",
				Link:     "/disputes/" + d.ID,
			}},
		})
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return d, nil
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Dispute, int, error) {
	return s.repo(s.db.Conn()).List(ctx, params)
}

func (s *Service) MyDisputes(ctx context.Context, userID string, params ListParams) ([]Dispute, int, error) {
	params.PartyID = userID
	return s.repo(s.db.Conn()).List(ctx, params)
}

// Get is visible to the parties and to staff. Others get a 404.
func (s *Service) Get(ctx context.Context, viewer Viewer, id string) (*Dispute, error) {
	d, err := s.repo(s.db.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !viewer.Staff && !d.IsParty(viewer.UserID) {
		return nil, core.NotFoundError("dispute")
	}
	return d, nil
}

// SetStatus moves a dispute to review or closes it. Staff only. Closing a
// dispute that is still active settles its order with req.OrderOutcome.
func (s *Service) SetStatus(ctx context.Context, actorID, id string, req StatusRequest) (*Dispute, error) {
	to := req.Status
	var d *Dispute

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		current, err := repo.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := statusTransitions.Check(current.Status, to); err != nil {
			return err
		}

		settles := to == StatusClosed && current.IsActive()
		if settles {
			if err := s.settleOrder(ctx, tx, current.OrderID, req.OrderOutcome); err != nil {
				return err
			}
		}

		d, err = repo.SetStatus(ctx, id, to)
		if err != nil {
			return err
		}

		details := map[string]any{"from": current.Status, "to": to}
		if settles {
			details["order_outcome"] = req.OrderOutcome
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "dispute.status_changed",
			EntityType: entityType,
			EntityID:   id,
			Details:    details,
			Notify: partyNotices(d, "dispute.status_changed",
				"Dispute update", "Your dispute is now {{status}}."),
		})
	})
	if err != nil {
		return nil, notFound(err)
	}

	return d, nil
}

// settleOrder moves the disputed order out of disputed. An active dispute
// always holds its order in disputed, so ending one needs an outcome.
func (s *Service) settleOrder(ctx context.Context, tx core.DBTX, orderID, outcome string) error {
	if outcome == "" {
		return core.ValidationError("order_outcome is required to end an active dispute")
	}
	return s.orders.SettleDispute(ctx, tx, orderID, outcome)
}

// Escalate may be requested by either party or by staff.
func (s *Service) Escalate(ctx context.Context, viewer Viewer, id string) (*Dispute, error) {
	var d *Dispute

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !viewer.Staff && !current.IsParty(viewer.UserID) {
			return core.NotFoundError("dispute")
		}

		d, err = repo.Escalate(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			return core.ConflictError("cannot escalate a dispute that is " + string(current.Status))
		}
		if err != nil {
			return err
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    viewer.UserID,
			Action:     "dispute.escalated",
			EntityType: entityType,
			EntityID:   id,
			Details: map[string]any{
				"escalation_count": d.EscalationCount,
			},
			Notify: partyNotices(d, "dispute.escalated",
				"Dispute escalated", "Your dispute was escalated ({{escalations}} so far)."),
		})
	})
	if err != nil {
		return nil, notFound(err)
	}

	return d, nil
}

// Resolve records the resolution and settles the order in the same
// transaction.
func (s *Service) Resolve(ctx context.Context, actorID, id string, req ResolveRequest) (*Dispute, error) {
	resolution := strings.TrimSpace(req.Resolution)
	if resolution == "" {
		return nil, core.ValidationError("resolution is required")
	}

	now := s.now().UTC()
	var d *Dispute

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		current, err := repo.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := statusTransitions.Check(current.Status, StatusResolved); err != nil {
			return err
		}

		if err := s.settleOrder(ctx, tx, current.OrderID, req.OrderOutcome); err != nil {
			return err
		}

		d, err = repo.Resolve(ctx, id, resolution, actorID, now)
		if err != nil {
			return err
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "dispute.resolved",
			EntityType: entityType,
			EntityID:   id,
			Details: map[string]any{
				"resolution":    resolution,
				"order_outcome": req.OrderOutcome,
			},
			Notify: partyNotices(d, "dispute.resolved",
				"Dispute resolved", "Resolution: {{resolution}}."),
		})
	})
	if err != nil {
		return nil, notFound(err)
	}

	return d, nil
}

func partyNotices(d *Dispute, template, title, message string) []notification.Notice {
	vars := map[string]string{
		"status":      string(d.Status),
		"escalations": strconv.Itoa(d.EscalationCount),
		"resolution":  d.Resolution,
	}

	out := make([]notification.Notice, 0, 2)
	for _, userID := range []string{d.RaisedBy, d.AgainstUserID} {
		out = append(out, notification.Notice{
			UserID:   userID,
			Type:     "dispute",
			Template: template,
			Vars:     vars,
			Title:    title,
			Message:  message,
			Link:     "/disputes/" + d.ID,
		})
	}
	return out
}

func notFound(err error) error {
	if !core.IsAppError(err) && errors.Is(err, core.ErrNotFound) {
		return core.NotFoundError("dispute")
	}
	return err
}
