// AngelaMos | 2026
// service.go

package gig

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/journal"
)

const entityType = "gig"

// SellerChecker reports whether a user has switched on selling.
type SellerChecker interface {
	IsSeller(ctx context.Context, userID string) (bool, error)
}

// Viewer is who is looking at a gig. Staff see every status.
type Viewer struct {
	UserID string
	Staff  bool
}

type ServiceConfig struct {
	DB         core.Transactor
	Repository func(core.DBTX) Repository
	Journal    journal.Factory
	Sellers    SellerChecker
}

type Service struct {
	db      core.Transactor
	repo    func(core.DBTX) Repository
	journal journal.Factory
	sellers SellerChecker
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:      cfg.DB,
		repo:    cfg.Repository,
		journal: cfg.Journal,
		sellers: cfg.Sellers,
	}
	if s.repo == nil {
		s.repo = NewRepository
	}
	if s.journal == nil {
		s.journal = journal.New
	}
	return s
}

func (s *Service) Create(ctx context.Context, sellerID string, req CreateGigRequest) (*Gig, error) {
	if s.sellers != nil {
		ok, err := s.sellers.IsSeller(ctx, sellerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, core.ForbiddenError("enable selling on your profile before posting gigs")
		}
	}

	g := &Gig{
		ID:           uuid.New().String(),
		SellerID:     sellerID,
		CategoryID:   req.CategoryID,
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		PriceCents:   req.PriceCents,
		Currency:     strings.ToLower(req.Currency),
		DeliveryDays: req.DeliveryDays,
		IsAIAgent:    req.IsAIAgent,
		Status:       StatusDraft,
	}
	if g.Currency == "" {
		g.Currency = "usd"
	}
	if req.Publish {
		g.Status = StatusActive
	}

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).Create(ctx, g); err != nil {
			return err
		}
		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    sellerID,
			Action:     "gig.created",
			EntityType: entityType,
			EntityID:   g.ID,
			Details: map[string]any{
				"title":  g.Title,
				"status": g.Status,
			},
		})
	})
	if err != nil {
		if !core.IsAppError(err) && errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("category")
		}
		return nil, err
	}

	return g, nil
}

// Browse lists active gigs only.
func (s *Service) Browse(ctx context.Context, params BrowseParams) ([]Gig, int, error) {
	params.Status = StatusActive
	return s.repo(s.db.Conn()).List(ctx, params)
}

// MyGigs lists every gig of the seller, optionally narrowed by status.
func (s *Service) MyGigs(ctx context.Context, sellerID string, params BrowseParams) ([]Gig, int, error) {
	params.SellerID = sellerID
	return s.repo(s.db.Conn()).List(ctx, params)
}

// Get hides non-active gigs from everyone but their seller and staff.
func (s *Service) Get(ctx context.Context, id string, viewer Viewer) (*Gig, error) {
	g, err := s.repo(s.db.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if g.Status != StatusActive && g.SellerID != viewer.UserID && !viewer.Staff {
		return nil, core.NotFoundError("gig")
	}
	return g, nil
}

// GetForPurchase returns a gig that can be ordered right now.
func (s *Service) GetForPurchase(ctx context.Context, id string) (*Gig, error) {
	g, err := s.repo(s.db.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !g.IsPurchasable() {
		return nil, core.ConflictError("gig is not available for purchase")
	}
	return g, nil
}

func (s *Service) Update(ctx context.Context, actorID, id string, req UpdateGigRequest) (*Gig, error) {
	var g *Gig

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		var err error
		g, err = repo.Lock(ctx, id)
		if err != nil {
			return err
		}
		if g.SellerID != actorID {
			return core.ForbiddenError("only the seller can edit this gig")
		}
		if g.Status == StatusArchived {
			return core.ConflictError("archived gigs cannot be edited")
		}

		changed := applyUpdate(g, req)
		if len(changed) == 0 {
			return nil
		}
		if err := repo.Update(ctx, g); err != nil {
			return err
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "gig.updated",
			EntityType: entityType,
			EntityID:   g.ID,
			Details:    map[string]any{"fields": changed},
		})
	})
	if err != nil {
		return nil, notFound(err)
	}

	return g, nil
}

// SetStatus moves a gig through its lifecycle. Sellers manage their own
// gigs; staff may move any gig.
func (s *Service) SetStatus(ctx context.Context, viewer Viewer, id string, to Status) (*Gig, error) {
	ctx, span := core.StartSpan(ctx, "gig.SetStatus",
		attribute.String("gig.id", id),
		attribute.String("gig.status", string(to)),
	)
	defer span.End()

	var g *Gig

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		var err error
		g, err = repo.Lock(ctx, id)
		if err != nil {
			return err
		}
		if g.SellerID != viewer.UserID && !viewer.Staff {
			return core.ForbiddenError("only the seller can change this gig")
		}
		if err := statusTransitions.Check(g.Status, to); err != nil {
			return err
		}

		from := g.Status
		if err := repo.SetStatus(ctx, id, to); err != nil {
			return err
		}
		g.Status = to

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    viewer.UserID,
			Action:     "gig.status_changed",
			EntityType: entityType,
			EntityID:   id,
			Details: map[string]any{
				"from": from,
				"to":   to,
			},
		})
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, notFound(err)
	}

	return g, nil
}

func (s *Service) SellerOf(ctx context.Context, id string) (string, error) {
	g, err := s.repo(s.db.Conn()).GetByID(ctx, id)
	if err != nil {
		return "", notFound(err)
	}
	return g.SellerID, nil
}

// Archive takes a gig down after a moderation decision. Archiving an
// archived gig is a no-op. It runs inside the caller's transaction.
func (s *Service) Archive(ctx context.Context, tx core.DBTX, id string) error {
	repo := s.repo(tx)

	g, err := repo.Lock(ctx, id)
	if err != nil {
		return err
	}
	if g.Status == StatusArchived {
		return nil
	}
	return repo.SetStatus(ctx, id, StatusArchived)
}

func applyUpdate(g *Gig, req UpdateGigRequest) []string {
	var changed []string

	if req.Title != nil {
		g.Title = strings.TrimSpace(*req.Title)
		changed = append(changed, "title")
	}
	if req.Description != nil {
		g.Description = strings.TrimSpace(*req.Description)
		changed = append(changed, "description")
	}
	if req.CategoryID != nil {
		id := *req.CategoryID
		g.CategoryID = &id
		changed = append(changed, "category_id")
	}
	if req.PriceCents != nil {
		g.PriceCents = *req.PriceCents
		changed = append(changed, "price_cents")
	}
	if req.DeliveryDays != nil {
		g.DeliveryDays = *req.DeliveryDays
		changed = append(changed, "delivery_days")
	}
	if req.IsAIAgent != nil {
		g.IsAIAgent = *req.IsAIAgent
		changed = append(changed, "is_ai_agent")
	}

	return changed
}

func notFound(err error) error {
	if !core.IsAppError(err) && errors.Is(err, core.ErrNotFound) {
		return core.NotFoundError("gig")
	}
	return err
}
