// AngelaMos | 2026
// service.go

package moderation

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

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/journal"
	"github.com/carterperez-dev/gigmarket/internal/notification"
	"github.com/carterperez-dev/gigmarket/internal/trust"
)

var (
	flagsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmarket_moderation_flags_total",
		Help: "Content flags raised by content type.",
	}, []string{"content_type"})
	flagsReviewed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmarket_moderation_reviews_total",
		Help: "Moderation decisions by resulting status.",
	}, []string{"status"})
)

const entityType = "flagged_content"

// Gigs lets moderation find a gig's seller and take a gig down.
type Gigs interface {
	SellerOf(ctx context.Context, gigID string) (string, error)
	Archive(ctx context.Context, tx core.DBTX, gigID string) error
}

// Warner issues trust warnings. Implemented by trust.Service.
type Warner interface {
	WarnUser(ctx context.Context, actorID, userID, reason string) (*trust.WarnResult, error)
}

type ServiceConfig struct {
	DB         core.Transactor
	Repository func(core.DBTX) Repository
	Journal    journal.Factory
	Gigs       Gigs
	Warner     Warner
	Now        func() time.Time
	Logger     *slog.Logger
}

type Service struct {
	db      core.Transactor
	repo    func(core.DBTX) Repository
	journal journal.Factory
	gigs    Gigs
	warner  Warner
	now     func() time.Time
	logger  *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:      cfg.DB,
		repo:    cfg.Repository,
		journal: cfg.Journal,
		gigs:    cfg.Gigs,
		warner:  cfg.Warner,
		now:     cfg.Now,
		logger:  cfg.Logger,
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

// Flag reports content. One open flag per reporter and content item.
func (s *Service) Flag(ctx context.Context, reporterID string, req FlagRequest) (*Flag, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, core.ValidationError("reason is required")
	}
	contentID := strings.TrimSpace(req.ContentID)

	ownerID, err := s.ownerOf(ctx, req.ContentType, contentID)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && ownerID == reporterID {
		return nil, core.ForbiddenError("cannot flag your own content")
	}

	f := &Flag{
		ID:          uuid.New().String(),
		ContentType: req.ContentType,
		ContentID:   contentID,
		ReporterID:  reporterID,
		Reason:      reason,
		Status:      StatusPending,
	}
	if ownerID != "" {
		f.OwnerID = &ownerID
	}

	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		open, err := repo.HasOpenFlag(ctx, reporterID, f.ContentType, f.ContentID)
		if err != nil {
			return err
		}
		if open {
			return core.ConflictError("you already flagged this content")
		}

		if err := repo.Create(ctx, f); err != nil {
			return err
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    reporterID,
			Action:     "moderation.flagged",
			EntityType: entityType,
			EntityID:   f.ID,
			Details: map[string]any{
				"content_type": f.ContentType,
				"content_id":   f.ContentID,
				"reason":       reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	flagsCreated.WithLabelValues(string(f.ContentType)).Inc()
	return f, nil
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Flag, int, error) {
	return s.repo(s.db.Conn()).List(ctx, params)
}

func (s *Service) Get(ctx context.Context, id string) (*Flag, error) {
	f, err := s.repo(s.db.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

// Review records a moderator decision. Removing a gig archives it in the
// same transaction; the optional owner warning runs afterwards through the
// trust service and does not undo the decision when it fails.
func (s *Service) Review(
	ctx context.Context,
	moderatorID, id string,
	req ReviewRequest,
) (*ReviewResult, error) {
	now := s.now().UTC()
	var f *Flag

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		var err error
		f, err = repo.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := statusTransitions.Check(f.Status, req.Status); err != nil {
			return err
		}

		from := f.Status
		f.Status = req.Status
		f.ModeratorNotes = strings.TrimSpace(req.Notes)
		f.ReviewedBy = &moderatorID
		f.ReviewedAt = &now

		if err := repo.Review(ctx, f); err != nil {
			return err
		}

		if f.Status == StatusRemoved && f.ContentType == ContentGig && s.gigs != nil {
			if err := s.gigs.Archive(ctx, tx, f.ContentID); err != nil && !errors.Is(err, core.ErrNotFound) {
				return err
			}
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    moderatorID,
			Action:     "moderation.reviewed",
			EntityType: entityType,
			EntityID:   f.ID,
			Details: map[string]any{
				"from":         from,
				"to":           f.Status,
				"content_type": f.ContentType,
				"content_id":   f.ContentID,
			},
			Notify: s.notices(f),
		})
	})
	if err != nil {
		return nil, notFound(err)
	}

	flagsReviewed.WithLabelValues(string(f.Status)).Inc()

	result := &ReviewResult{Flag: f}
	if req.WarnOwner && f.Status == StatusRemoved && f.OwnerID != nil && s.warner != nil {
		reason := fmt.Sprintf("%s removed: %s", f.ContentType, f.Reason)
		if _, err := s.warner.WarnUser(ctx, moderatorID, *f.OwnerID, reason); err != nil {
			s.logger.WarnContext(ctx, "warn content owner failed",
				"flag_id", f.ID,
				"owner_id", *f.OwnerID,
				"error", err,
			)
		} else {
			result.OwnerWarned = true
		}
	}

	return result, nil
}

func (s *Service) notices(f *Flag) []notification.Notice {
	if !f.IsClosed() {
		return nil
	}

	out := []notification.Notice{{
		UserID:   f.ReporterID,
		Type:     "moderation",
		Template: "moderation.report_closed",
		Vars: map[string]string{
			"content_type": string(f.ContentType),
			"outcome":      string(f.Status),
		},
		Title:   "Your report has been reviewed",
		Message: "The {{content_type}} you reported was {{outcome}}.",
	}}

	if f.Status == StatusRemoved && f.OwnerID != nil {
		out = append(out, notification.Notice{
			UserID:   *f.OwnerID,
			Type:     "moderation",
			Template: "moderation.content_removed",
			Vars:     map[string]string{"content_type": string(f.ContentType)},
			Title:    "Your content was removed",
			Message:  "A {{content_type}} you posted was removed by a moderator.",
		})
	}

	return out
}

func (s *Service) ownerOf(ctx context.Context, contentType ContentType, contentID string) (string, error) {
	switch contentType {
	case ContentProfile:
		if _, err := uuid.Parse(contentID); err != nil {
			return "", core.ValidationError("profile content_id must be a user id")
		}
		return contentID, nil
	case ContentGig:
		if s.gigs == nil {
			return "", nil
		}
		owner, err := s.gigs.SellerOf(ctx, contentID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrInvalidInput) {
				return "", core.NotFoundError("gig")
			}
			return "", err
		}
		return owner, nil
	default:
		return "", nil
	}
}

func notFound(err error) error {
	if !core.IsAppError(err) && errors.Is(err, core.ErrNotFound) {
		return core.NotFoundError("flag")
	}
	return err
}
