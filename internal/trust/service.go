// AngelaMos | 2026
// service.go

package trust

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/journal"
	"github.com/carterperez-dev/gigmarket/internal/notification"
)

var trustActions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gigmarket_trust_actions_total",
		Help: "Trust and safety actions applied to user records.",
	},
	[]string{"action"},
)

const entityType = "user_trust"

// SessionRevoker ends every session of a user. Implemented by auth.Service.
type SessionRevoker interface {
	LogoutAll(ctx context.Context, userID string) error
}

type ServiceConfig struct {
	DB         core.Transactor
	Repository func(core.DBTX) Repository
	Journal    journal.Factory
	Sessions   SessionRevoker
	Now        func() time.Time
	Logger     *slog.Logger
}

type Service struct {
	db       core.Transactor
	repo     func(core.DBTX) Repository
	journal  journal.Factory
	sessions SessionRevoker
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:       cfg.DB,
		repo:     cfg.Repository,
		journal:  cfg.Journal,
		sessions: cfg.Sessions,
		now:      cfg.Now,
		logger:   cfg.Logger,
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

// FetchUserTrustData lists records filtered and ordered server side.
func (s *Service) FetchUserTrustData(ctx context.Context, q ListQuery) ([]View, error) {
	rows, err := s.repo(s.db.Conn()).List(ctx, q)
	if err != nil {
		return nil, err
	}
	return ToViews(rows, s.now()), nil
}

func (s *Service) GetUserTrust(ctx context.Context, userID string) (*View, error) {
	row, err := s.repo(s.db.Conn()).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("trust record")
		}
		return nil, err
	}
	v := ToView(*row, s.now())
	return &v, nil
}

// IsSuspended reports the gate used at login. A user without a record is
// not suspended.
func (s *Service) IsSuspended(ctx context.Context, userID string) (bool, error) {
	row, err := s.repo(s.db.Conn()).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return row.IsSuspended(), nil
}

// Provision creates the default record; a no-op when one exists.
func Provision(ctx context.Context, db core.DBTX, userID string) error {
	return NewRepository(db).Provision(ctx, userID)
}

func (s *Service) WarnUser(
	ctx context.Context,
	actorID, userID, reason string,
) (*WarnResult, error) {
	reason, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}
	if err := rejectSelf(actorID, userID, "warn"); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var rec *Record

	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		var txErr error
		rec, txErr = s.repo(tx).IncrementWarning(ctx, userID, now)
		if txErr != nil {
			return txErr
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "trust.warned",
			EntityType: entityType,
			EntityID:   userID,
			Details: map[string]any{
				"reason":        reason,
				"warning_count": rec.WarningCount,
			},
			Notify: []notification.Notice{{
				UserID:   userID,
				Type:     "trust.warning",
				Template: "trust.warned",
				Vars: map[string]string{
					"reason":        reason,
					"warning_count": strconv.Itoa(rec.WarningCount),
				},
				Title:   "You have received a warning",
				Message: "Reason: {{reason}}. Total warnings: {{warning_count}}.",
			}},
		})
	})
	if err != nil {
		return nil, mapUserErr(err)
	}

	trustActions.WithLabelValues("warn").Inc()

	return &WarnResult{
		UserID:        userID,
		WarningCount:  rec.WarningCount,
		LastWarningAt: now,
	}, nil
}

func (s *Service) SuspendUser(
	ctx context.Context,
	actorID, userID, reason string,
	days int,
) (*SuspendResult, error) {
	reason, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}
	if days < MinSuspendDays || days > MaxSuspendDays {
		return nil, core.ValidationError(fmt.Sprintf(
			"days must be between %d and %d", MinSuspendDays, MaxSuspendDays,
		))
	}
	if err := rejectSelf(actorID, userID, "suspend"); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := SuspensionEntry{
		Reason:    reason,
		Until:     now.AddDate(0, 0, days),
		CreatedAt: now,
	}
	var rec *Record

	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		if err := s.checkTransition(ctx, repo, userID, StatusSuspended); err != nil {
			return err
		}

		var txErr error
		rec, txErr = repo.AppendSuspension(ctx, userID, entry)
		if txErr != nil {
			return txErr
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "trust.suspended",
			EntityType: entityType,
			EntityID:   userID,
			Details: map[string]any{
				"reason":           reason,
				"days":             days,
				"until":            entry.Until,
				"suspension_count": rec.SuspensionCount(),
			},
			Notify: []notification.Notice{{
				UserID:   userID,
				Type:     "trust.suspension",
				Template: "trust.suspended",
				Vars: map[string]string{
					"reason": reason,
					"days":   strconv.Itoa(days),
					"until":  entry.Until.Format(time.RFC1123),
				},
				Title:   "Your account has been suspended",
				Message: "Reason: {{reason}}. Suspended until {{until}}.",
			}},
		})
	})
	if err != nil {
		return nil, mapUserErr(err)
	}

	trustActions.WithLabelValues("suspend").Inc()

	if s.sessions != nil {
		if err := s.sessions.LogoutAll(ctx, userID); err != nil {
			s.logger.WarnContext(ctx, "revoke sessions after suspension failed",
				"user_id", userID,
				"error", err,
			)
		}
	}

	return &SuspendResult{
		UserID:           userID,
		IsSuspended:      rec.IsSuspended(),
		SuspensionReason: entry.Reason,
		SuspensionUntil:  entry.Until,
		SuspensionCount:  rec.SuspensionCount(),
	}, nil
}

// RemoveSuspension sets the record active. The history is kept.
func (s *Service) RemoveSuspension(
	ctx context.Context,
	actorID, userID string,
) (*RemoveSuspensionResult, error) {
	now := s.now().UTC()
	var rec *Record

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		if err := s.checkTransition(ctx, repo, userID, StatusActive); err != nil {
			return err
		}

		var txErr error
		rec, txErr = repo.SetStatus(ctx, userID, StatusActive, now)
		if txErr != nil {
			return txErr
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "trust.suspension_removed",
			EntityType: entityType,
			EntityID:   userID,
			Details: map[string]any{
				"suspension_count": rec.SuspensionCount(),
			},
			Notify: []notification.Notice{{
				UserID:   userID,
				Type:     "trust.suspension",
				Template: "trust.suspension_removed",
				Title:    "Your suspension has been lifted",
				Message:  "Your account is active again.",
			}},
		})
	})
	if err != nil {
		return nil, mapUserErr(err)
	}

	trustActions.WithLabelValues("remove_suspension").Inc()

	return &RemoveSuspensionResult{
		UserID:          userID,
		IsSuspended:     rec.IsSuspended(),
		SuspensionCount: rec.SuspensionCount(),
	}, nil
}

func (s *Service) SetTrustScore(
	ctx context.Context,
	actorID, userID string,
	score int,
	reason string,
) (*ScoreResult, error) {
	reason, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}
	if score < 0 || score > 100 {
		return nil, core.ValidationError("score must be between 0 and 100")
	}

	now := s.now().UTC()
	var rec *Record

	err = s.db.InTx(ctx, func(tx core.DBTX) error {
		var txErr error
		rec, txErr = s.repo(tx).SetScore(ctx, userID, score, now)
		if txErr != nil {
			return txErr
		}

		return s.journal(tx).Record(ctx, journal.Entry{
			ActorID:    actorID,
			Action:     "trust.score_set",
			EntityType: entityType,
			EntityID:   userID,
			Details: map[string]any{
				"score":  score,
				"reason": reason,
			},
		})
	})
	if err != nil {
		return nil, mapUserErr(err)
	}

	trustActions.WithLabelValues("set_score").Inc()

	return &ScoreResult{UserID: userID, TrustScore: rec.TrustScore}, nil
}

func (s *Service) checkTransition(
	ctx context.Context,
	repo Repository,
	userID string,
	to Status,
) error {
	from := StatusActive

	current, err := repo.Lock(ctx, userID)
	switch {
	case err == nil:
		from = current.Status
	case errors.Is(err, core.ErrNotFound):
	default:
		return err
	}

	return statusTransitions.Check(from, to)
}

func normalizeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", core.ValidationError("reason is required")
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return "", core.ValidationError(fmt.Sprintf(
			"reason must be at most %d characters", MaxReasonLength,
		))
	}
	return reason, nil
}

func rejectSelf(actorID, userID, action string) error {
	if actorID != "" && actorID == userID {
		return core.ForbiddenError(fmt.Sprintf("cannot %s your own account", action))
	}
	return nil
}

// mapUserErr turns a missing user (foreign key failure on upsert) into a
// 404 and passes everything else through.
func mapUserErr(err error) error {
	if core.IsAppError(err) {
		return err
	}
	if errors.Is(err, core.ErrNotFound) {
		return core.NotFoundError("user")
	}
	return err
}
