// AngelaMos | 2026
// service_test.go

package trust

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/core/coretest"
	"github.com/carterperez-dev/gigmarket/internal/journal/journaltest"
)

type memRepo struct {
	Repository
	mu      sync.Mutex
	users   map[string]bool
	records map[string]*Record
}

func newMemRepo(userIDs ...string) *memRepo {
	r := &memRepo{
		users:   make(map[string]bool),
		records: make(map[string]*Record),
	}
	for _, id := range userIDs {
		r.users[id] = true
	}
	return r
}

// upsert mirrors INSERT ... ON CONFLICT; callers hold mu.
func (r *memRepo) upsert(userID string, at time.Time) (*Record, error) {
	if !r.users[userID] {
		return nil, fmt.Errorf("user_trust_records_user_id_fkey: %w", core.ErrNotFound)
	}
	rec, ok := r.records[userID]
	if !ok {
		rec = &Record{
			ID:                "rec-" + userID,
			UserID:            userID,
			TrustScore:        DefaultTrustScore,
			Status:            StatusActive,
			SuspensionHistory: SuspensionHistory{},
			CreatedAt:         at,
		}
		r.records[userID] = rec
	}
	rec.UpdatedAt = at
	return rec, nil
}

func snapshot(rec *Record) *Record {
	out := *rec
	out.SuspensionHistory = append(SuspensionHistory{}, rec.SuspensionHistory...)
	return &out
}

func (r *memRepo) Get(_ context.Context, userID string) (*Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return nil, fmt.Errorf("get trust record: %w", core.ErrNotFound)
	}
	return &Row{Record: *snapshot(rec)}, nil
}

func (r *memRepo) List(_ context.Context, _ ListQuery) ([]Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]Row, 0, len(r.records))
	for _, rec := range r.records {
		rows = append(rows, Row{Record: *snapshot(rec)})
	}
	return rows, nil
}

func (r *memRepo) Lock(_ context.Context, userID string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return nil, fmt.Errorf("lock trust record: %w", core.ErrNotFound)
	}
	return snapshot(rec), nil
}

func (r *memRepo) IncrementWarning(
	_ context.Context,
	userID string,
	at time.Time,
) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.upsert(userID, at)
	if err != nil {
		return nil, err
	}
	rec.WarningCount++
	rec.LastWarningDate = &at
	return snapshot(rec), nil
}

func (r *memRepo) AppendSuspension(
	_ context.Context,
	userID string,
	entry SuspensionEntry,
) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.upsert(userID, entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Status = StatusSuspended
	rec.SuspensionHistory = append(rec.SuspensionHistory, entry)
	return snapshot(rec), nil
}

func (r *memRepo) SetStatus(
	_ context.Context,
	userID string,
	status Status,
	at time.Time,
) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.upsert(userID, at)
	if err != nil {
		return nil, err
	}
	rec.Status = status
	return snapshot(rec), nil
}

func (r *memRepo) SetScore(
	_ context.Context,
	userID string,
	score int,
	at time.Time,
) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.upsert(userID, at)
	if err != nil {
		return nil, err
	}
	rec.TrustScore = score
	return snapshot(rec), nil
}

type fakeSessions struct {
	mu      sync.Mutex
	revoked []string
	err     error
}

func (f *fakeSessions) LogoutAll(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, userID)
	return f.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	repo     *memRepo
	tx       *coretest.Tx
	journal  *journaltest.Recorder
	sessions *fakeSessions
}

func newFixture(userIDs ...string) *fixture {
	f := &fixture{
		repo:     newMemRepo(userIDs...),
		tx:       &coretest.Tx{},
		journal:  &journaltest.Recorder{},
		sessions: &fakeSessions{},
	}
	f.svc = NewService(ServiceConfig{
		DB:         f.tx,
		Repository: func(core.DBTX) Repository { return f.repo },
		Journal:    f.journal.Factory(),
		Sessions:   f.sessions,
		Now:        func() time.Time { return fixedNow },
	})
	return f
}

func TestWarnUser_IncrementsAndJournals(t *testing.T) {
	f := newFixture("mod", "u1")
	ctx := context.Background()

	first, err := f.svc.WarnUser(ctx, "mod", "u1", "  spam links  ")
	require.NoError(t, err)
	second, err := f.svc.WarnUser(ctx, "mod", "u1", "more spam")
	require.NoError(t, err)

	assert.Equal(t, 1, first.WarningCount)
	assert.Equal(t, 2, second.WarningCount)
	assert.Equal(t, fixedNow, second.LastWarningAt)
	assert.Equal(t, 2, f.tx.Commits)

	assert.Equal(t, []string{"trust.warned", "trust.warned"}, f.journal.Actions())
	entry := f.journal.Entries[0]
	assert.Equal(t, "spam links", entry.Details["reason"])
	require.Len(t, entry.Notify, 1)
	assert.Equal(t, "u1", entry.Notify[0].UserID)
}

func TestWarnUser_ProvisionsMissingRecord(t *testing.T) {
	f := newFixture("mod", "u1")

	res, err := f.svc.WarnUser(context.Background(), "mod", "u1", "first offence")

	require.NoError(t, err)
	assert.Equal(t, 1, res.WarningCount)

	view, err := f.svc.GetUserTrust(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultTrustScore, view.TrustScore)
	assert.False(t, view.IsSuspended)
}

func TestWarnUser_ConcurrentWarnsAreNotLost(t *testing.T) {
	f := newFixture("mod-a", "mod-b", "u1")
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, actor := range []string{"mod-a", "mod-b"} {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			_, err := f.svc.WarnUser(ctx, actor, "u1", "abuse")
			assert.NoError(t, err)
		}(actor)
	}
	wg.Wait()

	view, err := f.svc.GetUserTrust(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, view.WarningCount)
}

func TestWarnUser_Validation(t *testing.T) {
	tests := []struct {
		name   string
		actor  string
		target string
		reason string
		want   error
	}{
		{"blank reason", "mod", "u1", "   ", core.ErrInvalidInput},
		{"reason too long", "mod", "u1", strings.Repeat("x", MaxReasonLength+1), core.ErrInvalidInput},
		{"self warning", "u1", "u1", "nope", core.ErrForbidden},
		{"unknown user", "mod", "ghost", "spam", core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("mod", "u1")

			_, err := f.svc.WarnUser(context.Background(), tt.actor, tt.target, tt.reason)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.journal.Entries)
		})
	}
}

func TestWarnUser_ReasonAtLimitAccepted(t *testing.T) {
	f := newFixture("mod", "u1")

	_, err := f.svc.WarnUser(
		context.Background(), "mod", "u1", strings.Repeat("é", MaxReasonLength),
	)

	assert.NoError(t, err)
}

func TestSuspendUser_AppendsHistoryAndRevokesSessions(t *testing.T) {
	f := newFixture("mod", "u1")
	ctx := context.Background()

	res, err := f.svc.SuspendUser(ctx, "mod", "u1", "fraud", 7)
	require.NoError(t, err)

	assert.True(t, res.IsSuspended)
	assert.Equal(t, "fraud", res.SuspensionReason)
	assert.Equal(t, fixedNow.AddDate(0, 0, 7), res.SuspensionUntil)
	assert.Equal(t, 1, res.SuspensionCount)
	assert.Equal(t, []string{"u1"}, f.sessions.revoked)
	assert.Equal(t, "trust.suspended", f.journal.Last().Action)

	again, err := f.svc.SuspendUser(ctx, "mod", "u1", "repeat fraud", 30)
	require.NoError(t, err)
	assert.Equal(t, 2, again.SuspensionCount)

	view, err := f.svc.GetUserTrust(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, view.SuspensionReason)
	assert.Equal(t, "repeat fraud", *view.SuspensionReason)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), *view.SuspensionUntil)
}

func TestSuspendUser_DaysOutOfRange(t *testing.T) {
	for _, days := range []int{0, -1, MaxSuspendDays + 1} {
		t.Run(fmt.Sprint(days), func(t *testing.T) {
			f := newFixture("mod", "u1")

			_, err := f.svc.SuspendUser(context.Background(), "mod", "u1", "fraud", days)

			assert.ErrorIs(t, err, core.ErrInvalidInput)
			assert.Empty(t, f.sessions.revoked)
		})
	}
}

func TestSuspendUser_SessionRevokeFailureIsNotFatal(t *testing.T) {
	f := newFixture("mod", "u1")
	f.sessions.err = errors.New("redis down")

	res, err := f.svc.SuspendUser(context.Background(), "mod", "u1", "fraud", 1)

	require.NoError(t, err)
	assert.True(t, res.IsSuspended)
}

func TestSuspendUser_JournalFailureRollsBack(t *testing.T) {
	f := newFixture("mod", "u1")
	f.journal.Fail = errors.New("insert audit log")

	_, err := f.svc.SuspendUser(context.Background(), "mod", "u1", "fraud", 1)

	require.Error(t, err)
	assert.Zero(t, f.tx.Commits)
	assert.Empty(t, f.sessions.revoked)
}

func TestRemoveSuspension_KeepsHistory(t *testing.T) {
	f := newFixture("mod", "u1")
	ctx := context.Background()

	_, err := f.svc.SuspendUser(ctx, "mod", "u1", "fraud", 3)
	require.NoError(t, err)

	res, err := f.svc.RemoveSuspension(ctx, "mod", "u1")
	require.NoError(t, err)

	assert.False(t, res.IsSuspended)
	assert.Equal(t, 1, res.SuspensionCount)
	assert.Nil(t, res.SuspensionReason)
	assert.Nil(t, res.SuspensionUntil)

	view, err := f.svc.GetUserTrust(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, view.Status)
	assert.Nil(t, view.SuspensionReason)
	assert.Len(t, view.SuspensionHistory, 1)
}

func TestRemoveSuspension_ActiveUserIsNoop(t *testing.T) {
	f := newFixture("mod", "u1")

	res, err := f.svc.RemoveSuspension(context.Background(), "mod", "u1")

	require.NoError(t, err)
	assert.False(t, res.IsSuspended)
	assert.Zero(t, res.SuspensionCount)
}

func TestSetTrustScore(t *testing.T) {
	f := newFixture("admin", "u1")
	ctx := context.Background()

	res, err := f.svc.SetTrustScore(ctx, "admin", "u1", 35, "chargebacks")
	require.NoError(t, err)
	assert.Equal(t, 35, res.TrustScore)

	_, err = f.svc.SetTrustScore(ctx, "admin", "u1", 101, "too high")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = f.svc.SetTrustScore(ctx, "admin", "u1", 0, "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestIsSuspended(t *testing.T) {
	f := newFixture("mod", "u1", "u2")
	ctx := context.Background()

	_, err := f.svc.SuspendUser(ctx, "mod", "u1", "fraud", 1)
	require.NoError(t, err)

	suspended, err := f.svc.IsSuspended(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, suspended)

	suspended, err = f.svc.IsSuspended(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, suspended)
}

func TestGetUserTrust_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetUserTrust(context.Background(), "nobody")

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestToView_DerivedFields(t *testing.T) {
	until := fixedNow.Add(-time.Hour)
	row := Row{Record: Record{
		UserID: "u1",
		Status: StatusSuspended,
		SuspensionHistory: SuspensionHistory{
			{Reason: "old", Until: fixedNow.Add(48 * time.Hour)},
			{Reason: "latest", Until: until},
		},
	}}

	v := ToView(row, fixedNow)

	assert.True(t, v.IsSuspended)
	assert.Equal(t, 2, v.SuspensionCount)
	require.NotNil(t, v.SuspensionReason)
	assert.Equal(t, "latest", *v.SuspensionReason)
	assert.True(t, v.SuspensionExpired)
}

func TestToView_ActiveHidesCurrentSuspension(t *testing.T) {
	row := Row{Record: Record{
		Status:            StatusActive,
		SuspensionHistory: SuspensionHistory{{Reason: "old", Until: fixedNow}},
	}}

	v := ToView(row, fixedNow)

	assert.False(t, v.IsSuspended)
	assert.Equal(t, 1, v.SuspensionCount)
	assert.Nil(t, v.SuspensionReason)
	assert.False(t, v.SuspensionExpired)
}

func TestParseListQuery(t *testing.T) {
	q, err := ParseListQuery("", "", "")
	require.NoError(t, err)
	assert.Equal(t, ListQuery{Filter: FilterAll, Sort: SortUpdatedAt, Direction: Desc}, q)

	q, err = ParseListQuery("LOW_TRUST", "warning_count", "asc")
	require.NoError(t, err)
	assert.Equal(t, ListQuery{Filter: FilterLowTrust, Sort: SortWarningCount, Direction: Asc}, q)

	for _, args := range [][3]string{
		{"banned", "", ""},
		{"", "email", ""},
		{"", "", "sideways"},
	} {
		_, err := ParseListQuery(args[0], args[1], args[2])
		assert.ErrorIs(t, err, core.ErrInvalidInput, args)
	}
}

func TestSuspensionHistory_Scan(t *testing.T) {
	var h SuspensionHistory

	require.NoError(t, h.Scan([]byte(`[{"reason":"a","until":"2026-01-02T00:00:00Z","created_at":"2026-01-01T00:00:00Z"}]`)))
	require.Len(t, h, 1)
	assert.Equal(t, "a", h.Current().Reason)

	require.NoError(t, h.Scan(nil))
	assert.Empty(t, h)
	assert.Nil(t, h.Current())

	assert.Error(t, h.Scan(42))
}
