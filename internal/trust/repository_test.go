// AngelaMos | 2026
// repository_test.go

package trust

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/core/coretest"
)

func insertUser(t *testing.T, db core.DBTX, email, name string) string {
	t.Helper()

	id := uuid.New().String()
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, 'x')`, id, email)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, display_name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err)

	return id
}

func TestRepository_Integration(t *testing.T) {
	db := coretest.NewPostgres(t)
	ctx := context.Background()
	repo := NewRepository(db.Conn())

	alice := insertUser(t, db.Conn(), "alice@example.com", "Alice")
	bob := insertUser(t, db.Conn(), "bob@example.com", "Bob")
	carol := insertUser(t, db.Conn(), "carol@example.com", "Carol")

	require.NoError(t, repo.Provision(ctx, alice))
	require.NoError(t, repo.Provision(ctx, alice))

	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("warn upserts and increments", func(t *testing.T) {
		rec, err := repo.IncrementWarning(ctx, bob, now)
		require.NoError(t, err)
		assert.Equal(t, 1, rec.WarningCount)
		assert.Equal(t, DefaultTrustScore, rec.TrustScore)

		rec, err = repo.IncrementWarning(ctx, bob, now)
		require.NoError(t, err)
		assert.Equal(t, 2, rec.WarningCount)
	})

	t.Run("concurrent warns are atomic", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.IncrementWarning(ctx, carol, now)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		row, err := repo.Get(ctx, carol)
		require.NoError(t, err)
		assert.Equal(t, 10, row.WarningCount)
	})

	t.Run("suspension history appends", func(t *testing.T) {
		first := SuspensionEntry{Reason: "fraud", Until: now.AddDate(0, 0, 3), CreatedAt: now}
		second := SuspensionEntry{Reason: "again", Until: now.AddDate(0, 0, 9), CreatedAt: now}

		_, err := repo.AppendSuspension(ctx, alice, first)
		require.NoError(t, err)
		rec, err := repo.AppendSuspension(ctx, alice, second)
		require.NoError(t, err)

		assert.True(t, rec.IsSuspended())
		require.Len(t, rec.SuspensionHistory, 2)
		assert.Equal(t, "again", rec.SuspensionHistory.Current().Reason)

		rec, err = repo.SetStatus(ctx, alice, StatusActive, now)
		require.NoError(t, err)
		assert.False(t, rec.IsSuspended())
		assert.Len(t, rec.SuspensionHistory, 2)
	})

	t.Run("filters and sorting", func(t *testing.T) {
		_, err := repo.SetScore(ctx, bob, 20, now)
		require.NoError(t, err)

		rows, err := repo.List(ctx, ListQuery{Filter: FilterLowTrust, Sort: SortTrustScore, Direction: Asc})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Bob", rows[0].DisplayName)
		assert.Equal(t, "bob@example.com", rows[0].Email)

		rows, err = repo.List(ctx, ListQuery{Filter: FilterWarned, Sort: SortWarningCount, Direction: Desc})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, carol, rows[0].UserID)

		rows, err = repo.List(ctx, ListQuery{Filter: FilterAll, Sort: SortLastWarningDate, Direction: Asc})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, alice, rows[2].UserID, "null last_warning_date sorts last")
	})

	t.Run("suspended filter ignores expiry", func(t *testing.T) {
		lapsed := SuspensionEntry{Reason: "spam", Until: now.Add(-time.Hour), CreatedAt: now.AddDate(0, 0, -2)}
		_, err := repo.AppendSuspension(ctx, carol, lapsed)
		require.NoError(t, err)

		rows, err := repo.List(ctx, ListQuery{Filter: FilterSuspended, Sort: SortUpdatedAt, Direction: Desc})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, carol, rows[0].UserID)
		assert.Equal(t, StatusSuspended, rows[0].Status)
		assert.True(t, rows[0].SuspensionHistory.Current().Until.Before(now))

		rows, err = repo.List(ctx, ListQuery{Filter: FilterActive, Sort: SortUpdatedAt, Direction: Desc})
		require.NoError(t, err)
		for _, row := range rows {
			assert.NotEqual(t, carol, row.UserID)
		}
	})

	t.Run("trust score descending", func(t *testing.T) {
		_, err := repo.SetScore(ctx, alice, 90, now)
		require.NoError(t, err)
		_, err = repo.SetScore(ctx, carol, 55, now)
		require.NoError(t, err)

		rows, err := repo.List(ctx, ListQuery{Filter: FilterAll, Sort: SortTrustScore, Direction: Desc})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		for i := 1; i < len(rows); i++ {
			assert.LessOrEqual(t, rows[i].TrustScore, rows[i-1].TrustScore)
		}
		assert.Equal(t, []string{alice, carol, bob}, []string{rows[0].UserID, rows[1].UserID, rows[2].UserID})
	})

	t.Run("unknown user maps to not found", func(t *testing.T) {
		_, err := repo.IncrementWarning(ctx, uuid.New().String(), now)
		assert.ErrorIs(t, err, core.ErrNotFound)

		_, err = repo.Get(ctx, uuid.New().String())
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}
