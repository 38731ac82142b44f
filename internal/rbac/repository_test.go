// AngelaMos | 2026
// repository_test.go

package rbac

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

func insertAdmin(t *testing.T, db core.DBTX, email string) string {
	t.Helper()

	id := uuid.New().String()
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, 'x')`, id, email)
	require.NoError(t, err)

	added, err := NewRepository(db).Add(ctx, id, RoleAdmin, nil)
	require.NoError(t, err)
	require.True(t, added)

	return id
}

func TestConcurrentDemotions_KeepOneAdmin(t *testing.T) {
	db := coretest.NewPostgres(t)
	ctx := context.Background()

	first := insertAdmin(t, db.Conn(), "first@example.com")
	second := insertAdmin(t, db.Conn(), "second@example.com")

	svc := NewService(ServiceConfig{DB: db, CacheSize: 16, CacheTTL: time.Minute})

	start := make(chan struct{})
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i, id := range []string{first, second} {
		wg.Go(func() {
			<-start
			_, errs[i] = svc.RemoveRole(ctx, "", id, RoleAdmin)
		})
	}
	close(start)
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, core.ErrConflict)
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	n, err := NewRepository(db.Conn()).CountWithRole(ctx, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
