// AngelaMos | 2026
// service_test.go

package rbac

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/journal/journaltest"
)

type memRepo struct {
	mu    sync.Mutex
	users map[string]bool
	roles map[string][]string
	reads int
	ops   []string
}

func newMemRepo(users ...string) *memRepo {
	r := &memRepo{users: map[string]bool{}, roles: map[string][]string{}}
	for _, u := range users {
		r.users[u] = true
	}
	return r
}

func (r *memRepo) ListForUser(_ context.Context, userID string) ([]UserRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++

	out := make([]UserRole, 0, len(r.roles[userID]))
	for _, role := range r.roles[userID] {
		out = append(out, UserRole{UserID: userID, Role: role})
	}
	return out, nil
}

func (r *memRepo) Add(_ context.Context, userID, role string, _ *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.users[userID] {
		return false, fmt.Errorf("user_roles_user_id_fkey: %w", core.ErrNotFound)
	}
	if slices.Contains(r.roles[userID], role) {
		return false, nil
	}
	r.roles[userID] = append(r.roles[userID], role)
	slices.Sort(r.roles[userID])
	return true, nil
}

func (r *memRepo) Remove(_ context.Context, userID, role string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ops = append(r.ops, "remove:"+role)
	i := slices.Index(r.roles[userID], role)
	if i < 0 {
		return false, nil
	}
	r.roles[userID] = slices.Delete(r.roles[userID], i, i+1)
	return true, nil
}

func (r *memRepo) DeleteAll(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "delete_all")
	delete(r.roles, userID)
	return nil
}

func (r *memRepo) LockHolders(_ context.Context, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "lock:"+role)
	return nil
}

func (r *memRepo) CountWithRole(_ context.Context, role string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, roles := range r.roles {
		if slices.Contains(roles, role) {
			n++
		}
	}
	return n, nil
}

// txDB snapshots the store and restores it when the callback fails, the
// way a rolled back transaction would.
type txDB struct {
	repo *memRepo
}

func (d *txDB) Conn() core.DBTX { return nil }

func (d *txDB) InTx(ctx context.Context, fn func(tx core.DBTX) error) error {
	d.repo.mu.Lock()
	saved := make(map[string][]string, len(d.repo.roles))
	for k, v := range d.repo.roles {
		saved[k] = slices.Clone(v)
	}
	d.repo.mu.Unlock()

	if err := fn(nil); err != nil {
		d.repo.mu.Lock()
		d.repo.roles = saved
		d.repo.mu.Unlock()
		return err
	}
	return nil
}

func newTestService(repo *memRepo, rec *journaltest.Recorder) *Service {
	return NewService(ServiceConfig{
		DB:         &txDB{repo: repo},
		Repository: func(core.DBTX) Repository { return repo },
		Journal:    rec.Factory(),
		CacheSize:  16,
		CacheTTL:   time.Minute,
	})
}

func TestHasRole_CachesLookups(t *testing.T) {
	repo := newMemRepo("u1")
	repo.roles["u1"] = []string{RoleModerator}
	svc := newTestService(repo, &journaltest.Recorder{})
	ctx := context.Background()

	has, err := svc.HasRole(ctx, "u1", RoleModerator)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = svc.HasRole(ctx, "u1", RoleAdmin)
	require.NoError(t, err)
	assert.False(t, has)

	assert.Equal(t, 1, repo.reads)
}

func TestHasRole_UnknownRole(t *testing.T) {
	svc := newTestService(newMemRepo(), &journaltest.Recorder{})

	_, err := svc.HasRole(context.Background(), "u1", "superuser")

	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestAddRole_InvalidatesCache(t *testing.T) {
	repo := newMemRepo("admin", "u1")
	rec := &journaltest.Recorder{}
	svc := newTestService(repo, rec)
	ctx := context.Background()

	has, err := svc.HasRole(ctx, "u1", RoleSupport)
	require.NoError(t, err)
	require.False(t, has)

	resp, err := svc.AddRole(ctx, "admin", "u1", RoleSupport)
	require.NoError(t, err)
	assert.Equal(t, []string{RoleSupport}, resp.Roles)

	has, err = svc.HasRole(ctx, "u1", RoleSupport)
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, []string{"rbac.role_granted"}, rec.Actions())

	_, err = svc.AddRole(ctx, "admin", "u1", RoleSupport)
	require.NoError(t, err)
	assert.Len(t, rec.Entries, 1, "granting a held role is not journaled")
}

func TestAddRole_UnknownUser(t *testing.T) {
	svc := newTestService(newMemRepo("admin"), &journaltest.Recorder{})

	_, err := svc.AddRole(context.Background(), "admin", "ghost", RoleUser)

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRemoveRole_SelfAdminForbidden(t *testing.T) {
	repo := newMemRepo("admin")
	repo.roles["admin"] = []string{RoleAdmin}
	svc := newTestService(repo, &journaltest.Recorder{})

	_, err := svc.RemoveRole(context.Background(), "admin", "admin", RoleAdmin)

	assert.ErrorIs(t, err, core.ErrForbidden)
	assert.Equal(t, []string{RoleAdmin}, repo.roles["admin"])
}

func TestRemoveRole_LastAdminConflict(t *testing.T) {
	repo := newMemRepo("a1", "a2")
	repo.roles["a2"] = []string{RoleAdmin}
	svc := newTestService(repo, &journaltest.Recorder{})

	_, err := svc.RemoveRole(context.Background(), "a1", "a2", RoleAdmin)

	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, []string{RoleAdmin}, repo.roles["a2"])
}

func TestRemoveRole_NotHeld(t *testing.T) {
	svc := newTestService(newMemRepo("admin", "u1"), &journaltest.Recorder{})

	_, err := svc.RemoveRole(context.Background(), "admin", "u1", RoleSupport)

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReplaceRoles(t *testing.T) {
	repo := newMemRepo("admin", "u1")
	repo.roles["admin"] = []string{RoleAdmin}
	repo.roles["u1"] = []string{RoleSupport, RoleUser}
	rec := &journaltest.Recorder{}
	svc := newTestService(repo, rec)

	resp, err := svc.ReplaceRoles(context.Background(), "admin", "u1",
		[]string{RoleOpsAgent, RoleUser, RoleOpsAgent})

	require.NoError(t, err)
	assert.Equal(t, []string{RoleOpsAgent, RoleUser}, resp.Roles)

	last := rec.Last()
	assert.Equal(t, "rbac.roles_replaced", last.Action)
	assert.Equal(t, []string{RoleSupport, RoleUser}, last.Details["previous"])
}

func TestReplaceRoles_Guards(t *testing.T) {
	repo := newMemRepo("admin")
	repo.roles["admin"] = []string{RoleAdmin, RoleUser}
	svc := newTestService(repo, &journaltest.Recorder{})
	ctx := context.Background()

	_, err := svc.ReplaceRoles(ctx, "admin", "admin", []string{RoleUser})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.ReplaceRoles(ctx, "other", "admin", []string{RoleUser})
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, []string{RoleAdmin, RoleUser}, repo.roles["admin"])

	_, err = svc.ReplaceRoles(ctx, "other", "admin", []string{"root"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestDemotion_LocksAdminsFirst(t *testing.T) {
	ctx := context.Background()

	t.Run("remove admin", func(t *testing.T) {
		repo := newMemRepo("root", "a1")
		repo.roles["root"] = []string{RoleAdmin}
		repo.roles["a1"] = []string{RoleAdmin}
		svc := newTestService(repo, &journaltest.Recorder{})

		_, err := svc.RemoveRole(ctx, "root", "a1", RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, []string{"lock:admin", "remove:admin"}, repo.ops)
	})

	t.Run("replace without admin", func(t *testing.T) {
		repo := newMemRepo("root", "a1")
		repo.roles["root"] = []string{RoleAdmin}
		repo.roles["a1"] = []string{RoleAdmin, RoleUser}
		svc := newTestService(repo, &journaltest.Recorder{})

		_, err := svc.ReplaceRoles(ctx, "root", "a1", []string{RoleUser})
		require.NoError(t, err)
		assert.Equal(t, "lock:admin", repo.ops[0])
		assert.Contains(t, repo.ops, "delete_all")
	})

	t.Run("other roles take no lock", func(t *testing.T) {
		repo := newMemRepo("root", "m1")
		repo.roles["root"] = []string{RoleAdmin}
		repo.roles["m1"] = []string{RoleModerator}
		svc := newTestService(repo, &journaltest.Recorder{})

		_, err := svc.RemoveRole(ctx, "root", "m1", RoleModerator)
		require.NoError(t, err)
		assert.Equal(t, []string{"remove:moderator"}, repo.ops)
	})
}
