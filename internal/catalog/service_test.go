// AngelaMos | 2026
// service_test.go

package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/core/coretest"
	"github.com/carterperez-dev/gigmarket/internal/journal/journaltest"
)

type memRepo struct {
	mu         sync.Mutex
	categories map[string]Category
	locations  map[string]Location
	listCalls  int
}

func newMemRepo() *memRepo {
	return &memRepo{categories: map[string]Category{}, locations: map[string]Location{}}
}

func (m *memRepo) ListCategories(_ context.Context, activeOnly bool) ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	var out []Category
	for _, c := range m.categories {
		if !activeOnly || c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepo) GetCategory(_ context.Context, id string) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, fmt.Errorf("get category: %w", core.ErrNotFound)
	}
	return &c, nil
}

func (m *memRepo) CreateCategory(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if existing.Slug == c.Slug {
			return fmt.Errorf("create category: %w", core.ErrDuplicateKey)
		}
	}
	if c.ParentID != nil {
		if _, ok := m.categories[*c.ParentID]; !ok {
			return fmt.Errorf("create category: %w", core.ErrNotFound)
		}
	}
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()
	m.categories[c.ID] = *c
	return nil
}

func (m *memRepo) UpdateCategory(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = *c
	return nil
}

func (m *memRepo) DeleteCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return fmt.Errorf("delete category: %w", core.ErrNotFound)
	}
	delete(m.categories, id)
	return nil
}

func (m *memRepo) ListLocations(_ context.Context, activeOnly bool) ([]Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	var out []Location
	for _, l := range m.locations {
		if !activeOnly || l.IsActive {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memRepo) GetLocation(_ context.Context, id string) (*Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locations[id]
	if !ok {
		return nil, fmt.Errorf("get location: %w", core.ErrNotFound)
	}
	return &l, nil
}

func (m *memRepo) CreateLocation(_ context.Context, l *Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.New().String()
	m.locations[l.ID] = *l
	return nil
}

func (m *memRepo) UpdateLocation(_ context.Context, l *Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[l.ID] = *l
	return nil
}

func (m *memRepo) DeleteLocation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, id)
	return nil
}

func newTestService(repo *memRepo, rec *journaltest.Recorder) *Service {
	return NewService(ServiceConfig{
		DB:         &coretest.Tx{},
		Repository: func(core.DBTX) Repository { return repo },
		Journal:    rec.Factory(),
		CacheTTL:   time.Minute,
	})
}

func TestPublicCategories_CachedUntilChange(t *testing.T) {
	repo := newMemRepo()
	rec := &journaltest.Recorder{}
	svc := newTestService(repo, rec)
	ctx := context.Background()

	first, err := svc.PublicCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, first)
	assert.NotNil(t, first)

	_, err = svc.PublicCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	_, err = svc.CreateCategory(ctx, "admin", CategoryRequest{Name: "Design", Slug: "Design"})
	require.NoError(t, err)

	out, err := svc.PublicCategories(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "design", out[0].Slug)
	assert.Equal(t, 2, repo.listCalls)
	assert.Equal(t, []string{"catalog.category_created"}, rec.Actions())
}

func TestCreateCategory_Validation(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &journaltest.Recorder{})
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, "admin", CategoryRequest{Name: "Bad", Slug: "not a slug"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.CreateCategory(ctx, "admin", CategoryRequest{Name: "Dev", Slug: "dev"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, "admin", CategoryRequest{Name: "Dev again", Slug: "dev"})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	missing := uuid.New().String()
	_, err = svc.CreateCategory(ctx, "admin", CategoryRequest{Name: "Child", Slug: "child", ParentID: &missing})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateCategory_RejectsSelfParent(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &journaltest.Recorder{})
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, "admin", CategoryRequest{Name: "Dev", Slug: "dev"})
	require.NoError(t, err)

	_, err = svc.UpdateCategory(ctx, "admin", c.ID, CategoryRequest{Name: "Dev", Slug: "dev", ParentID: &c.ID})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestInactiveLocationsHiddenFromPublicList(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &journaltest.Recorder{})
	ctx := context.Background()

	inactive := false
	_, err := svc.CreateLocation(ctx, "admin", LocationRequest{Name: "Lagos", CountryCode: "ng"})
	require.NoError(t, err)
	hidden, err := svc.CreateLocation(ctx, "admin", LocationRequest{Name: "Berlin", CountryCode: "de", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "DE", hidden.CountryCode)

	public, err := svc.PublicLocations(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Lagos", public[0].Name)

	all, err := svc.AllLocations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteCategory_NotFound(t *testing.T) {
	svc := newTestService(newMemRepo(), &journaltest.Recorder{})

	err := svc.DeleteCategory(context.Background(), "admin", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.True(t, core.IsAppError(err))
}
