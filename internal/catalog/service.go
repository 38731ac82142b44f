// AngelaMos | 2026
// service.go

package catalog

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/journal"
)

const (
	categoriesKey = "categories"
	locationsKey  = "locations"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type ServiceConfig struct {
	DB         core.Transactor
	Repository func(core.DBTX) Repository
	Journal    journal.Factory
	CacheSize  int
	CacheTTL   time.Duration
}

type Service struct {
	db         core.Transactor
	repo       func(core.DBTX) Repository
	journal    journal.Factory
	categories *core.Cache[[]Category]
	locations  *core.Cache[[]Location]
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:         cfg.DB,
		repo:       cfg.Repository,
		journal:    cfg.Journal,
		categories: core.NewCache[[]Category]("categories", cfg.CacheSize, cfg.CacheTTL),
		locations:  core.NewCache[[]Location]("locations", cfg.CacheSize, cfg.CacheTTL),
	}
	if s.repo == nil {
		s.repo = NewRepository
	}
	if s.journal == nil {
		s.journal = journal.New
	}
	return s
}

// PublicCategories returns active categories, served from cache when warm.
func (s *Service) PublicCategories(ctx context.Context) ([]Category, error) {
	if cached, ok := s.categories.Get(categoriesKey); ok {
		return cached, nil
	}

	out, err := s.repo(s.db.Conn()).ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Category{}
	}
	s.categories.Set(categoriesKey, out)
	return out, nil
}

func (s *Service) PublicLocations(ctx context.Context) ([]Location, error) {
	if cached, ok := s.locations.Get(locationsKey); ok {
		return cached, nil
	}

	out, err := s.repo(s.db.Conn()).ListLocations(ctx, true)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Location{}
	}
	s.locations.Set(locationsKey, out)
	return out, nil
}

func (s *Service) AllCategories(ctx context.Context) ([]Category, error) {
	return s.repo(s.db.Conn()).ListCategories(ctx, false)
}

func (s *Service) AllLocations(ctx context.Context) ([]Location, error) {
	return s.repo(s.db.Conn()).ListLocations(ctx, false)
}

func (s *Service) GetCategory(ctx context.Context, id string) (*Category, error) {
	c, err := s.repo(s.db.Conn()).GetCategory(ctx, id)
	if err != nil {
		return nil, notFound(err, "category")
	}
	return c, nil
}

func (s *Service) CreateCategory(ctx context.Context, actorID string, req CategoryRequest) (*Category, error) {
	c := &Category{IsActive: true}
	if err := applyCategory(c, req); err != nil {
		return nil, err
	}

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).CreateCategory(ctx, c); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "catalog.category_created", "category", c.ID, map[string]any{"slug": c.Slug})
	})
	if err != nil {
		return nil, categoryErr(err)
	}

	s.categories.Purge()
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, actorID, id string, req CategoryRequest) (*Category, error) {
	if req.ParentID != nil && *req.ParentID == id {
		return nil, core.ValidationError("a category cannot be its own parent")
	}

	var c *Category
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		var err error
		c, err = repo.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if err := applyCategory(c, req); err != nil {
			return err
		}
		if err := repo.UpdateCategory(ctx, c); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "catalog.category_updated", "category", c.ID, map[string]any{"slug": c.Slug})
	})
	if err != nil {
		return nil, categoryErr(err)
	}

	s.categories.Purge()
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, actorID, id string) error {
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).DeleteCategory(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "catalog.category_deleted", "category", id, nil)
	})
	if err != nil {
		return notFound(err, "category")
	}

	s.categories.Purge()
	return nil
}

func (s *Service) GetLocation(ctx context.Context, id string) (*Location, error) {
	l, err := s.repo(s.db.Conn()).GetLocation(ctx, id)
	if err != nil {
		return nil, notFound(err, "location")
	}
	return l, nil
}

func (s *Service) CreateLocation(ctx context.Context, actorID string, req LocationRequest) (*Location, error) {
	l := &Location{IsActive: true}
	applyLocation(l, req)

	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).CreateLocation(ctx, l); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "catalog.location_created", "location", l.ID, map[string]any{"name": l.Name})
	})
	if err != nil {
		return nil, locationErr(err)
	}

	s.locations.Purge()
	return l, nil
}

func (s *Service) UpdateLocation(ctx context.Context, actorID, id string, req LocationRequest) (*Location, error) {
	var l *Location
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repo(tx)

		var err error
		l, err = repo.GetLocation(ctx, id)
		if err != nil {
			return err
		}
		applyLocation(l, req)
		if err := repo.UpdateLocation(ctx, l); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "catalog.location_updated", "location", l.ID, map[string]any{"name": l.Name})
	})
	if err != nil {
		return nil, locationErr(err)
	}

	s.locations.Purge()
	return l, nil
}

func (s *Service) DeleteLocation(ctx context.Context, actorID, id string) error {
	err := s.db.InTx(ctx, func(tx core.DBTX) error {
		if err := s.repo(tx).DeleteLocation(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actorID, "catalog.location_deleted", "location", id, nil)
	})
	if err != nil {
		return notFound(err, "location")
	}

	s.locations.Purge()
	return nil
}

func (s *Service) record(
	ctx context.Context,
	tx core.DBTX,
	actorID, action, entityType, entityID string,
	details map[string]any,
) error {
	return s.journal(tx).Record(ctx, journal.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	})
}

func applyCategory(c *Category, req CategoryRequest) error {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		return core.ValidationError("slug must be lowercase letters, digits and single hyphens")
	}

	c.Name = strings.TrimSpace(req.Name)
	c.Slug = slug
	c.Description = strings.TrimSpace(req.Description)
	c.ParentID = req.ParentID
	c.SortOrder = req.SortOrder
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	return nil
}

func applyLocation(l *Location, req LocationRequest) {
	l.Name = strings.TrimSpace(req.Name)
	l.CountryCode = strings.ToUpper(req.CountryCode)
	l.Region = strings.TrimSpace(req.Region)
	if req.IsActive != nil {
		l.IsActive = *req.IsActive
	}
}

func notFound(err error, resource string) error {
	if !core.IsAppError(err) && errors.Is(err, core.ErrNotFound) {
		return core.NotFoundError(resource)
	}
	return err
}

// categoryErr maps a unique slug violation; a foreign key failure means the
// parent does not exist.
func categoryErr(err error) error {
	if core.IsAppError(err) {
		return err
	}
	if errors.Is(err, core.ErrDuplicateKey) {
		return core.DuplicateError("slug")
	}
	return notFound(err, "category")
}

func locationErr(err error) error {
	if core.IsAppError(err) {
		return err
	}
	if errors.Is(err, core.ErrDuplicateKey) {
		return core.DuplicateError("name and country_code")
	}
	return notFound(err, "location")
}
