package vendors

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
)

const defaultCacheTTL = 5 * time.Minute

// Cache is a TTL cache over the vendor directory. It is an explicit object
// owned by its caller, with an injectable clock; nothing here is a package
// singleton.
type Cache struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time

	mu        sync.RWMutex
	byID      map[uuid.UUID]models.Vendor
	loadedAt  time.Time
	populated bool
}

// CacheOption tunes cache behavior.
type CacheOption func(*Cache)

// WithTTL overrides the cache expiry window.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache builds a vendor cache over the provided repository.
func NewCache(repo Repository, opts ...CacheOption) *Cache {
	c := &Cache{
		repo: repo,
		ttl:  defaultCacheTTL,
		now:  time.Now,
		byID: make(map[uuid.UUID]models.Vendor),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the vendor by id, refreshing the cache when stale.
func (c *Cache) Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	if vendor, ok := c.lookup(id); ok {
		return vendor, nil
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if vendor, ok := c.lookup(id); ok {
		return vendor, nil
	}

	// Not in the active set; fall through to a direct read so recently
	// deactivated vendors still resolve for historical orders.
	return c.repo.FindByID(ctx, id)
}

// List returns all active vendors, refreshing the cache when stale.
func (c *Cache) List(ctx context.Context) ([]models.Vendor, error) {
	c.mu.RLock()
	fresh := c.populated && c.now().Sub(c.loadedAt) < c.ttl
	c.mu.RUnlock()

	if !fresh {
		if err := c.refresh(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]models.Vendor, 0, len(c.byID))
	for _, vendor := range c.byID {
		list = append(list, vendor)
	}
	return list, nil
}

// Invalidate drops the cached set; the next read reloads it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.populated = false
	c.byID = make(map[uuid.UUID]models.Vendor)
}

func (c *Cache) lookup(id uuid.UUID) (*models.Vendor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.populated || c.now().Sub(c.loadedAt) >= c.ttl {
		return nil, false
	}
	vendor, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &vendor, true
}

func (c *Cache) refresh(ctx context.Context) error {
	list, err := c.repo.ListActive(ctx)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]models.Vendor, len(list))
	for _, vendor := range list {
		byID[vendor.ID] = vendor
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = byID
	c.loadedAt = c.now()
	c.populated = true
	return nil
}
