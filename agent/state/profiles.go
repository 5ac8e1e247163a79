package state

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultProfileCacheSize = 512
	defaultProfileCacheTTL  = 5 * time.Minute
)

// CachedProfiles fronts a ProfileStore with an expiring LRU keyed by user id.
// Only single-profile reads are cached; list calls always hit the inner store.
type CachedProfiles struct {
	inner ProfileStore
	cache *expirable.LRU[string, *Profile]
}

var _ ProfileStore = (*CachedProfiles)(nil)

func NewCachedProfiles(inner ProfileStore, size int, ttl time.Duration) *CachedProfiles {
	if size <= 0 {
		size = defaultProfileCacheSize
	}
	if ttl <= 0 {
		ttl = defaultProfileCacheTTL
	}
	return &CachedProfiles{
		inner: inner,
		cache: expirable.NewLRU[string, *Profile](size, nil, ttl),
	}
}

func (c *CachedProfiles) LoadProfile(ctx context.Context, userID string) (*Profile, error) {
	if p, ok := c.cache.Get(userID); ok {
		return cloneProfile(p), nil
	}
	p, err := c.inner.LoadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(userID, cloneProfile(p))
	return p, nil
}

func (c *CachedProfiles) SaveProfile(ctx context.Context, p *Profile) error {
	if err := c.inner.SaveProfile(ctx, p); err != nil {
		return err
	}
	c.cache.Remove(p.UserID)
	return nil
}

func (c *CachedProfiles) ListProfiles(ctx context.Context, limit int) ([]Profile, error) {
	return c.inner.ListProfiles(ctx, limit)
}

func (c *CachedProfiles) ListProfilesWithPlaceID(ctx context.Context, limit int) ([]Profile, error) {
	return c.inner.ListProfilesWithPlaceID(ctx, limit)
}
