package recipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*CachedSource)(nil)

// CachedSource is a read-through cache in front of another recipe source.
// Cache failures are logged and never fail a fetch.
type CachedSource struct {
	next  domain.RecipeSource
	cache domain.RecipeCache
	log   *logger.Logger
	now   func() time.Time
}

// NewCachedSource wraps next with cache.
func NewCachedSource(next domain.RecipeSource, cache domain.RecipeCache, log *logger.Logger) *CachedSource {
	return &CachedSource{next: next, cache: cache, log: log, now: time.Now}
}

// Fetch returns the cached recipe for ref, fetching and storing it on a miss.
func (s *CachedSource) Fetch(ctx context.Context, ref string) (*domain.Recipe, error) {
	r, err := s.cache.Get(ctx, ref)
	switch {
	case err == nil:
		s.log.Debug("recipe cache hit: %s", ref)
		return r, nil
	case !errors.Is(err, domain.ErrNotFound):
		s.log.Warn("recipe cache read failed for %s: %v", ref, err)
	}

	r, err = s.next.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, ref, r, s.now()); err != nil {
		s.log.Warn("recipe cache write failed for %s: %v", ref, err)
	}
	return r, nil
}

// Refresh bypasses the cache, fetching ref again and overwriting the entry.
func (s *CachedSource) Refresh(ctx context.Context, ref string) (*domain.Recipe, error) {
	r, err := s.next.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, ref, r, s.now()); err != nil {
		return r, fmt.Errorf("caching %s: %w", ref, err)
	}
	return r, nil
}
