package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
	"github.com/noah-isme/sma-adp-curriculum/internal/store"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

// CacheRepository abstracts persistence for cached query responses.
type CacheRepository interface {
	Enabled() bool
	Purge(ctx context.Context) error
}

// CacheService exposes freshness inspection and manual invalidation of the query cache.
type CacheService struct {
	queries *querycache.Client
	repo    CacheRepository
	logger  *zap.Logger
}

// NewCacheService constructs a cache service.
func NewCacheService(queries *querycache.Client, repo CacheRepository, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{queries: queries, repo: repo, logger: logger}
}

// Persistent indicates whether query results are written through to redis.
func (s *CacheService) Persistent() bool {
	return s != nil && s.repo != nil && s.repo.Enabled()
}

// Freshness reports the cache state of a query.
func (s *CacheService) Freshness(name string, params querycache.Params) (store.Freshness, error) {
	op, err := s.queries.Registry().Lookup(name)
	if err != nil {
		return store.Freshness{}, err
	}
	if op.Kind != querycache.KindQuery {
		return store.Freshness{}, appErrors.Clone(appErrors.ErrValidation, name+" is not a query")
	}
	return s.queries.Freshness(name, params), nil
}

// Invalidate marks every entry carrying one of tags as stale.
func (s *CacheService) Invalidate(ctx context.Context, tags []string) (int, error) {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	if len(cleaned) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "at least one tag is required")
	}
	affected := s.queries.Invalidate(ctx, cleaned...)
	s.logger.Info("cache invalidated", zap.Strings("tags", cleaned), zap.Int("affected", affected))
	return affected, nil
}

// Clear drops every cached entry, including persisted copies.
func (s *CacheService) Clear(ctx context.Context) error {
	s.queries.Clear()
	if !s.Persistent() {
		return nil
	}
	if err := s.repo.Purge(ctx); err != nil {
		s.logger.Warn("cache purge failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge persisted cache")
	}
	return nil
}

// Warm replays persisted responses into the in-memory store.
func (s *CacheService) Warm(ctx context.Context) (int, error) {
	if !s.Persistent() {
		return 0, nil
	}
	restored, err := s.queries.Hydrate(ctx)
	if err != nil {
		s.logger.Warn("cache warm-up failed", zap.Error(err))
		return 0, err
	}
	return restored, nil
}

// Entries returns the number of cached entries.
func (s *CacheService) Entries() int {
	return s.queries.Store().Len()
}

// Keys lists cached keys.
func (s *CacheService) Keys() []string {
	return s.queries.Store().Keys()
}
