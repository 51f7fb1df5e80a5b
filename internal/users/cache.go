package users

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/userdir/userdir/internal/platform/cache"
)

// DefaultCacheTTL is the lifetime of every cache entry.
const DefaultCacheTTL = 600 * time.Second

// DefaultFillTimeout bounds the store read behind a coalesced cache fill.
const DefaultFillTimeout = 5 * time.Second

// retryEnqueueTimeout bounds the detached hand-off of failed invalidations.
const retryEnqueueTimeout = 5 * time.Second

// Cache entry kinds, used as metric labels.
const (
	EntryCollection = "collection"
	EntryRecord     = "record"
)

// CollectionKey caches the full listing.
const CollectionKey = "users:all"

// RecordKey caches a single user by id.
func RecordKey(id int64) string {
	return "users:id:" + strconv.FormatInt(id, 10)
}

// Cache is the key/value port. Get reports absence with cache.ErrMiss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CacheObserver receives cache outcome notifications.
type CacheObserver interface {
	CacheHit(entry string)
	CacheMiss(entry string)
	InvalidationFailed()
}

// InvalidationRetrier schedules a later deletion of keys whose invalidation
// failed.
type InvalidationRetrier interface {
	RetryInvalidation(ctx context.Context, keys []string) error
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)     {}
func (nopObserver) CacheMiss(string)    {}
func (nopObserver) InvalidationFailed() {}

func (s *Service) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cacheTimeout > 0 {
		return context.WithTimeout(ctx, s.cacheTimeout)
	}
	return ctx, func() {}
}

// readCache decodes the entry under key into dest. Any failure is a miss.
func (s *Service) readCache(ctx context.Context, key, entry string, dest any) bool {
	cctx, cancel := s.cacheContext(ctx)
	defer cancel()

	payload, err := s.cache.Get(cctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		s.observer.CacheMiss(entry)
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		s.logger.Warn("cache entry undecodable", slog.String("key", key), slog.Any("error", err))
		s.observer.CacheMiss(entry)
		return false
	}
	s.observer.CacheHit(entry)
	return true
}

// fillCache stores value under key with the configured TTL. Failures only
// cost a future miss.
func (s *Service) fillCache(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache encode failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	cctx, cancel := s.cacheContext(ctx)
	defer cancel()
	if err := s.cache.Set(cctx, key, payload, s.ttl); err != nil {
		s.logger.Warn("cache fill failed", slog.String("key", key), slog.Any("error", err))
	}
}

// invalidate deletes the collection key and the record key for id. It must
// only run after a successful store write. Failed deletions are logged and
// handed to the retrier off the request path.
func (s *Service) invalidate(ctx context.Context, id int64) {
	var failed []string
	for _, key := range []string{CollectionKey, RecordKey(id)} {
		cctx, cancel := s.cacheContext(ctx)
		err := s.cache.Del(cctx, key)
		cancel()
		if err != nil {
			s.logger.Warn("cache invalidation failed", slog.String("key", key), slog.Any("error", err))
			s.observer.InvalidationFailed()
			failed = append(failed, key)
		}
	}
	if len(failed) == 0 || s.retrier == nil {
		return
	}
	go func(keys []string) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), retryEnqueueTimeout)
		defer cancel()
		if err := s.retrier.RetryInvalidation(rctx, keys); err != nil {
			s.logger.Error("schedule invalidation retry", slog.Any("keys", keys), slog.Any("error", err))
		}
	}(failed)
}
