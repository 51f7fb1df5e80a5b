package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"
)

// KeyDeleter deletes a single cache key. Deleting an absent key succeeds.
type KeyDeleter interface {
	Del(ctx context.Context, key string) error
}

// RetryRecorder counts processed retry tasks by outcome.
type RetryRecorder interface {
	InvalidationRetried(status string)
}

// CacheInvalidateJob deletes cache keys whose invalidation failed on the
// request path.
type CacheInvalidateJob struct {
	Cache   KeyDeleter
	Logger  *slog.Logger
	Metrics RetryRecorder
}

// NewCacheInvalidateJob wires dependencies for the invalidation handler.
func NewCacheInvalidateJob(cache KeyDeleter, logger *slog.Logger, metrics RetryRecorder) *CacheInvalidateJob {
	return &CacheInvalidateJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes TaskCacheInvalidate tasks. Every key is attempted; the task
// fails, and is retried by Asynq, if any deletion fails.
func (j *CacheInvalidateJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Cache == nil {
		return errors.New("cache invalidate: handler not configured")
	}
	var payload CacheInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("cache invalidate: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if len(payload.Keys) == 0 {
		return nil
	}

	defer func() {
		if j.Metrics == nil {
			return
		}
		if resultErr != nil {
			j.Metrics.InvalidationRetried("error")
			return
		}
		j.Metrics.InvalidationRetried("success")
	}()

	var errs []error
	for _, key := range payload.Keys {
		if err := j.Cache.Del(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		j.logger().Warn("cache invalidation retry failed", slog.Any("keys", payload.Keys), slog.Any("error", err))
		return err
	}
	j.logger().Info("cache invalidation retried", slog.Any("keys", payload.Keys))
	return nil
}

func (j *CacheInvalidateJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
