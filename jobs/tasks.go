package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheInvalidate retries cache deletions that failed after a write.
	TaskCacheInvalidate = "cache:invalidate"
)

// CacheInvalidatePayload lists the cache keys to delete.
type CacheInvalidatePayload struct {
	Keys []string `json:"keys"`
}

// NewCacheInvalidateTask constructs an Asynq task for keys.
func NewCacheInvalidateTask(keys []string) (*asynq.Task, error) {
	if len(keys) == 0 {
		return nil, errors.New("cache invalidate: no keys")
	}
	data, err := json.Marshal(CacheInvalidatePayload{Keys: keys})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheInvalidate, data), nil
}
