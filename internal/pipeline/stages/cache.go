// internal/pipeline/stages/cache.go
package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/models"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through Redis cache of resolved stage lists. All failures
// are soft: a cache miss is the worst outcome.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "stage-cache"}),
	}
}

func cacheKey(organizationID, jobID string) string {
	return fmt.Sprintf("pipeline:stages:%s:%s", organizationID, jobID)
}

// Get returns the cached stage list for a job, or false on miss or error.
func (c *Cache) Get(ctx context.Context, organizationID, jobID string) ([]models.StageDefinition, bool) {
	payload, err := c.client.Get(ctx, cacheKey(organizationID, jobID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("stage cache read failed", map[string]interface{}{
			"jobId": jobID,
			"error": err.Error(),
		})
		return nil, false
	}

	var defs []models.StageDefinition
	if err := json.Unmarshal([]byte(payload), &defs); err != nil || len(defs) == 0 {
		// Corrupt entry: drop it and fall through to the database.
		c.client.Del(ctx, cacheKey(organizationID, jobID))
		return nil, false
	}

	return defs, true
}

// Put stores a resolved stage list. Errors are logged and swallowed.
func (c *Cache) Put(ctx context.Context, organizationID, jobID string, defs []models.StageDefinition) {
	payload, err := json.Marshal(defs)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, cacheKey(organizationID, jobID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("stage cache write failed", map[string]interface{}{
			"jobId": jobID,
			"error": err.Error(),
		})
	}
}

// Invalidate removes a job's cached stage list, e.g. after a pipeline edit.
func (c *Cache) Invalidate(ctx context.Context, organizationID, jobID string) {
	if err := c.client.Del(ctx, cacheKey(organizationID, jobID)).Err(); err != nil {
		c.logger.Warn("stage cache invalidation failed", map[string]interface{}{
			"jobId": jobID,
			"error": err.Error(),
		})
	}
}
