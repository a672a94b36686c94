// Package resultcache memoizes the assembled best team per gameweek.
package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
	"github.com/m-mukund/fpl-optimizer/pkg/metrics"
)

// Defaults for the best-team cache.
const (
	DefaultTTL       = 600 * time.Second
	DefaultKeyPrefix = "best_team"
	DefaultMaxBudget = 1000
)

// Backend is a key/value store with per-key expiry.
type Backend interface {
	// Get returns the value for key, or false when it is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Assembler builds the team on a cache miss.
type Assembler interface {
	Assemble(ctx context.Context, maxBudget, period int) (model.TeamPayload, error)
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets how long an assembled team is served.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the prefix joined with the gameweek id to form keys.
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithMaxBudget sets the ceiling passed to the assembler on a miss.
func WithMaxBudget(budget int) Option {
	return func(c *Cache) {
		if budget > 0 {
			c.maxBudget = budget
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// Cache is a read-through cache in front of the team assembler.
//
// There is no locking across processes or requests: concurrent misses for
// the same gameweek each assemble the team and the last Set wins.
type Cache struct {
	backend   Backend
	assembler Assembler
	ttl       time.Duration
	prefix    string
	maxBudget int
	logger    logger.Logger
}

// New constructs a Cache.
func New(backend Backend, assembler Assembler, opts ...Option) *Cache {
	c := &Cache{
		backend:   backend,
		assembler: assembler,
		ttl:       DefaultTTL,
		prefix:    DefaultKeyPrefix,
		maxBudget: DefaultMaxBudget,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key for a gameweek.
func (c *Cache) Key(period int) string {
	return fmt.Sprintf("%s%d", c.prefix, period)
}

// GetOrComputeTeam returns the cached team for period or assembles, stores
// and returns it.
func (c *Cache) GetOrComputeTeam(ctx context.Context, period int) (model.TeamPayload, error) {
	key := c.Key(period)

	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		return model.TeamPayload{}, model.NewUpstreamError("cache", "get "+key, err)
	}
	if ok {
		var payload model.TeamPayload
		if err := json.Unmarshal(raw, &payload); err == nil {
			metrics.RecordCacheHit()
			c.info(ctx, "returning cached best team", logger.String("key", key))
			return payload, nil
		}
		// A corrupt entry is treated as a miss and overwritten below.
		c.warn(ctx, "discarding undecodable cache entry", logger.String("key", key))
	}

	metrics.RecordCacheMiss()
	c.info(ctx, "calculating best team", logger.String("key", key), logger.Int("max_budget", c.maxBudget))

	payload, err := c.assembler.Assemble(ctx, c.maxBudget, period)
	if err != nil {
		return model.TeamPayload{}, err
	}

	raw, err = json.Marshal(payload)
	if err != nil {
		return model.TeamPayload{}, fmt.Errorf("encode best team: %w", err)
	}
	if err := c.backend.Set(ctx, key, raw, c.ttl); err != nil {
		return model.TeamPayload{}, model.NewUpstreamError("cache", "set "+key, err)
	}
	return payload, nil
}

func (c *Cache) info(ctx context.Context, msg string, fields ...logger.Field) {
	if c.logger != nil {
		c.logger.Info(ctx, msg, fields...)
	}
}

func (c *Cache) warn(ctx context.Context, msg string, fields ...logger.Field) {
	if c.logger != nil {
		c.logger.Warn(ctx, msg, fields...)
	}
}
