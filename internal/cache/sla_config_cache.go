package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/observability"
)

const configKeyPrefix = "sla:config:"

// ConfigLoader is the source of truth behind the cache.
type ConfigLoader interface {
	LoadCompanySet(ctx context.Context, companyID string) (domain.CompanySLAConfigSet, error)
}

// SLAConfigCache keeps each company's SLA configuration set in Redis as JSON.
// Redis failures are logged and the loader is used directly.
type SLAConfigCache struct {
	client  redis.Cmdable
	loader  ConfigLoader
	ttl     time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewSLAConfigCache builds the cache. A nil client or a zero ttl disables caching.
func NewSLAConfigCache(client redis.Cmdable, loader ConfigLoader, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *SLAConfigCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAConfigCache{client: client, loader: loader, ttl: ttl, logger: logger, metrics: metrics}
}

func configKey(companyID string) string {
	return configKeyPrefix + companyID
}

func (c *SLAConfigCache) enabled() bool {
	return c.client != nil && c.ttl > 0
}

// LoadCompanySet returns the company's configuration, from Redis when fresh.
func (c *SLAConfigCache) LoadCompanySet(ctx context.Context, companyID string) (domain.CompanySLAConfigSet, error) {
	if !c.enabled() {
		return c.loader.LoadCompanySet(ctx, companyID)
	}

	key := configKey(companyID)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var set domain.CompanySLAConfigSet
		if jsonErr := json.Unmarshal(raw, &set); jsonErr == nil {
			c.metrics.RecordCacheLookup("hit")
			return set, nil
		}
		c.logger.Warn("discarding undecodable sla config cache entry", zap.String("key", key))
		c.metrics.RecordCacheLookup("error")
	case errors.Is(err, redis.Nil):
		c.metrics.RecordCacheLookup("miss")
	default:
		c.logger.Warn("sla config cache read failed", zap.String("key", key), zap.Error(err))
		c.metrics.RecordCacheLookup("error")
	}

	set, err := c.loader.LoadCompanySet(ctx, companyID)
	if err != nil {
		return set, err
	}

	payload, err := json.Marshal(set)
	if err != nil {
		return set, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("sla config cache write failed", zap.String("key", key), zap.Error(err))
	}
	return set, nil
}

// Invalidate drops a company's cached configuration.
func (c *SLAConfigCache) Invalidate(ctx context.Context, companyID string) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, configKey(companyID)).Err()
}
