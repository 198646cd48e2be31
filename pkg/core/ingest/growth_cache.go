package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dcf_valuation/pkg/core/assumption"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	growthKeyPrefix = "dcf:growth:"
	// Stored for tickers the upstream has no estimate for.
	noEstimateMarker = "none"
)

// CachedGrowthEstimator is a read-through Redis cache in front of another
// GrowthEstimator. Cache errors never fail a lookup; they fall through to the
// upstream estimator.
type CachedGrowthEstimator struct {
	next   GrowthEstimator
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedGrowthEstimator wraps next with a Redis cache.
func NewCachedGrowthEstimator(next GrowthEstimator, rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedGrowthEstimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedGrowthEstimator{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func growthKey(ticker string) string {
	return growthKeyPrefix + strings.ToUpper(ticker)
}

// EstimateGrowth implements GrowthEstimator.
func (c *CachedGrowthEstimator) EstimateGrowth(ctx context.Context, ticker string) (*assumption.GrowthEstimate, error) {
	key := growthKey(ticker)

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cached == noEstimateMarker {
			return nil, nil
		}
		var est assumption.GrowthEstimate
		if jsonErr := json.Unmarshal([]byte(cached), &est); jsonErr == nil {
			return &est, nil
		}
		c.logger.Warn("discarding corrupt growth cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
		// miss
	default:
		c.logger.Warn("growth cache read failed", zap.String("key", key), zap.Error(err))
	}

	est, err := c.next.EstimateGrowth(ctx, ticker)
	if err != nil {
		return nil, err
	}

	value := noEstimateMarker
	if est != nil {
		data, err := json.Marshal(est)
		if err != nil {
			return nil, fmt.Errorf("failed to encode growth estimate: %w", err)
		}
		value = string(data)
	}
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("growth cache write failed", zap.String("key", key), zap.Error(err))
	}
	return est, nil
}
