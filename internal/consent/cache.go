package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/peptide-safety-engine/internal/domain"
)

const redisKeyPrefix = "consent:status:"

// CacheConfig configures the consent status cache.
type CacheConfig struct {
	TTL      time.Duration
	MaxItems int
}

// CacheStats counts consent cache lookups per tier.
type CacheStats struct {
	MemoryHits    int64 `json:"memory_hits"`
	MemoryMisses  int64 `json:"memory_misses"`
	RedisHits     int64 `json:"redis_hits"`
	RedisMisses   int64 `json:"redis_misses"`
	ProviderCalls int64 `json:"provider_calls"`
	ErrorCount    int64 `json:"error_count"`
}

// CachedProvider caches consent statuses in Redis when a client is given,
// and in an in-memory LRU otherwise. The two tiers are never combined:
// Invalidate on one replica cannot reach another replica's memory, so a
// shared Redis is the only cache when one is configured. Provider errors
// are never cached. Callers that change consent must call Invalidate.
type CachedProvider struct {
	next   domain.ConsentStatusProvider
	memory *expirable.LRU[string, domain.ConsentStatus]
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger

	statsMu sync.Mutex
	stats   CacheStats
}

// NewCachedProvider wraps next. redisClient may be nil, in which case the
// cache is process-local.
func NewCachedProvider(next domain.ConsentStatusProvider, redisClient *redis.Client, cfg CacheConfig, logger *logrus.Logger) *CachedProvider {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 1000
	}
	c := &CachedProvider{
		next:   next,
		redis:  redisClient,
		ttl:    cfg.TTL,
		logger: logger,
	}
	if redisClient == nil {
		c.memory = expirable.NewLRU[string, domain.ConsentStatus](cfg.MaxItems, nil, cfg.TTL)
	}
	return c
}

// NewRedisClient connects to the Redis server at redisURL and checks that it answers.
func NewRedisClient(ctx context.Context, redisURL string, cfg domain.CacheConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// ConsentStatus returns the cached status or asks the wrapped provider.
func (c *CachedProvider) ConsentStatus(ctx context.Context, patientID, protocolID string) (domain.ConsentStatus, error) {
	key := cacheKey(patientID, protocolID)

	if c.memory != nil {
		if status, ok := c.memory.Get(key); ok {
			c.count(func(s *CacheStats) { s.MemoryHits++ })
			return status, nil
		}
		c.count(func(s *CacheStats) { s.MemoryMisses++ })
	}

	if status, ok := c.getFromRedis(ctx, key); ok {
		c.count(func(s *CacheStats) { s.RedisHits++ })
		return status, nil
	}

	c.count(func(s *CacheStats) { s.ProviderCalls++ })
	status, err := c.next.ConsentStatus(ctx, patientID, protocolID)
	if err != nil {
		c.count(func(s *CacheStats) { s.ErrorCount++ })
		return domain.ConsentStatus{}, err
	}

	if c.memory != nil {
		c.memory.Add(key, status)
	}
	c.setInRedis(ctx, key, status)
	return status, nil
}

// Invalidate drops the cached status of a patient and protocol.
func (c *CachedProvider) Invalidate(ctx context.Context, patientID, protocolID string) error {
	key := cacheKey(patientID, protocolID)
	if c.redis == nil {
		c.memory.Remove(key)
		return nil
	}
	if err := c.redis.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate consent cache: %w", err)
	}
	return nil
}

// Stats returns a copy of the lookup counters.
func (c *CachedProvider) Stats() CacheStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *CachedProvider) getFromRedis(ctx context.Context, key string) (domain.ConsentStatus, bool) {
	if c.redis == nil {
		return domain.ConsentStatus{}, false
	}

	val, err := c.redis.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.count(func(s *CacheStats) { s.RedisMisses++ })
		return domain.ConsentStatus{}, false
	}
	if err != nil {
		c.count(func(s *CacheStats) { s.RedisMisses++ })
		c.logger.WithError(err).Warn("Consent cache read failed, asking provider")
		return domain.ConsentStatus{}, false
	}

	var status domain.ConsentStatus
	if err := json.Unmarshal(val, &status); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, redisKeyPrefix+key)
		c.count(func(s *CacheStats) { s.RedisMisses++ })
		return domain.ConsentStatus{}, false
	}
	return status, true
}

func (c *CachedProvider) setInRedis(ctx context.Context, key string, status domain.ConsentStatus) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(status)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Consent cache write failed")
	}
}

func (c *CachedProvider) count(update func(*CacheStats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.statsMu.Unlock()
}

// cacheKey length-prefixes the patient id so ids containing the separator
// cannot collide.
func cacheKey(patientID, protocolID string) string {
	return fmt.Sprintf("%d:%s:%s", len(patientID), patientID, protocolID)
}
