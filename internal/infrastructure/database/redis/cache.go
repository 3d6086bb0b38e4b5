package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flexophore/pkg/errors"
)

// ErrCacheMiss reports an absent key.  errors.IsNotFound holds for it.
var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

const (
	DefaultPrefix = "flexo:"
	DefaultTTL    = 24 * time.Hour
	descSegment   = "desc:"
)

// DescriptorCache stores encoded descriptors under prefix + "desc:" + key.
type DescriptorCache struct {
	client     *Client
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
	jitter     float64
}

type CacheOption func(*DescriptorCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *DescriptorCache) { c.prefix = prefix }
}

// WithDefaultTTL sets the expiry of stored entries; zero keeps them forever.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *DescriptorCache) { c.defaultTTL = ttl }
}

// WithTTLJitter spreads expiries by +/- fraction of the TTL.
func WithTTLJitter(fraction float64) CacheOption {
	return func(c *DescriptorCache) { c.jitter = fraction }
}

func NewDescriptorCache(client *Client, log logging.Logger, opts ...CacheOption) *DescriptorCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &DescriptorCache{
		client:     client,
		logger:     log.Named("descriptor_cache"),
		prefix:     DefaultPrefix,
		defaultTTL: DefaultTTL,
		jitter:     0.1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *DescriptorCache) fullKey(key string) string {
	return c.prefix + descSegment + key
}

func (c *DescriptorCache) ttl() time.Duration {
	if c.defaultTTL <= 0 || c.jitter <= 0 {
		return max(c.defaultTTL, 0)
	}
	j := float64(c.defaultTTL) * c.jitter * (rand.Float64()*2 - 1)
	return c.defaultTTL + time.Duration(j)
}

// Get returns the payload stored under key or ErrCacheMiss.
func (c *DescriptorCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get descriptor from cache")
	}
	return data, nil
}

// Set stores payload under key with the default TTL.
func (c *DescriptorCache) Set(ctx context.Context, key string, payload []byte) error {
	if err := c.client.Set(ctx, c.fullKey(key), payload, c.ttl()).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to store descriptor in cache")
	}
	c.logger.Debug("descriptor cached", logging.String("key", key), logging.Int("bytes", len(payload)))
	return nil
}

// Delete removes keys; missing keys are ignored.
func (c *DescriptorCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete descriptors from cache")
	}
	return nil
}

// Ping checks the backing server.
func (c *DescriptorCache) Ping(ctx context.Context) error { return c.client.Ping(ctx) }
