package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/cache/serializer"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/metrics"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

// standaloneDefaultTTL 未指定 TTL 时 otter 的兜底过期时间（模拟永久）
const standaloneDefaultTTL = 24 * 365 * 100 * time.Hour

// standaloneCache 基于 otter 的进程内缓存执行器（非导出）
//
// otter 不支持按前缀遍历，这里额外维护一个键集合供
// InvalidatePrefix 使用。键集合只增不减地跟随写入，失效时同步清理。
type standaloneCache struct {
	cfg    *Config
	cache  *otter.Cache[string, []byte]
	ser    serializer.Serializer
	logger clog.Logger

	hits   metrics.Counter
	misses metrics.Counter

	mu   sync.Mutex
	keys map[string]struct{}
}

func newStandalone(cfg *Config, ser serializer.Serializer, opt options) (*standaloneCache, error) {
	logger := opt.logger.WithNamespace("cache")

	// 写入过期策略：TTL 从写入开始计算，读取不续期，与 Redis 语义一致
	cache, err := otter.New(&otter.Options[string, []byte]{
		MaximumSize:      int(cfg.Capacity),
		ExpiryCalculator: otter.ExpiryWriting[string, []byte](standaloneDefaultTTL),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "cache: build otter cache")
	}

	hits, _ := opt.meter.Counter("cache_hits_total", "Cache hits")
	misses, _ := opt.meter.Counter("cache_misses_total", "Cache misses")

	return &standaloneCache{
		cfg:    cfg,
		cache:  cache,
		ser:    ser,
		logger: logger,
		hits:   hits,
		misses: misses,
		keys:   make(map[string]struct{}),
	}, nil
}

func (c *standaloneCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, dest any, compute ComputeFunc) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if compute == nil {
		return false, ErrComputeNil
	}
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}

	if data, ok := c.cache.GetIfPresent(key); ok {
		if err := c.ser.Unmarshal(data, dest); err == nil {
			c.hits.Inc()
			return true, nil
		}
		c.logger.Warn("cached value undecodable, recomputing",
			clog.String("key", key))
	}
	c.misses.Inc()

	value, err := compute(ctx)
	if err != nil {
		return false, err
	}

	data, err := c.ser.Marshal(value)
	if err != nil {
		return false, xerrors.Wrap(err, "cache: marshal value")
	}
	if err := c.ser.Unmarshal(data, dest); err != nil {
		return false, xerrors.Wrap(err, "cache: fill dest")
	}

	c.cache.Set(key, data)
	c.cache.SetExpiresAfter(key, ttl)

	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()

	return false, nil
}

func (c *standaloneCache) Invalidate(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	c.cache.Invalidate(key)

	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
	return nil
}

func (c *standaloneCache) InvalidatePrefix(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, ErrKeyEmpty
	}

	c.mu.Lock()
	var matched []string
	for key := range c.keys {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
			delete(c.keys, key)
		}
	}
	c.mu.Unlock()

	for _, key := range matched {
		c.cache.Invalidate(key)
	}
	return int64(len(matched)), nil
}

func (c *standaloneCache) Close() error {
	c.cache.StopAllGoroutines()
	return nil
}
