// Package cache 提供 cache-aside 模式的查询缓存执行器。
//
// GetOrCompute 封装"查缓存-回源-写缓存"的完整路径：命中时直接
// 反序列化到 dest，回源函数不执行；未命中时执行回源函数，成功结果
// 序列化后带 TTL 写入，失败结果绝不缓存、错误原样向上传播。
//
// 并发的未命中调用方各自回源，后写者覆盖先写者（不做请求合并，
// 回源函数必须幂等且可并发）。缓存层故障降级为"每次都回源"，
// 不会放大为业务故障。
//
// ## 驱动
//
//   - distributed：基于共享存储（Redis），多进程命中同一份缓存
//   - standalone：基于 otter 的进程内缓存（单机模式与测试）
//
// ## 基本使用
//
//	exec, _ := cache.New(&cache.Config{Driver: cache.DriverDistributed},
//	    cache.WithStore(st), cache.WithLogger(logger))
//	defer exec.Close()
//
//	var user User
//	key := cache.QueryKey("get_user", userID)
//	hit, err := exec.GetOrCompute(ctx, key, 5*time.Minute, &user,
//	    func(ctx context.Context) (any, error) {
//	        return loadUser(ctx, userID)
//	    })
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/cache/serializer"
)

// 驱动类型
const (
	DriverDistributed = "distributed"
	DriverStandalone  = "standalone"
)

// ComputeFunc 回源函数，返回待缓存的值。
type ComputeFunc func(ctx context.Context) (any, error)

// Executor 缓存执行器接口
type Executor interface {
	// GetOrCompute 按 cache-aside 模式读取 key。
	//
	// 命中：反序列化到 dest，返回 (true, nil)，compute 不执行。
	// 未命中：执行 compute，成功结果写入缓存并填充 dest，返回 (false, nil)；
	// compute 失败时不缓存任何内容，错误原样返回。
	// ttl <= 0 时使用配置的 DefaultTTL。
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, dest any, compute ComputeFunc) (hit bool, err error)

	// Invalidate 删除单个缓存键。键不存在时不报错。
	Invalidate(ctx context.Context, key string) error

	// InvalidatePrefix 删除所有以 prefix 开头的缓存键，返回删除数量。
	InvalidatePrefix(ctx context.Context, prefix string) (int64, error)

	// Close 释放驱动持有的资源（standalone 的维护协程等）。
	Close() error
}

// Config 缓存组件配置
type Config struct {
	// Driver 驱动类型："distributed" | "standalone"（默认 "distributed"）
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Prefix 缓存键前缀（默认 "cache:"）
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// DefaultTTL 未显式指定 TTL 时的过期时间（默认 1h）
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`

	// Serializer 序列化器类型："json" | "msgpack"（默认 "json"）
	Serializer string `json:"serializer" yaml:"serializer" mapstructure:"serializer"`

	// Capacity standalone 驱动的最大条目数（默认 10000）
	Capacity int64 `json:"capacity" yaml:"capacity" mapstructure:"capacity"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverDistributed
	}
	if c.Prefix == "" {
		c.Prefix = "cache:"
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = time.Hour
	}
	if c.Capacity <= 0 {
		c.Capacity = 10000
	}
}

// QueryKey 为操作和参数生成稳定的缓存键。
//
// 同一操作与参数组合总是产出同一个键；键形如
// "{operation}:{sha256(参数序列化)}"，参数内容不会出现在键中。
func QueryKey(operation string, args ...any) string {
	if len(args) == 0 {
		return operation
	}
	data, err := json.Marshal(args)
	if err != nil {
		// 不可序列化的参数退化为 %v 表示，仍保证确定性
		data = []byte(fmt.Sprintf("%v", args))
	}
	sum := sha256.Sum256(data)
	return operation + ":" + hex.EncodeToString(sum[:])
}

// New 根据配置创建缓存执行器。
//
// distributed 驱动需要通过 WithStore 注入共享存储。
func New(cfg *Config, opts ...Option) (Executor, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	opt := newOptions(opts...)

	ser, err := serializer.New(cfg.Serializer)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverStandalone:
		return newStandalone(cfg, ser, opt)
	case DriverDistributed:
		if opt.store == nil {
			return nil, ErrStoreNil
		}
		return newDistributed(cfg, ser, opt), nil
	default:
		return nil, ErrUnsupportedDriver
	}
}
