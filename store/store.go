// Package store 提供网关共享状态存储抽象。
//
// store 是熔断器状态、限流计数与查询缓存共同依赖的底层键值存储，
// 多进程通过同一存储观察到一致的逻辑状态。接口刻意保持很小：
// 除常规的 Get/Set/Delete 外，只暴露两个原子原语：
//
//   - IncrementIfBelow：窗口计数的原子自增 + 阈值判定（限流）
//   - CompareAndSet：状态记录的原子比较替换（熔断器状态迁移）
//
// 两个原语在 Redis 驱动中以 Lua 脚本实现，保证并发调用方不会
// 以读-改-写方式产生竞态。
//
// ## 驱动
//
//   - distributed：基于 Redis，多进程共享（生产模式）
//   - memory：进程内存，互斥锁保护（单机模式与测试）
//
// ## 基本使用
//
//	redisConn, _ := connector.NewRedis(redisCfg, connector.WithLogger(logger))
//	st, _ := store.New(&store.Config{
//	    Driver: store.DriverDistributed,
//	    Prefix: "biped:",
//	}, store.WithRedisConnector(redisConn), store.WithLogger(logger))
//
//	count, allowed, _ := st.IncrementIfBelow(ctx, "ratelimit:user:42", 100, time.Minute)
package store

import (
	"context"
	"time"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
)

// 驱动类型
const (
	DriverDistributed = "distributed"
	DriverMemory      = "memory"
)

// Store 共享状态存储接口
//
// 所有方法并发安全。key 在驱动内部统一追加配置的前缀。
type Store interface {
	// Get 读取键值。键不存在或已过期时返回 (nil, false, nil)。
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set 写入键值。ttl <= 0 表示不过期。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除单个键。键不存在时不报错。
	Delete(ctx context.Context, key string) error

	// IncrementIfBelow 原子自增计数并判定是否在阈值内。
	//
	// 每次调用都会保留自增（超限请求同样计入窗口，见限流语义）；
	// allowed 表示自增后的计数是否 <= limit。键首次创建时设置 ttl。
	IncrementIfBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (count int64, allowed bool, err error)

	// CompareAndSet 原子比较并替换键值。
	//
	// expected 为空表示"仅当键不存在时创建"。当前值与 expected
	// 一致时写入 newValue 并返回 true，否则不修改并返回 false。
	// ttl <= 0 表示新值不过期。
	CompareAndSet(ctx context.Context, key string, expected, newValue []byte, ttl time.Duration) (bool, error)

	// DeletePrefix 删除所有以 prefix 开头的键，返回删除数量。
	DeletePrefix(ctx context.Context, prefix string) (int64, error)

	// Ping 探测存储可达性，用于健康检查。
	Ping(ctx context.Context) error
}

// Config 存储组件配置
type Config struct {
	// Driver 驱动类型："distributed" | "memory"（默认 "distributed"）
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Prefix 全局键前缀，如 "biped:"（可选）
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
}

// New 根据配置创建存储实例
//
// distributed 驱动需要通过 WithRedisConnector 注入 Redis 连接器。
func New(cfg *Config, opts ...Option) (Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverDistributed
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}
	logger = logger.WithNamespace("store")

	switch cfg.Driver {
	case DriverMemory:
		return newMemory(cfg, logger), nil
	case DriverDistributed:
		if opt.redisConn == nil {
			return nil, ErrConnectorNil
		}
		return newRedis(cfg, opt.redisConn, logger), nil
	default:
		return nil, ErrUnsupportedDriver
	}
}
