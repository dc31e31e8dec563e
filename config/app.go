package config

import (
	"time"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/breaker"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/cache"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/connector"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/db"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/metrics"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/ratelimit"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/store"
)

// ProviderConfig 上游提供方配置
type ProviderConfig struct {
	// ID 提供方标识，同时作为熔断依赖 ID
	ID string `json:"id" yaml:"id" mapstructure:"id"`

	// Priority 优先级，数值越小越先尝试
	Priority int `json:"priority" yaml:"priority" mapstructure:"priority"`

	// BaseURL 提供方基础地址
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Timeout 单次调用超时（默认 30s）
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	// Addr 监听地址（默认 ":8080"）
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// AppConfig 网关应用的完整配置
type AppConfig struct {
	Server    ServerConfig             `json:"server" yaml:"server" mapstructure:"server"`
	Log       clog.Config              `json:"log" yaml:"log" mapstructure:"log"`
	Metrics   metrics.Config           `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Redis     connector.RedisConfig    `json:"redis" yaml:"redis" mapstructure:"redis"`
	Postgres  connector.PostgresConfig `json:"postgres" yaml:"postgres" mapstructure:"postgres"`
	Store     store.Config             `json:"store" yaml:"store" mapstructure:"store"`
	Breaker   breaker.Config           `json:"breaker" yaml:"breaker" mapstructure:"breaker"`
	RateLimit ratelimit.Config         `json:"ratelimit" yaml:"ratelimit" mapstructure:"ratelimit"`
	Cache     cache.Config             `json:"cache" yaml:"cache" mapstructure:"cache"`
	DB        db.Config                `json:"db" yaml:"db" mapstructure:"db"`
	Providers []ProviderConfig         `json:"providers" yaml:"providers" mapstructure:"providers"`
}

// DefaultApp 返回生产默认配置。
//
// 上游提供方 5 次失败 / 60s 冷却，数据库 3 次 / 30s；
// 限流默认每小时 1000 次，API 类别每分钟 100 次；
// 缓存默认 TTL 1h，连接池 10 连接 / 30s 等待 / 1h 回收。
func DefaultApp() *AppConfig {
	return &AppConfig{
		Server:  ServerConfig{Addr: ":8080"},
		Log:     *clog.DefaultConfig(),
		Metrics: metrics.Config{Namespace: "gateway"},
		Store:   store.Config{Driver: store.DriverDistributed, Prefix: "gateway:"},
		Breaker: breaker.Config{
			Default: breaker.Policy{FailureThreshold: 5, ResetTimeout: 60 * time.Second},
			Dependencies: map[string]breaker.Policy{
				"database": {FailureThreshold: 3, ResetTimeout: 30 * time.Second},
			},
		},
		RateLimit: ratelimit.Config{
			Default: ratelimit.Policy{Limit: 1000, Window: time.Hour, Class: "default"},
			Classes: map[string]ratelimit.Policy{
				"api": {Limit: 100, Window: time.Minute, Class: "api"},
			},
		},
		Cache: cache.Config{
			Driver:     cache.DriverDistributed,
			DefaultTTL: time.Hour,
			Serializer: "json",
		},
		DB: db.Config{
			Pool: db.PoolConfig{
				Size:           10,
				AcquireTimeout: 30 * time.Second,
				MaxConnAge:     time.Hour,
			},
		},
	}
}

// LoadApp 从加载器构造应用配置：默认值打底，配置来源覆盖。
func LoadApp(loader Loader) (*AppConfig, error) {
	cfg := DefaultApp()
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, err
	}
	for i := range cfg.Providers {
		if cfg.Providers[i].Timeout <= 0 {
			cfg.Providers[i].Timeout = 30 * time.Second
		}
	}
	return cfg, nil
}
