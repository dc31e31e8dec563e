// Package ratelimit 提供基于固定窗口的分布式限流器。
//
// 窗口按 (身份, 类别) 维度划分：window_start = floor(now/W)*W，计数键为
// "ratelimit:{class}:{identity}:{window_start}"，TTL 等于窗口长度，窗口
// 结束后计数自然过期。计数通过存储的 IncrementIfBelow 原语完成，先自增
// 后判定，超限的请求同样计入窗口（不回滚）。
//
// 限流器绝不因为存储故障而阻断业务：存储不可达时放行并记录降级日志。
//
// ## 基本使用
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{},
//	    ratelimit.WithStore(st), ratelimit.WithLogger(logger))
//
//	decision, _ := limiter.Allow(ctx, "user:42", ratelimit.Policy{
//	    Limit:  100,
//	    Window: time.Minute,
//	    Class:  "api",
//	})
//	if !decision.Allowed {
//	    // 429，decision.RetryAfter 为建议的重试等待时间
//	}
package ratelimit

import (
	"context"
	"time"
)

// Policy 限流策略
type Policy struct {
	// Limit 窗口内允许的最大请求数
	Limit int64 `json:"limit" yaml:"limit" mapstructure:"limit"`

	// Window 窗口长度
	Window time.Duration `json:"window" yaml:"window" mapstructure:"window"`

	// Class 限流类别，用于区分不同端点组的计数空间（如 "api"、"auth"）
	Class string `json:"class" yaml:"class" mapstructure:"class"`
}

// valid 策略必须有正的阈值与窗口
func (p Policy) valid() bool {
	return p.Limit > 0 && p.Window > 0
}

// Decision 单次限流判定结果
type Decision struct {
	// Allowed 是否放行
	Allowed bool

	// Count 自增后的窗口计数（含本次请求）
	Count int64

	// Remaining 窗口内剩余配额，拒绝时为 0
	Remaining int64

	// RetryAfter 拒绝时距离窗口结束的时间，放行时为 0
	RetryAfter time.Duration
}

// Limiter 限流器核心接口
type Limiter interface {
	// Allow 判定身份 identity 在策略 policy 下的本次请求是否放行。
	//
	// 计数先自增后判定：拒绝的请求同样占用窗口计数。存储不可达时
	// 放行（fail-open）并记录降级日志，返回的 Decision.Allowed 为 true。
	Allow(ctx context.Context, identity string, policy Policy) (Decision, error)
}

// Config 限流组件配置
type Config struct {
	// Default 默认策略，middleware 在未指定策略时使用
	Default Policy `json:"default" yaml:"default" mapstructure:"default"`

	// Classes 按类别覆盖策略（可选）
	Classes map[string]Policy `json:"classes" yaml:"classes" mapstructure:"classes"`
}

// DefaultConfig 返回默认配置：每分钟 100 次
func DefaultConfig() *Config {
	return &Config{
		Default: Policy{Limit: 100, Window: time.Minute, Class: "default"},
		Classes: make(map[string]Policy),
	}
}

func (c *Config) setDefaults() {
	if !c.Default.valid() {
		c.Default = Policy{Limit: 100, Window: time.Minute, Class: "default"}
	}
}

// PolicyFor 返回类别生效的策略，未配置时回落到默认策略。
func (c *Config) PolicyFor(class string) Policy {
	if p, ok := c.Classes[class]; ok && p.valid() {
		if p.Class == "" {
			p.Class = class
		}
		return p
	}
	return c.Default
}

// New 创建限流器实例，必须通过 WithStore 注入共享存储。
func New(cfg *Config, opts ...Option) (Limiter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()

	opt := newOptions(opts...)
	if opt.store == nil {
		return nil, ErrStoreNil
	}

	return newFixedWindow(cfg, opt), nil
}
