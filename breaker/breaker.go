// Package breaker 提供基于共享存储的分布式熔断器。
//
// 每个依赖（上游提供方、数据库等）在存储中持有一条独立的状态记录，
// 多个网关进程通过同一记录观察到一致的熔断状态。所有状态迁移都
// 通过存储的 CompareAndSet 原语完成，不存在读-改-写竞态：
//
//   - closed：连续失败计数达到阈值 → open
//   - open：冷却期（ResetTimeout）结束后，恰好一个调用方通过 CAS
//     抢到探测权进入 half_open，其余调用方继续被拒绝
//   - half_open：探测成功 → closed；探测失败 → open（重新计时）
//
// AllowCall 永远不会因为存储故障而阻断业务调用：存储不可达时放行
// 并记录降级日志（此时不产生状态迁移）。
//
// ## 基本使用
//
//	brk, _ := breaker.New(&breaker.Config{
//	    Default: breaker.Policy{FailureThreshold: 5, ResetTimeout: 60 * time.Second},
//	    Dependencies: map[string]breaker.Policy{
//	        "database": {FailureThreshold: 3, ResetTimeout: 30 * time.Second},
//	    },
//	}, breaker.WithStore(st), breaker.WithLogger(logger))
//
//	if allowed, _ := brk.AllowCall(ctx, "openai"); !allowed {
//	    return breaker.ErrOpen
//	}
//	err := callUpstream(ctx)
//	if err != nil {
//	    _ = brk.RecordFailure(ctx, "openai")
//	} else {
//	    _ = brk.RecordSuccess(ctx, "openai")
//	}
package breaker

import (
	"context"
	"time"
)

// Status 熔断器状态
type Status string

const (
	StatusClosed   Status = "closed"
	StatusOpen     Status = "open"
	StatusHalfOpen Status = "half_open"
)

// State 依赖的熔断状态记录，以 JSON 形式持久化在共享存储中。
type State struct {
	DependencyID        string    `json:"dependency_id"`
	Status              Status    `json:"status"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	OpenedAt            time.Time `json:"opened_at,omitzero"`
	ProbeInFlight       bool      `json:"probe_in_flight"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Breaker 熔断器核心接口
type Breaker interface {
	// AllowCall 判定是否放行对指定依赖的调用。
	//
	// open 状态冷却期内返回 false；冷却期结束后恰好一个调用方获得
	// half_open 探测权。存储不可达时放行（fail-open）并返回底层错误
	// 供调用方记录，但不阻断调用。
	AllowCall(ctx context.Context, dependencyID string) (bool, error)

	// RecordSuccess 记录一次成功调用。
	// closed 状态下清零连续失败计数；half_open 探测成功则闭合熔断器。
	RecordSuccess(ctx context.Context, dependencyID string) error

	// RecordFailure 记录一次失败调用。
	// closed 状态下累加连续失败计数，达到阈值后打开熔断器；
	// half_open 探测失败则重新打开并刷新 opened_at。
	RecordFailure(ctx context.Context, dependencyID string) error

	// Snapshot 返回依赖的当前状态。无记录时返回隐式 closed 状态。
	Snapshot(ctx context.Context, dependencyID string) (State, error)

	// Reset 管理操作：无条件将依赖重置为 closed。
	Reset(ctx context.Context, dependencyID string) error
}

// Policy 单个依赖的熔断策略
type Policy struct {
	// FailureThreshold 触发熔断的连续失败次数（默认 5）
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold" mapstructure:"failure_threshold"`

	// ResetTimeout open 状态的冷却时间，超时后允许探测（默认 60s）
	ResetTimeout time.Duration `json:"reset_timeout" yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// Config 熔断器组件配置
type Config struct {
	// Default 默认策略，应用到所有未单独配置的依赖
	Default Policy `json:"default" yaml:"default" mapstructure:"default"`

	// Dependencies 按依赖 ID 覆盖策略（可选），
	// 如数据库使用比上游提供方更激进的 3/30s。
	Dependencies map[string]Policy `json:"dependencies" yaml:"dependencies" mapstructure:"dependencies"`
}

// DefaultPolicy 返回默认策略
func DefaultPolicy() Policy {
	return Policy{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
	}
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Default:      DefaultPolicy(),
		Dependencies: make(map[string]Policy),
	}
}

func (c *Config) setDefaults() {
	if c.Default.FailureThreshold <= 0 {
		c.Default.FailureThreshold = 5
	}
	if c.Default.ResetTimeout <= 0 {
		c.Default.ResetTimeout = 60 * time.Second
	}
}

// policyFor 返回依赖生效的策略，未配置的字段回落到默认策略。
func (c *Config) policyFor(dependencyID string) Policy {
	p := c.Default
	override, ok := c.Dependencies[dependencyID]
	if !ok {
		return p
	}
	if override.FailureThreshold > 0 {
		p.FailureThreshold = override.FailureThreshold
	}
	if override.ResetTimeout > 0 {
		p.ResetTimeout = override.ResetTimeout
	}
	return p
}

// New 创建熔断器实例，必须通过 WithStore 注入共享存储。
func New(cfg *Config, opts ...Option) (Breaker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()

	opt := newOptions(opts...)
	if opt.store == nil {
		return nil, ErrStoreNil
	}

	return newStoreBreaker(cfg, opt), nil
}
