// Package gateway 提供按优先级降级的提供方派发器。
//
// Dispatch 将一次操作依次交给候选提供方执行：限流判定最先发生，
// 之后每个提供方都经过熔断器闸门，打开的熔断器直接跳过；调用失败
// 记入熔断器并尝试下一个提供方；全部失败时返回完整的尝试轨迹。
// 可缓存的操作经由 cache-aside 执行器，命中时不接触任何提供方。
//
// 调用方取消（context 取消）立刻终止派发，且不计入熔断统计——
// 取消是调用方的决定，不代表提供方故障。
//
// ## 基本使用
//
//	d, _ := gateway.New(&gateway.Config{
//	    RateLimit: ratelimit.Policy{Limit: 100, Window: time.Minute, Class: "api"},
//	}, gateway.WithBreaker(brk), gateway.WithLimiter(limiter), gateway.WithCache(exec))
//
//	result := d.Dispatch(ctx, &gateway.Operation{
//	    Name:    "chat_completion",
//	    Request: &transport.Request{Method: "POST", Path: "/v1/chat", Body: payload},
//	}, providers, "user:42")
//	if !result.Success {
//	    // result.ErrorKind 区分限流、全部失败与取消
//	}
package gateway

import (
	"context"
	"time"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/metrics"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/ratelimit"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/transport"
)

// Provider 上游提供方
type Provider struct {
	// ID 提供方标识，同时作为熔断器的依赖 ID
	ID string

	// Priority 优先级，数值越小越先尝试；相同优先级保持传入顺序
	Priority int

	// Transport 调用通道
	Transport transport.Transport
}

// Operation 一次网关操作
type Operation struct {
	// Name 操作名，用于日志、指标与缓存键
	Name string

	// Cacheable 是否经由缓存执行器
	Cacheable bool

	// CacheTTL 缓存过期时间，<= 0 时使用缓存组件的默认值
	CacheTTL time.Duration

	// Request 发往提供方的请求
	Request *transport.Request
}

// AttemptStatus 单次提供方尝试的结局
type AttemptStatus string

const (
	// AttemptSkipped 熔断器打开，未实际调用
	AttemptSkipped AttemptStatus = "skipped"
	// AttemptFailed 调用执行且失败
	AttemptFailed AttemptStatus = "failed"
	// AttemptSucceeded 调用成功
	AttemptSucceeded AttemptStatus = "succeeded"
	// AttemptCancelled 调用方取消，派发终止
	AttemptCancelled AttemptStatus = "cancelled"
)

// Attempt 尝试轨迹中的一项
type Attempt struct {
	ProviderID string        `json:"provider_id"`
	Status     AttemptStatus `json:"status"`
	Detail     string        `json:"detail,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// ErrorKind 派发失败的类别
type ErrorKind string

const (
	// KindRateLimited 请求被限流，未尝试任何提供方
	KindRateLimited ErrorKind = "RATE_LIMITED"
	// KindAllProvidersFailed 所有提供方均不可用
	KindAllProvidersFailed ErrorKind = "ALL_PROVIDERS_FAILED"
	// KindCancelled 调用方取消
	KindCancelled ErrorKind = "CANCELLED"
)

// Result 一次派发的完整结果
type Result struct {
	// Success 是否成功拿到响应
	Success bool

	// ProviderID 实际服务的提供方，缓存命中时为空
	ProviderID string

	// Response 提供方响应（或缓存反序列化的副本）
	Response *transport.Response

	// FromCache 响应来自缓存，未接触任何提供方
	FromCache bool

	// Degraded 响应由非首选提供方服务（发生了降级）
	Degraded bool

	// ErrorKind 失败类别，成功时为空
	ErrorKind ErrorKind

	// Err 失败原因，成功时为 nil
	Err error

	// Attempts 按发生顺序记录的尝试轨迹
	Attempts []Attempt
}

// Config 派发器配置
type Config struct {
	// RateLimit 入口限流策略，零值表示不限流
	RateLimit ratelimit.Policy `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Dispatcher 提供方派发器
type Dispatcher struct {
	cfg *Config
	dep dependencies

	dispatches metrics.Counter
}

// New 创建派发器实例。
//
// 熔断、限流与缓存组件都是可选协作方：未注入的能力直接跳过
// （无熔断器时所有提供方都放行，无限流器时不做入口限流）。
func New(cfg *Config, opts ...Option) (*Dispatcher, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	dep := newDependencies(opts...)

	dispatches, _ := dep.meter.Counter("gateway_dispatch_total",
		"Dispatch outcomes", "operation", "outcome")

	return &Dispatcher{cfg: cfg, dep: dep, dispatches: dispatches}, nil
}

// observe 记录一次派发结局
func (d *Dispatcher) observe(operation string, result *Result) *Result {
	outcome := "success"
	switch {
	case result.FromCache:
		outcome = "cache_hit"
	case result.Degraded:
		outcome = "degraded"
	case !result.Success:
		outcome = string(result.ErrorKind)
	}
	d.dispatches.Inc(
		metrics.L("operation", operation),
		metrics.L("outcome", outcome))
	return result
}

// ctxCancelled 判定调用方上下文是否已经终止
func ctxCancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}
