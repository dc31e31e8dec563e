package gateway

import (
	"github.com/GaryOcean428/biped-infrastructure-enhancement/breaker"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/cache"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/metrics"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/ratelimit"
)

// Option 组件初始化选项函数
type Option func(*dependencies)

// dependencies 派发器协作组件（内部使用，小写）
type dependencies struct {
	breaker breaker.Breaker
	limiter ratelimit.Limiter
	cache   cache.Executor
	logger  clog.Logger
	meter   metrics.Meter
}

func newDependencies(opts ...Option) dependencies {
	dep := dependencies{}
	for _, o := range opts {
		o(&dep)
	}
	if dep.logger == nil {
		dep.logger = clog.Discard()
	}
	if dep.meter == nil {
		dep.meter = metrics.Discard()
	}
	dep.logger = dep.logger.WithNamespace("gateway")
	return dep
}

// WithBreaker 注入熔断器
func WithBreaker(brk breaker.Breaker) Option {
	return func(d *dependencies) {
		d.breaker = brk
	}
}

// WithLimiter 注入限流器
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(d *dependencies) {
		d.limiter = limiter
	}
}

// WithCache 注入缓存执行器
func WithCache(exec cache.Executor) Option {
	return func(d *dependencies) {
		d.cache = exec
	}
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(d *dependencies) {
		d.logger = logger
	}
}

// WithMeter 设置指标 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(d *dependencies) {
		d.meter = meter
	}
}
