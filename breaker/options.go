package breaker

import (
	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/metrics"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/store"
)

// Option 组件初始化选项函数
type Option func(*options)

// StateChangeListener 状态迁移回调，在迁移成功写入存储后触发。
type StateChangeListener func(dependencyID string, from, to Status)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	store    store.Store
	logger   clog.Logger
	meter    metrics.Meter
	listener StateChangeListener
}

func newOptions(opts ...Option) options {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Discard()
	}
	if opt.meter == nil {
		opt.meter = metrics.Discard()
	}
	return opt
}

// WithStore 注入共享状态存储（必需）
func WithStore(st store.Store) Option {
	return func(o *options) {
		o.store = st
	}
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter 设置指标 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithStateChangeListener 设置状态迁移回调
func WithStateChangeListener(fn StateChangeListener) Option {
	return func(o *options) {
		o.listener = fn
	}
}
