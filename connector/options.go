package connector

import "github.com/GaryOcean428/biped-infrastructure-enhancement/clog"

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger clog.Logger
}

func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = clog.Discard()
	}
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger
		}
	}
}
