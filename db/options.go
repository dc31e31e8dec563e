package db

import (
	"gorm.io/gorm"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/connector"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	connector connector.TypedConnector[*gorm.DB]
	logger    clog.Logger
}

func newOptions(opts ...Option) options {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Discard()
	}
	return opt
}

// WithConnector 注入数据库连接器（必需），PostgreSQL 与 SQLite 连接器均可。
func WithConnector(conn connector.TypedConnector[*gorm.DB]) Option {
	return func(o *options) {
		o.connector = conn
	}
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
