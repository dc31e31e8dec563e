package store

import (
	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/connector"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger    clog.Logger
	redisConn connector.RedisConnector
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRedisConnector 设置 Redis 连接器（distributed 驱动必需）
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConn = conn
	}
}
