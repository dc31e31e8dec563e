package clog

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	namespace []string
}

// WithNamespace 设置根命名空间
//
// 多段命名空间以 "." 连接，如 WithNamespace("gateway", "breaker")
// 输出 namespace="gateway.breaker"。
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespace = append(o.namespace, parts...)
	}
}
