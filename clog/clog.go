// Package clog 为网关提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间（如 "gateway.breaker"）
//   - 零外部依赖（仅依赖 Go 标准库）
//   - 采用函数式选项模式
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger.Info("request dispatched", clog.String("provider", "openai"))
//
// 创建子 Logger：
//
//	brkLogger := logger.WithNamespace("breaker")
//	brkLogger.Warn("state changed", clog.String("from", "closed"), clog.String("to", "open"))
package clog

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用默认配置（info 级别，console 格式，stdout 输出）。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	return newLogger(config, &opt)
}

// Discard 返回一个丢弃所有日志的 Logger，用于测试或显式关闭日志。
func Discard() Logger {
	return nopLogger{}
}
