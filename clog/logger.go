package clog

// Logger 日志接口，提供结构化日志记录功能
//
// 支持四个日志级别：Debug、Info、Warn、Error。
// 所有方法均为并发安全。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	//
	// 预设的字段会出现在该子 Logger 的所有日志中。
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	// 命名空间会追加到现有命名空间后面，以 "." 连接，
	// 并作为 namespace 字段输出。
	WithNamespace(parts ...string) Logger
}
