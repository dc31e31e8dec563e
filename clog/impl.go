package clog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

const namespaceKey = "namespace"

// slogLogger 基于 slog 的 Logger 实现（非导出）
//
// base 为不含 namespace 字段的 handler；namespace 字段在派生时
// 统一追加一次，避免嵌套 WithNamespace 产生重复字段。
type slogLogger struct {
	base      slog.Handler
	l         *slog.Logger
	namespace string
}

func newLogger(cfg *Config, opt *options) (Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer
	switch cfg.Output {
	case "stderr":
		out = os.Stderr
	default:
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	logger := derive(handler, "")
	if len(opt.namespace) > 0 {
		return logger.WithNamespace(opt.namespace...), nil
	}
	return logger, nil
}

// derive 从 base handler 和命名空间构造 Logger
func derive(base slog.Handler, namespace string) *slogLogger {
	h := base
	if namespace != "" {
		h = base.WithAttrs([]slog.Attr{slog.String(namespaceKey, namespace)})
	}
	return &slogLogger{
		base:      base,
		l:         slog.New(h),
		namespace: namespace,
	}
}

func (s *slogLogger) Debug(msg string, fields ...Field) {
	s.l.LogAttrs(context.Background(), slog.LevelDebug, msg, fields...)
}

func (s *slogLogger) Info(msg string, fields ...Field) {
	s.l.LogAttrs(context.Background(), slog.LevelInfo, msg, fields...)
}

func (s *slogLogger) Warn(msg string, fields ...Field) {
	s.l.LogAttrs(context.Background(), slog.LevelWarn, msg, fields...)
}

func (s *slogLogger) Error(msg string, fields ...Field) {
	s.l.LogAttrs(context.Background(), slog.LevelError, msg, fields...)
}

func (s *slogLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return s
	}
	return derive(s.base.WithAttrs(fields), s.namespace)
}

func (s *slogLogger) WithNamespace(parts ...string) Logger {
	if len(parts) == 0 {
		return s
	}
	ns := strings.Join(parts, ".")
	if s.namespace != "" {
		ns = s.namespace + "." + ns
	}
	return derive(s.base, ns)
}
