package clog

import (
	"fmt"
	"log/slog"
	"strings"
)

// parseLevel 将字符串级别解析为 slog.Level
func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("clog: unknown level: %s", level)
	}
}
