// Package testkit 提供包级测试共用的依赖构造工具。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/metrics"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/store"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
	Store  store.Store
}

// NewKit 返回一个包含默认依赖的测试工具包，存储使用进程内驱动。
func NewKit(t *testing.T) *Kit {
	return &Kit{
		Ctx:    context.Background(),
		Logger: NewLogger(),
		Meter:  NewMeter(),
		Store:  NewMemoryStore(t),
	}
}

// NewLogger 返回一个用于测试的 logger，本地调试用 debug 级别
func NewLogger() clog.Logger {
	logger, err := clog.New(clog.NewDevConfig())
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个用于测试的 meter，不实际输出指标
func NewMeter() metrics.Meter {
	return metrics.Discard()
}

// NewMemoryStore 返回进程内存储实例
func NewMemoryStore(t *testing.T) store.Store {
	st, err := store.New(&store.Config{Driver: store.DriverMemory})
	if err != nil {
		t.Fatalf("failed to create memory store: %v", err)
	}
	return st
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)
// 用于生成唯一的键前缀，避免测试间数据冲突
func NewID() string {
	return uuid.New().String()[0:8]
}
