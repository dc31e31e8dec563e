// Package health 提供聚合健康检查。
//
// 各组件以命名检查的形式注册（存储 Ping、数据库 Ping、连接池水位等），
// Checker 汇总为单一报告。就绪检查（Readiness）只运行标记为就绪关键
// 的子集：存储与数据库不可达时实例不应接流，但次要依赖的抖动不该
// 把实例摘除。
//
// ## 基本使用
//
//	checker := health.New(health.WithLogger(logger))
//	checker.RegisterReadiness("store", st.Ping)
//	checker.RegisterReadiness("database", database.Ping)
//	checker.Register("breaker:openai", func(ctx context.Context) error {
//	    state, err := brk.Snapshot(ctx, "openai")
//	    if err == nil && state.Status == breaker.StatusOpen {
//	        return fmt.Errorf("circuit open")
//	    }
//	    return err
//	})
//
//	report := checker.RunAll(ctx)
package health

import (
	"context"
	"sync"
	"time"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
)

// CheckFunc 单项健康检查，nil 错误表示健康。
type CheckFunc func(ctx context.Context) error

// CheckResult 单项检查结果
type CheckResult struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Detail  string        `json:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Report 聚合健康报告
type Report struct {
	Healthy bool          `json:"healthy"`
	Uptime  time.Duration `json:"uptime"`
	Checks  []CheckResult `json:"checks,omitempty"`
}

type check struct {
	name      string
	fn        CheckFunc
	readiness bool
}

// Checker 聚合健康检查器
type Checker struct {
	logger    clog.Logger
	startedAt time.Time

	mu     sync.RWMutex
	checks []check
}

// Option 初始化选项
type Option func(*Checker)

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// New 创建健康检查器
func New(opts ...Option) *Checker {
	c := &Checker{
		logger:    clog.Discard(),
		startedAt: time.Now(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.WithNamespace("health")
	return c
}

// Register 注册命名检查。同名检查后注册者覆盖先注册者。
func (c *Checker) Register(name string, fn CheckFunc) {
	c.register(name, fn, false)
}

// RegisterReadiness 注册就绪关键检查，Readiness 与 RunAll 都会运行。
func (c *Checker) RegisterReadiness(name string, fn CheckFunc) {
	c.register(name, fn, true)
}

func (c *Checker) register(name string, fn CheckFunc, readiness bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.checks {
		if c.checks[i].name == name {
			c.checks[i] = check{name: name, fn: fn, readiness: readiness}
			return
		}
	}
	c.checks = append(c.checks, check{name: name, fn: fn, readiness: readiness})
}

// RunAll 运行全部检查并聚合结果
func (c *Checker) RunAll(ctx context.Context) Report {
	return c.run(ctx, false)
}

// Readiness 只运行就绪关键检查
func (c *Checker) Readiness(ctx context.Context) Report {
	return c.run(ctx, true)
}

// Liveness 进程存活报告，不运行任何检查。
func (c *Checker) Liveness() Report {
	return Report{Healthy: true, Uptime: time.Since(c.startedAt)}
}

// Uptime 返回自创建以来的运行时长
func (c *Checker) Uptime() time.Duration {
	return time.Since(c.startedAt)
}

func (c *Checker) run(ctx context.Context, readinessOnly bool) Report {
	c.mu.RLock()
	checks := make([]check, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	report := Report{Healthy: true, Uptime: time.Since(c.startedAt)}
	for _, ck := range checks {
		if readinessOnly && !ck.readiness {
			continue
		}

		start := time.Now()
		err := ck.fn(ctx)
		result := CheckResult{
			Name:    ck.name,
			Healthy: err == nil,
			Elapsed: time.Since(start),
		}
		if err != nil {
			result.Detail = err.Error()
			report.Healthy = false
			c.logger.Warn("health check failed",
				clog.String("check", ck.name),
				clog.Error(err))
		}
		report.Checks = append(report.Checks, result)
	}
	return report
}
