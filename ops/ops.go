// Package ops 提供网关的运维 HTTP 端点。
//
// 基于 gin 暴露健康检查、熔断器管理、缓存清理与 Prometheus 指标：
//
//	GET  /health                      聚合健康报告（503 表示不健康）
//	GET  /health/live                 存活探针
//	GET  /health/ready                就绪探针（存储与数据库）
//	GET  /breakers/:dependency        熔断器状态快照
//	POST /breakers/:dependency/reset  管理操作：强制闭合熔断器
//	POST /cache/clear?prefix=         按前缀清理缓存
//	GET  /metrics                     Prometheus 抓取端点
//
// ## 基本使用
//
//	handler, _ := ops.New(ops.WithChecker(checker), ops.WithBreaker(brk),
//	    ops.WithCache(exec), ops.WithMeter(meter))
//
//	r := gin.New()
//	r.Use(ops.RequestID())
//	handler.Routes(r)
package ops

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/breaker"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/cache"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/db"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/health"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/metrics"
)

// Handler 运维端点处理器
type Handler struct {
	checker   *health.Checker
	breaker   breaker.Breaker
	cache     cache.Executor
	meter     metrics.Meter
	logger    clog.Logger
	poolStats func() db.Stats
}

// Option 初始化选项
type Option func(*Handler)

// WithChecker 注入健康检查器
func WithChecker(checker *health.Checker) Option {
	return func(h *Handler) { h.checker = checker }
}

// WithBreaker 注入熔断器，启用 /breakers 端点
func WithBreaker(brk breaker.Breaker) Option {
	return func(h *Handler) { h.breaker = brk }
}

// WithCache 注入缓存执行器，启用 /cache/clear 端点
func WithCache(exec cache.Executor) Option {
	return func(h *Handler) { h.cache = exec }
}

// WithMeter 注入指标 Meter，启用 /metrics 端点
func WithMeter(meter metrics.Meter) Option {
	return func(h *Handler) { h.meter = meter }
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithPoolStats 注入连接池统计，附加在 /health 报告中
func WithPoolStats(fn func() db.Stats) Option {
	return func(h *Handler) { h.poolStats = fn }
}

// New 创建运维端点处理器
func New(opts ...Option) (*Handler, error) {
	h := &Handler{logger: clog.Discard()}
	for _, o := range opts {
		o(h)
	}
	if h.checker == nil {
		h.checker = health.New()
	}
	h.logger = h.logger.WithNamespace("ops")
	return h, nil
}

// Routes 将全部端点注册到路由器
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/health", h.healthReport)
	r.GET("/health/live", h.liveness)
	r.GET("/health/ready", h.readiness)

	if h.breaker != nil {
		r.GET("/breakers/:dependency", h.breakerSnapshot)
		r.POST("/breakers/:dependency/reset", h.breakerReset)
	}
	if h.cache != nil {
		r.POST("/cache/clear", h.cacheClear)
	}
	if h.meter != nil {
		r.GET("/metrics", gin.WrapH(h.meter.Handler()))
	}
}

func statusFor(healthy bool) int {
	if healthy {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func (h *Handler) healthReport(c *gin.Context) {
	report := h.checker.RunAll(c.Request.Context())

	payload := gin.H{
		"healthy":        report.Healthy,
		"uptime_seconds": report.Uptime.Seconds(),
		"checks":         report.Checks,
	}
	if h.poolStats != nil {
		payload["pool"] = h.poolStats()
	}
	c.JSON(statusFor(report.Healthy), payload)
}

func (h *Handler) liveness(c *gin.Context) {
	report := h.checker.Liveness()
	c.JSON(http.StatusOK, gin.H{
		"healthy":        true,
		"uptime_seconds": report.Uptime.Seconds(),
	})
}

func (h *Handler) readiness(c *gin.Context) {
	report := h.checker.Readiness(c.Request.Context())
	c.JSON(statusFor(report.Healthy), gin.H{
		"healthy": report.Healthy,
		"checks":  report.Checks,
	})
}

func (h *Handler) breakerSnapshot(c *gin.Context) {
	dependency := c.Param("dependency")

	state, err := h.breaker.Snapshot(c.Request.Context(), dependency)
	if err != nil {
		h.logger.Error("snapshot failed",
			clog.String("dependency", dependency), clog.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot failed"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) breakerReset(c *gin.Context) {
	dependency := c.Param("dependency")

	if err := h.breaker.Reset(c.Request.Context(), dependency); err != nil {
		h.logger.Error("reset failed",
			clog.String("dependency", dependency), clog.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}

	h.logger.Warn("circuit manually reset",
		clog.String("dependency", dependency),
		clog.String("request_id", GetRequestID(c)))
	c.JSON(http.StatusOK, gin.H{"dependency": dependency, "status": "closed"})
}

func (h *Handler) cacheClear(c *gin.Context) {
	prefix := c.Query("prefix")
	if prefix == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prefix is required"})
		return
	}

	cleared, err := h.cache.InvalidatePrefix(c.Request.Context(), prefix)
	if err != nil {
		h.logger.Error("cache clear failed",
			clog.String("prefix", prefix), clog.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache clear failed"})
		return
	}

	h.logger.Info("cache cleared",
		clog.String("prefix", prefix),
		clog.Int64("count", cleared))
	c.JSON(http.StatusOK, gin.H{"prefix": prefix, "cleared": cleared})
}
