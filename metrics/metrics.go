// Package metrics 提供轻量的指标门面，底层基于 Prometheus 客户端。
//
// 各组件通过 WithMeter 选项注入 Meter，按需创建 Counter / Gauge / Histogram。
// 指标按名称缓存，重复创建同名指标返回同一实例。
//
// 基本使用：
//
//	meter, _ := metrics.New(&metrics.Config{Namespace: "gateway"})
//
//	allowed, _ := meter.Counter("ratelimit_allowed_total", "Allowed requests", "class")
//	allowed.Inc(metrics.L("class", "api"))
//
//	// 暴露抓取端点
//	http.Handle("/metrics", meter.Handler())
package metrics

import "net/http"

// Meter 指标门面接口
//
// labelKeys 在创建时声明；记录时通过 L(key, value) 传入对应值，
// 未传入的标签使用空字符串。
type Meter interface {
	Counter(name, help string, labelKeys ...string) (Counter, error)
	Gauge(name, help string, labelKeys ...string) (Gauge, error)
	Histogram(name, help string, labelKeys ...string) (Histogram, error)

	// Handler 返回 Prometheus 抓取端点的 HTTP Handler
	Handler() http.Handler
}

// Counter 单调递增计数器
type Counter interface {
	Inc(labels ...Label)
	Add(v float64, labels ...Label)
}

// Gauge 可升可降的瞬时值
type Gauge interface {
	Set(v float64, labels ...Label)
}

// Histogram 分布直方图
type Histogram interface {
	Observe(v float64, labels ...Label)
}

// Config 指标组件配置
type Config struct {
	// Namespace 指标名称前缀（默认 "gateway"）
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
}

// New 创建基于 Prometheus 的 Meter 实例
func New(cfg *Config) (Meter, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "gateway"
	}
	return newPrometheusMeter(cfg), nil
}

// Discard 返回丢弃所有指标的 Meter，用于测试或显式关闭指标
func Discard() Meter {
	return nopMeter{}
}
