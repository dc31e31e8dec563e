package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

// prometheusMeter 基于 Prometheus 的 Meter 实现（非导出）
type prometheusMeter struct {
	namespace string
	registry  *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*counterImpl
	gauges     map[string]*gaugeImpl
	histograms map[string]*histogramImpl
}

func newPrometheusMeter(cfg *Config) *prometheusMeter {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	return &prometheusMeter{
		namespace:  cfg.Namespace,
		registry:   registry,
		counters:   make(map[string]*counterImpl),
		gauges:     make(map[string]*gaugeImpl),
		histograms: make(map[string]*histogramImpl),
	}
}

func (m *prometheusMeter) Counter(name, help string, labelKeys ...string) (Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c, nil
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	}, labelKeys)

	if err := m.registry.Register(vec); err != nil {
		return nil, xerrors.Wrapf(err, "metrics: register counter %s", name)
	}

	c := &counterImpl{vec: vec, keys: labelKeys}
	m.counters[name] = c
	return c, nil
}

func (m *prometheusMeter) Gauge(name, help string, labelKeys ...string) (Gauge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.gauges[name]; ok {
		return g, nil
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	}, labelKeys)

	if err := m.registry.Register(vec); err != nil {
		return nil, xerrors.Wrapf(err, "metrics: register gauge %s", name)
	}

	g := &gaugeImpl{vec: vec, keys: labelKeys}
	m.gauges[name] = g
	return g, nil
}

func (m *prometheusMeter) Histogram(name, help string, labelKeys ...string) (Histogram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[name]; ok {
		return h, nil
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	}, labelKeys)

	if err := m.registry.Register(vec); err != nil {
		return nil, xerrors.Wrapf(err, "metrics: register histogram %s", name)
	}

	h := &histogramImpl{vec: vec, keys: labelKeys}
	m.histograms[name] = h
	return h, nil
}

func (m *prometheusMeter) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type counterImpl struct {
	vec  *prometheus.CounterVec
	keys []string
}

func (c *counterImpl) Inc(labels ...Label) {
	c.vec.WithLabelValues(labelValues(c.keys, labels)...).Inc()
}

func (c *counterImpl) Add(v float64, labels ...Label) {
	c.vec.WithLabelValues(labelValues(c.keys, labels)...).Add(v)
}

type gaugeImpl struct {
	vec  *prometheus.GaugeVec
	keys []string
}

func (g *gaugeImpl) Set(v float64, labels ...Label) {
	g.vec.WithLabelValues(labelValues(g.keys, labels)...).Set(v)
}

type histogramImpl struct {
	vec  *prometheus.HistogramVec
	keys []string
}

func (h *histogramImpl) Observe(v float64, labels ...Label) {
	h.vec.WithLabelValues(labelValues(h.keys, labels)...).Observe(v)
}
