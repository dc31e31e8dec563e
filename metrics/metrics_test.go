package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMeter(t *testing.T) Meter {
	t.Helper()
	meter, err := New(&Config{Namespace: "test"})
	require.NoError(t, err)
	return meter
}

func TestCounter(t *testing.T) {
	meter := newTestMeter(t)

	c, err := meter.Counter("requests_total", "Total requests", "provider")
	require.NoError(t, err)

	c.Inc(L("provider", "openai"))
	c.Add(2, L("provider", "anthropic"))

	// 同名指标返回缓存实例
	c2, err := meter.Counter("requests_total", "Total requests", "provider")
	require.NoError(t, err)
	assert.Equal(t, c, c2)
}

func TestGaugeAndHistogram(t *testing.T) {
	meter := newTestMeter(t)

	g, err := meter.Gauge("pool_in_use", "Connections in use")
	require.NoError(t, err)
	g.Set(7)

	h, err := meter.Histogram("call_duration_seconds", "Call duration", "provider")
	require.NoError(t, err)
	h.Observe(0.042, L("provider", "openai"))
}

func TestHandlerExposesMetrics(t *testing.T) {
	meter := newTestMeter(t)

	c, err := meter.Counter("dispatch_total", "Dispatches")
	require.NoError(t, err)
	c.Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	meter.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_dispatch_total"),
		"抓取输出应包含带命名空间前缀的指标")
}

func TestMissingLabelDefaultsToEmpty(t *testing.T) {
	meter := newTestMeter(t)

	c, err := meter.Counter("partial_labels_total", "Partial labels", "a", "b")
	require.NoError(t, err)
	// 仅提供一个标签不应 panic
	c.Inc(L("a", "x"))
}

func TestDiscard(t *testing.T) {
	meter := Discard()

	c, err := meter.Counter("x", "y")
	require.NoError(t, err)
	c.Inc()

	g, _ := meter.Gauge("x", "y")
	g.Set(1)

	h, _ := meter.Histogram("x", "y")
	h.Observe(1)
}
