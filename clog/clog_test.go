package clog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	// 默认配置下各级别均不应 panic
	logger.Debug("debug message")
	logger.Info("info message", String("k", "v"))
	logger.Warn("warn message", Int("count", 3))
	logger.Error("error message", Error(nil))
}

func TestNewInvalidConfig(t *testing.T) {
	cases := []*Config{
		{Level: "verbose"},
		{Format: "xml"},
		{Output: "file"},
	}
	for _, cfg := range cases {
		_, err := New(cfg)
		assert.Error(t, err, "config %+v should be rejected", cfg)
	}
}

func TestJSONFormat(t *testing.T) {
	logger, err := New(&Config{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	logger.Info("json log", Bool("ok", true))
}

func TestWithAndNamespace(t *testing.T) {
	logger, err := New(&Config{Level: "debug"})
	require.NoError(t, err)

	child := logger.With(String("component", "breaker"))
	require.NotNil(t, child)
	child.Info("child logger works")

	ns := logger.WithNamespace("gateway", "cache")
	require.NotNil(t, ns)
	ns.Info("namespaced logger works")

	// 嵌套命名空间
	nested := ns.WithNamespace("serializer")
	nested.Debug("nested namespace works")

	// 空参数返回自身
	assert.Equal(t, logger, logger.With())
	assert.Equal(t, logger, logger.WithNamespace())
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Info("discarded")
	assert.Equal(t, logger, logger.With(String("a", "b")))
	assert.Equal(t, logger, logger.WithNamespace("x"))
}

func TestNewWithNamespaceOption(t *testing.T) {
	logger, err := New(DefaultConfig(), WithNamespace("gateway"))
	require.NoError(t, err)
	logger.Info("namespace via option")
}
