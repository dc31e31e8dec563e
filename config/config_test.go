package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/store"
)

const testYAML = `
server:
  addr: ":9090"
store:
  driver: memory
  prefix: "test:"
breaker:
  default:
    failure_threshold: 7
ratelimit:
  default:
    limit: 50
    window: 1m
    class: default
providers:
  - id: openai
    priority: 0
    base_url: https://api.openai.com
  - id: anthropic
    priority: 1
    base_url: https://api.anthropic.com
    timeout: 10s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gateway.yaml"), []byte(content), 0o644))
	return dir
}

func newLoadedLoader(t *testing.T, dir string) Loader {
	t.Helper()
	loader, err := New(&Options{Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))
	return loader
}

func TestLoadFromFile(t *testing.T) {
	loader := newLoadedLoader(t, writeConfig(t, testYAML))

	assert.Equal(t, ":9090", loader.Get("server.addr"))
	assert.Equal(t, "memory", loader.Get("store.driver"))
}

func TestLoadWithoutFile(t *testing.T) {
	loader, err := New(&Options{Paths: []string{t.TempDir()}})
	require.NoError(t, err)
	assert.NoError(t, loader.Load(context.Background()), "配置文件可选")
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("GATEWAY_SERVER_ADDR", ":7070")

	loader := newLoadedLoader(t, writeConfig(t, testYAML))
	assert.Equal(t, ":7070", loader.Get("server.addr"), "环境变量优先于文件")
}

func TestUnmarshalKey(t *testing.T) {
	loader := newLoadedLoader(t, writeConfig(t, testYAML))

	var storeCfg store.Config
	require.NoError(t, loader.UnmarshalKey("store", &storeCfg))
	assert.Equal(t, store.DriverMemory, storeCfg.Driver)
	assert.Equal(t, "test:", storeCfg.Prefix)
}

func TestLoadApp(t *testing.T) {
	loader := newLoadedLoader(t, writeConfig(t, testYAML))

	cfg, err := LoadApp(loader)
	require.NoError(t, err)

	// 文件覆盖默认值
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, store.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 7, cfg.Breaker.Default.FailureThreshold)
	assert.Equal(t, int64(50), cfg.RateLimit.Default.Limit)

	// 未覆盖的字段保留默认值
	assert.Equal(t, 60*time.Second, cfg.Breaker.Default.ResetTimeout)
	assert.Equal(t, 3, cfg.Breaker.Dependencies["database"].FailureThreshold)
	assert.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
	assert.Equal(t, 10, cfg.DB.Pool.Size)

	// 提供方列表与超时兜底
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "openai", cfg.Providers[0].ID)
	assert.Equal(t, 30*time.Second, cfg.Providers[0].Timeout, "缺省超时兜底")
	assert.Equal(t, 10*time.Second, cfg.Providers[1].Timeout)
}

func TestDefaultApp(t *testing.T) {
	cfg := DefaultApp()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Breaker.Default.FailureThreshold)
	assert.Equal(t, int64(1000), cfg.RateLimit.Default.Limit)
	assert.Equal(t, int64(100), cfg.RateLimit.Classes["api"].Limit)
}

func TestOnChange(t *testing.T) {
	dir := writeConfig(t, testYAML)
	loader := newLoadedLoader(t, dir)

	changed := make(chan struct{}, 1)
	loader.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "gateway.yaml"),
		[]byte(testYAML+"\nmetrics:\n  namespace: changed\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("config change not observed")
	}
}
