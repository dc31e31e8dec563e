package testkit

import (
	"context"
	"os"
	"testing"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/connector"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/store"
)

// RedisAddrEnv 指定集成测试 Redis 地址的环境变量，未设置时跳过测试。
const RedisAddrEnv = "GATEWAY_TEST_REDIS_ADDR"

// GetRedisConnector 获取 Redis 连接器，环境变量未设置时跳过当前测试。
func GetRedisConnector(t *testing.T) connector.RedisConnector {
	addr := os.Getenv(RedisAddrEnv)
	if addr == "" {
		t.Skipf("%s not set, skipping redis integration test", RedisAddrEnv)
	}

	conn, err := connector.NewRedis(&connector.RedisConfig{
		Name: "test-redis",
		Addr: addr,
		DB:   1, // 与默认 DB 0 隔离
	})
	if err != nil {
		t.Fatalf("failed to create redis connector: %v", err)
	}
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// NewRedisStore 返回基于真实 Redis 的存储实例，键前缀隔离并在测试结束时清理。
func NewRedisStore(t *testing.T) store.Store {
	conn := GetRedisConnector(t)

	prefix := "gwtest:" + NewID() + ":"
	st, err := store.New(&store.Config{
		Driver: store.DriverDistributed,
		Prefix: prefix,
	}, store.WithRedisConnector(conn))
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() {
		_, _ = st.DeletePrefix(context.Background(), "")
	})
	return st
}
