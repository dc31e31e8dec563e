// Package connector 提供统一的外部依赖连接管理能力。
//
// 核心特性：
//   - 统一抽象：通过 Connector 接口提供一致的连接管理 API
//   - 类型安全：通过 TypedConnector[T] 泛型接口确保编译时类型检查
//   - 健康检查：HealthCheck 主动探测，IsHealthy 读取缓存状态
//   - 并发安全：所有公开方法均可从多个协程同时调用
//
// 资源所有权：
//
//	Connector 拥有底层连接的生命周期，应在应用层通过 defer 调用 Close()。
//	组件（store、db 等）仅借用 Connector，不应调用 Close()。
//
// 基本使用：
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{
//	    Addr: "127.0.0.1:6379",
//	}, connector.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//	    return err
//	}
//	client := conn.GetClient()
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Connector 定义所有连接器的通用行为。
type Connector interface {
	// Connect 建立连接。幂等，可安全多次调用。
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源。幂等。
	Close() error

	// HealthCheck 主动探测连接可用性，并更新内部健康状态缓存。
	HealthCheck(ctx context.Context) error

	// IsHealthy 无阻塞返回最近一次 HealthCheck 的结果。
	IsHealthy() bool

	// Name 返回连接实例名称，用于日志与指标标识。
	Name() string
}

// TypedConnector 提供类型安全的客户端访问。
//
// 类型参数 T 是客户端类型，如 *redis.Client、*gorm.DB。
// Connect 之前或 Close 之后 GetClient 可能返回零值。
type TypedConnector[T any] interface {
	Connector

	GetClient() T
}

// RedisConnector Redis 连接器接口。
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// PostgresConnector PostgreSQL 连接器接口，基于 GORM。
type PostgresConnector interface {
	TypedConnector[*gorm.DB]
}

// SQLiteConnector SQLite 连接器接口，基于 GORM。
// 支持内存数据库，适合测试场景。
type SQLiteConnector interface {
	TypedConnector[*gorm.DB]
}
