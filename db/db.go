// Package db 提供数据库组件：GORM 访问入口与显式受限的连接池。
//
// 组件借用连接器持有的 GORM 实例（不管理其生命周期），在其上提供
// 带上下文的访问与事务封装；Pool 在底层 database/sql 句柄之上实现
// 显式的有界连接池：容量内借出、超时即报 POOL_EXHAUSTED、借出前
// 活性探测、超龄连接回收。
//
// ## 基本使用
//
//	conn, _ := connector.NewPostgres(pgCfg, connector.WithLogger(logger))
//	_ = conn.Connect(ctx)
//
//	database, _ := db.New(&db.Config{}, db.WithConnector(conn), db.WithLogger(logger))
//	defer database.Close()
//
//	err := database.Transaction(ctx, func(tx *gorm.DB) error {
//	    return tx.Create(&order).Error
//	})
package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

// Config 数据库组件配置
type Config struct {
	// Pool 显式连接池配置
	Pool PoolConfig `json:"pool" yaml:"pool" mapstructure:"pool"`
}

// Database 数据库组件
type Database struct {
	gdb    *gorm.DB
	pool   *Pool
	logger clog.Logger
}

// New 创建数据库组件，必须通过 WithConnector 注入已连接的连接器。
func New(cfg *Config, opts ...Option) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Pool.setDefaults()

	opt := newOptions(opts...)
	if opt.connector == nil {
		return nil, ErrConnectorNil
	}

	gdb := opt.connector.GetClient()
	if gdb == nil {
		return nil, ErrNotConnected
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, xerrors.Wrap(err, "db: obtain sql.DB")
	}

	logger := opt.logger.WithNamespace("db")
	pool, err := NewPool(sqlDB, &cfg.Pool, WithPoolLogger(logger))
	if err != nil {
		return nil, err
	}

	return &Database{gdb: gdb, pool: pool, logger: logger}, nil
}

// DB 返回绑定上下文的 GORM 实例
func (d *Database) DB(ctx context.Context) *gorm.DB {
	return d.gdb.WithContext(ctx)
}

// Transaction 在事务中执行 fn，fn 返回错误时回滚。
func (d *Database) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.gdb.WithContext(ctx).Transaction(fn)
}

// Pool 返回显式连接池
func (d *Database) Pool() *Pool {
	return d.pool
}

// Ping 探测数据库可达性，用于健康检查。
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.gdb.DB()
	if err != nil {
		return xerrors.Wrap(err, "db: obtain sql.DB")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return xerrors.Wrap(err, "db: ping")
	}
	return nil
}

// Close 关闭显式连接池。底层连接由连接器负责关闭。
func (d *Database) Close() error {
	return d.pool.Close()
}
