package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

type sqliteConnector struct {
	cfg     *SQLiteConfig
	logger  clog.Logger
	healthy atomic.Bool

	mu     sync.Mutex
	client *gorm.DB
}

// NewSQLite 创建 SQLite 连接器
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLiteConnector, error) {
	if cfg == nil {
		cfg = &SQLiteConfig{}
	}
	cfg.setDefaults()

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	return &sqliteConnector{
		cfg:    cfg,
		logger: opt.logger.With(clog.String("connector", "sqlite"), clog.String("name", cfg.Name)),
	}, nil
}

// Connect 建立连接（幂等）
func (c *sqliteConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	gormDB, err := gorm.Open(sqlite.Open(c.cfg.dsn()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return xerrors.Wrapf(err, "sqlite connector[%s]: connection failed", c.cfg.Name)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return xerrors.Wrapf(err, "sqlite connector[%s]: obtain sql.DB", c.cfg.Name)
	}
	sqlDB.SetMaxOpenConns(c.cfg.MaxOpenConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		return xerrors.Wrapf(err, "sqlite connector[%s]: ping failed", c.cfg.Name)
	}

	c.client = gormDB
	c.healthy.Store(true)
	c.logger.Info("connected to sqlite", clog.String("path", c.cfg.Path))
	return nil
}

// Close 关闭连接
func (c *sqliteConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.client == nil {
		return nil
	}

	sqlDB, err := c.client.DB()
	if err != nil {
		return err
	}
	c.client = nil
	return sqlDB.Close()
}

// HealthCheck 检查连接健康状态
func (c *sqliteConnector) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	if client == nil {
		return ErrClientNil
	}

	sqlDB, err := client.DB()
	if err != nil {
		c.healthy.Store(false)
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(err, "sqlite connector[%s]: health check failed", c.cfg.Name)
	}

	c.healthy.Store(true)
	return nil
}

// IsHealthy 返回缓存的健康状态
func (c *sqliteConnector) IsHealthy() bool {
	return c.healthy.Load()
}

// Name 返回连接器名称
func (c *sqliteConnector) Name() string {
	return c.cfg.Name
}

// GetClient 返回 GORM 实例
func (c *sqliteConnector) GetClient() *gorm.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}
