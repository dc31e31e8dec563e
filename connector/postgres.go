package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

type postgresConnector struct {
	cfg     *PostgresConfig
	logger  clog.Logger
	healthy atomic.Bool

	mu     sync.Mutex
	client *gorm.DB
}

// NewPostgres 创建 PostgreSQL 连接器
//
// 连接是延迟建立的：NewPostgres 仅校验配置，Connect 时才真正建连，
// 并按配置设置底层连接池（MaxOpenConns / MaxIdleConns / ConnMaxLifetime）。
func NewPostgres(cfg *PostgresConfig, opts ...Option) (PostgresConnector, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid postgres config")
	}

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	return &postgresConnector{
		cfg:    cfg,
		logger: opt.logger.With(clog.String("connector", "postgres"), clog.String("name", cfg.Name)),
	}, nil
}

// Connect 建立连接（幂等）
func (c *postgresConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	gormDB, err := gorm.Open(postgres.Open(c.cfg.buildDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		c.logger.Error("failed to connect to postgres", clog.Error(err), clog.String("host", c.cfg.Host))
		return xerrors.Wrapf(err, "postgres connector[%s]: connection failed", c.cfg.Name)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return xerrors.Wrapf(err, "postgres connector[%s]: obtain sql.DB", c.cfg.Name)
	}
	sqlDB.SetMaxOpenConns(c.cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(c.cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(c.cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		c.logger.Error("postgres ping failed", clog.Error(err))
		return xerrors.Wrapf(err, "postgres connector[%s]: ping failed", c.cfg.Name)
	}

	c.client = gormDB
	c.healthy.Store(true)
	c.logger.Info("connected to postgres",
		clog.String("database", c.cfg.Database),
		clog.Int("max_open_conns", c.cfg.MaxOpenConns))
	return nil
}

// Close 关闭连接
func (c *postgresConnector) Close() error {
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
func (c *postgresConnector) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	if client == nil {
		return ErrClientNil
	}

	sqlDB, err := client.DB()
	if err != nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(err, "postgres connector[%s]: obtain sql.DB", c.cfg.Name)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("postgres health check failed", clog.Error(err))
		return xerrors.Wrapf(err, "postgres connector[%s]: health check failed", c.cfg.Name)
	}

	c.healthy.Store(true)
	return nil
}

// IsHealthy 返回缓存的健康状态
func (c *postgresConnector) IsHealthy() bool {
	return c.healthy.Load()
}

// Name 返回连接器名称
func (c *postgresConnector) Name() string {
	return c.cfg.Name
}

// GetClient 返回 GORM 实例
func (c *postgresConnector) GetClient() *gorm.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}
