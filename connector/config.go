package connector

import (
	"fmt"
	"time"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	// 基础配置（可选，有默认值）
	Name string `json:"name" yaml:"name" mapstructure:"name"` // 连接器名称（默认 "default"）

	// 核心配置
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`             // [必填] 连接地址，如 "127.0.0.1:6379"
	Password string `json:"password" yaml:"password" mapstructure:"password"` // [可选] 认证密码
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`                   // [可选] 数据库编号（默认 0）

	// 高级配置（可选，有默认值）
	PoolSize     int           `json:"pool_size" yaml:"pool_size" mapstructure:"pool_size"`             // 连接池大小（默认 10）
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns" mapstructure:"min_idle_conns"` // 最小空闲连接数（默认 2）
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" mapstructure:"dial_timeout"`    // 连接超时（默认 5s）
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`    // 读取超时（默认 3s）
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"` // 写入超时（默认 3s）
}

func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = 2
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	c.setDefaults()
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	return nil
}

// PostgresConfig PostgreSQL 连接配置
type PostgresConfig struct {
	// 基础配置（可选，有默认值）
	Name string `json:"name" yaml:"name" mapstructure:"name"` // 连接器名称（默认 "default"）

	// 核心配置：DSN 优先级最高，提供后忽略 Host/Port 等字段
	DSN      string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
	Host     string `json:"host" yaml:"host" mapstructure:"host"`             // [必填] 主机地址
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`             // 端口（默认 5432）
	Username string `json:"username" yaml:"username" mapstructure:"username"` // [必填] 用户名
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	Database string `json:"database" yaml:"database" mapstructure:"database"` // [必填] 数据库名
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode" mapstructure:"ssl_mode"` // sslmode（默认 "disable"）

	// 连接池配置（可选，有默认值；语义对齐生产侧 QueuePool 设置）
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" mapstructure:"max_open_conns"`          // 最大打开连接数（默认 10）
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" mapstructure:"max_idle_conns"`          // 最大空闲连接数（默认 5）
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"` // 连接最大生命周期（默认 1h）
	ConnectTimeout  time.Duration `json:"connect_timeout" yaml:"connect_timeout" mapstructure:"connect_timeout"`       // 建连超时（默认 10s）
}

func (c *PostgresConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

func (c *PostgresConfig) validate() error {
	c.setDefaults()
	if c.DSN != "" {
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("postgres host is required")
	}
	if c.Username == "" {
		return fmt.Errorf("postgres username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("postgres database is required")
	}
	return nil
}

// buildDSN 构造 GORM postgres 驱动使用的 DSN
func (c *PostgresConfig) buildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode,
		int(c.ConnectTimeout.Seconds()),
	)
}

// SQLiteConfig SQLite 连接配置
type SQLiteConfig struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"` // 连接器名称（默认 "default"）

	// Path 数据库文件路径；":memory:" 表示共享内存库（测试场景）
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// MaxOpenConns 最大打开连接数（默认 5）
	MaxOpenConns int `json:"max_open_conns" yaml:"max_open_conns" mapstructure:"max_open_conns"`
}

func (c *SQLiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Path == "" {
		c.Path = ":memory:"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 5
	}
}

// dsn 返回 SQLite DSN；内存库使用共享缓存，
// 保证连接池内多个连接看到同一个数据库。
func (c *SQLiteConfig) dsn() string {
	if c.Path == ":memory:" {
		return "file::memory:?cache=shared"
	}
	return c.Path
}
