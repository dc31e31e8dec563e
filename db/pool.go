package db

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

// PoolConfig 显式连接池配置
type PoolConfig struct {
	// Size 池容量（默认 10）
	Size int `json:"size" yaml:"size" mapstructure:"size"`

	// AcquireTimeout 等待空闲连接的最长时间，超时返回 POOL_EXHAUSTED（默认 30s）
	AcquireTimeout time.Duration `json:"acquire_timeout" yaml:"acquire_timeout" mapstructure:"acquire_timeout"`

	// MaxConnAge 连接最大年龄，超龄连接在借出前回收重建（默认 1h）
	MaxConnAge time.Duration `json:"max_conn_age" yaml:"max_conn_age" mapstructure:"max_conn_age"`

	// DisablePrePing 关闭借出前的活性探测（默认开启探测）
	DisablePrePing bool `json:"disable_pre_ping" yaml:"disable_pre_ping" mapstructure:"disable_pre_ping"`
}

func (c *PoolConfig) setDefaults() {
	if c.Size <= 0 {
		c.Size = 10
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 30 * time.Second
	}
	if c.MaxConnAge <= 0 {
		c.MaxConnAge = time.Hour
	}
}

// Stats 池的瞬时统计
type Stats struct {
	// Size 池容量
	Size int `json:"size"`
	// InUse 已借出的连接数
	InUse int `json:"in_use"`
	// Idle 空闲的连接数
	Idle int `json:"idle"`
	// Waits 累计发生过等待的 Acquire 次数
	Waits int64 `json:"waits"`
	// Exhausted 累计超时失败的 Acquire 次数
	Exhausted int64 `json:"exhausted"`
}

// Conn 池中借出的连接
type Conn struct {
	conn      *sql.Conn
	createdAt time.Time
	pool      *Pool
}

// Std 返回底层 *sql.Conn
func (c *Conn) Std() *sql.Conn {
	return c.conn
}

// Age 返回连接年龄
func (c *Conn) Age() time.Duration {
	return time.Since(c.createdAt)
}

// Pool 显式的有界连接池。
//
// 容量用令牌通道表达：Acquire 先取令牌（容量闸门），再复用或新建
// 底层连接；Release 归还连接与令牌。database/sql 自身的池在此之下
// 不做限流，所有限额由本层负责。
type Pool struct {
	db     *sql.DB
	cfg    *PoolConfig
	logger clog.Logger

	slots chan struct{}

	mu     sync.Mutex
	idle   []*Conn
	closed bool

	inUse     atomic.Int64
	waits     atomic.Int64
	exhausted atomic.Int64
}

// PoolOption 连接池初始化选项
type PoolOption func(*Pool)

// WithPoolLogger 设置 Logger
func WithPoolLogger(logger clog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// NewPool 在已有的 *sql.DB 之上创建显式连接池
func NewPool(sqlDB *sql.DB, cfg *PoolConfig, opts ...PoolOption) (*Pool, error) {
	if sqlDB == nil {
		return nil, xerrors.New("db: sql.DB is nil")
	}
	if cfg == nil {
		cfg = &PoolConfig{}
	}
	cfg.setDefaults()

	p := &Pool{
		db:     sqlDB,
		cfg:    cfg,
		logger: clog.Discard(),
		slots:  make(chan struct{}, cfg.Size),
	}
	for _, o := range opts {
		o(p)
	}
	for i := 0; i < cfg.Size; i++ {
		p.slots <- struct{}{}
	}
	return p, nil
}

// Acquire 借出一个连接。
//
// 池满时最多等待 AcquireTimeout，超时返回 ErrPoolExhausted；
// 调用方上下文先结束时返回上下文错误。借出的连接经过活性探测，
// 超龄或探测失败的连接被回收重建。
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	select {
	case <-p.slots:
	default:
		// 池满，进入等待
		p.waits.Add(1)
		timer := time.NewTimer(p.cfg.AcquireTimeout)
		defer timer.Stop()
		select {
		case <-p.slots:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			p.exhausted.Add(1)
			p.logger.Warn("acquire timed out",
				clog.Duration("timeout", p.cfg.AcquireTimeout),
				clog.Int("size", p.cfg.Size))
			return nil, ErrPoolExhausted
		}
	}

	conn, err := p.checkout(ctx)
	if err != nil {
		p.slots <- struct{}{}
		return nil, err
	}
	p.inUse.Add(1)
	return conn, nil
}

// checkout 复用空闲连接或新建，持有容量令牌时调用。
func (p *Pool) checkout(ctx context.Context) (*Conn, error) {
	for {
		p.mu.Lock()
		var conn *Conn
		if n := len(p.idle); n > 0 {
			conn = p.idle[n-1]
			p.idle = p.idle[:n-1]
		}
		p.mu.Unlock()

		if conn == nil {
			break
		}
		if conn.Age() > p.cfg.MaxConnAge {
			// 超龄回收，换新连接
			_ = conn.conn.Close()
			continue
		}
		if !p.cfg.DisablePrePing {
			if err := conn.conn.PingContext(ctx); err != nil {
				p.logger.Warn("stale connection dropped", clog.Error(err))
				_ = conn.conn.Close()
				continue
			}
		}
		return conn, nil
	}

	raw, err := p.db.Conn(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "db: open connection")
	}
	return &Conn{conn: raw, createdAt: time.Now(), pool: p}, nil
}

// Release 归还连接。归还后 Conn 不可再使用。
func (p *Pool) Release(conn *Conn) {
	if conn == nil || conn.pool != p {
		return
	}

	p.mu.Lock()
	closed := p.closed
	if !closed {
		p.idle = append(p.idle, conn)
	}
	p.mu.Unlock()

	if closed {
		_ = conn.conn.Close()
		return
	}

	p.inUse.Add(-1)
	p.slots <- struct{}{}
}

// Stats 返回池的瞬时统计
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()

	return Stats{
		Size:      p.cfg.Size,
		InUse:     int(p.inUse.Load()),
		Idle:      idle,
		Waits:     p.waits.Load(),
		Exhausted: p.exhausted.Load(),
	}
}

// Close 关闭池并释放空闲连接。已借出的连接在 Release 时关闭。
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, conn := range idle {
		_ = conn.conn.Close()
	}
	return nil
}
