package db

import "github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"

// CodePoolExhausted 池容量耗尽时的机器可读错误码
const CodePoolExhausted = "POOL_EXHAUSTED"

// 错误定义
var (
	// ErrConnectorNil 缺少数据库连接器
	ErrConnectorNil = xerrors.New("db: connector is required, use WithConnector")

	// ErrNotConnected 连接器尚未建立连接
	ErrNotConnected = xerrors.New("db: connector is not connected")

	// ErrPoolExhausted 池容量耗尽且等待超时
	ErrPoolExhausted = xerrors.NewCoded(CodePoolExhausted,
		"db: connection pool exhausted")

	// ErrPoolClosed 池已关闭
	ErrPoolClosed = xerrors.New("db: pool is closed")
)
