package store

import "github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"

// 错误定义
var (
	// ErrConnectorNil distributed 驱动缺少 Redis 连接器
	ErrConnectorNil = xerrors.New("store: redis connector is required, use WithRedisConnector")

	// ErrUnsupportedDriver 不支持的驱动类型
	ErrUnsupportedDriver = xerrors.New("store: unsupported driver")

	// ErrKeyEmpty 键为空
	ErrKeyEmpty = xerrors.New("store: key is empty")
)
