package cache

import "github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"

// 错误定义
var (
	// ErrStoreNil distributed 驱动缺少共享存储
	ErrStoreNil = xerrors.New("cache: store is required, use WithStore")

	// ErrUnsupportedDriver 不支持的驱动类型
	ErrUnsupportedDriver = xerrors.New("cache: unsupported driver")

	// ErrKeyEmpty 键为空
	ErrKeyEmpty = xerrors.New("cache: key is empty")

	// ErrComputeNil 回源函数为空
	ErrComputeNil = xerrors.New("cache: compute func is nil")
)
