package breaker

import "github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"

// CodeOpen 熔断器处于打开状态时的机器可读错误码
const CodeOpen = "BREAKER_OPEN"

// 错误定义
var (
	// ErrStoreNil 缺少共享存储
	ErrStoreNil = xerrors.New("breaker: store is required, use WithStore")

	// ErrOpen 熔断器打开，调用被拒绝
	ErrOpen = xerrors.NewCoded(CodeOpen, "breaker: circuit open, call rejected")
)
