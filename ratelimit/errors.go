package ratelimit

import "github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"

// CodeRateLimited 请求被限流时的机器可读错误码
const CodeRateLimited = "RATE_LIMITED"

// 错误定义
var (
	// ErrStoreNil 缺少共享存储
	ErrStoreNil = xerrors.New("ratelimit: store is required, use WithStore")

	// ErrInvalidPolicy 策略缺少有效的阈值或窗口
	ErrInvalidPolicy = xerrors.New("ratelimit: policy requires positive limit and window")

	// ErrRateLimited 请求被限流
	ErrRateLimited = xerrors.NewCoded(CodeRateLimited, "ratelimit: request rejected")
)
