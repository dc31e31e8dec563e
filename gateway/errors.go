package gateway

import "github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"

// 派发失败错误码
const (
	CodeAllProvidersFailed = "ALL_PROVIDERS_FAILED"
)

// 错误定义
var (
	// ErrAllProvidersFailed 所有提供方均不可用
	ErrAllProvidersFailed = xerrors.NewCoded(CodeAllProvidersFailed,
		"gateway: all providers failed")

	// ErrNoProviders 未提供任何候选提供方
	ErrNoProviders = xerrors.New("gateway: no providers supplied")

	// ErrOperationNil 操作为空
	ErrOperationNil = xerrors.New("gateway: operation is nil")
)
