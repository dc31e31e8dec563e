package connector

import "github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("connector: config is nil")

	// ErrClientNil 客户端未初始化或已关闭
	ErrClientNil = xerrors.New("connector: client is nil")

	// ErrConnection 连接建立失败
	ErrConnection = xerrors.New("connector: connection failed")

	// ErrHealthCheck 健康检查失败
	ErrHealthCheck = xerrors.New("connector: health check failed")
)
