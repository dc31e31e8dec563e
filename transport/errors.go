package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

// 调用错误分类码
const (
	CodeTimeout         = "TIMEOUT"
	CodeConnectionError = "CONNECTION_ERROR"
	CodeRemoteError     = "REMOTE_ERROR"
)

// ErrRequestNil 请求为空
var ErrRequestNil = xerrors.New("transport: request is nil")

// StatusError 对端返回的错误状态
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: remote returned status %d", e.Status)
}

// NewRemoteError 构造带 REMOTE_ERROR 错误码的对端错误，状态码保留在错误链中。
func NewRemoteError(status int) error {
	return xerrors.WithCode(&StatusError{Status: status}, CodeRemoteError)
}

// StatusFromError 从错误链提取对端状态码，无状态时返回 0。
func StatusFromError(err error) int {
	var se *StatusError
	if xerrors.As(err, &se) {
		return se.Status
	}
	return 0
}

// classifyCallError 将底层调用错误归入 TIMEOUT 或 CONNECTION_ERROR。
func classifyCallError(err error) error {
	if xerrors.Is(err, context.DeadlineExceeded) {
		return xerrors.WithCode(err, CodeTimeout)
	}
	var netErr net.Error
	if xerrors.As(err, &netErr) && netErr.Timeout() {
		return xerrors.WithCode(err, CodeTimeout)
	}
	return xerrors.WithCode(err, CodeConnectionError)
}
