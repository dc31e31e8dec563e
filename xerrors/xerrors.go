// Package xerrors 提供标准化错误处理工具。
//
// 在标准库 errors 的基础上补充两类能力：
//   - 上下文包装：Wrap / Wrapf 保留错误链
//   - 机器可读错误码：WithCode / Code，供网关的错误分类体系使用
package xerrors

import (
	"errors"
	"fmt"
)

// Wrap 用上下文信息包装错误，保留错误链。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 用格式化的上下文信息包装错误。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WithCode 用错误码包装错误。
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{code: code, cause: err}
}

// NewCoded 创建一个带错误码的新错误。
func NewCoded(code string, msg string) error {
	return &CodedError{code: code, cause: errors.New(msg)}
}

// CodedError 带有机器可读错误码的错误。
type CodedError struct {
	code  string
	cause error
}

func (e *CodedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %v", e.code, e.cause)
	}
	return fmt.Sprintf("[%s]", e.code)
}

func (e *CodedError) Unwrap() error {
	return e.cause
}

// Code 返回错误码。
func (e *CodedError) Code() string {
	return e.code
}

// GetCode 从错误链中提取错误码，不存在时返回空字符串。
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}

// HasCode 判断错误链中是否携带指定错误码。
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// 标准库函数再导出
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)
