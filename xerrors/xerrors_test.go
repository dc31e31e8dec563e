package xerrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	base := New("connection refused")

	wrapped := Wrap(base, "dial redis")
	require.Error(t, wrapped)
	assert.Equal(t, "dial redis: connection refused", wrapped.Error())
	assert.True(t, Is(wrapped, base), "错误链应保留原始错误")

	assert.Nil(t, Wrap(nil, "ignored"), "nil 错误包装后仍为 nil")
}

func TestWrapf(t *testing.T) {
	base := New("timeout")
	wrapped := Wrapf(base, "provider %s call", "openai")
	assert.Equal(t, "provider openai call: timeout", wrapped.Error())
	assert.True(t, Is(wrapped, base))
}

func TestWithCode(t *testing.T) {
	base := New("circuit breaker is open")
	coded := WithCode(base, "BREAKER_OPEN")

	assert.Equal(t, "BREAKER_OPEN", GetCode(coded))
	assert.True(t, HasCode(coded, "BREAKER_OPEN"))
	assert.True(t, Is(coded, base), "WithCode 应保留错误链")

	// 再次包装后错误码仍可提取
	outer := Wrap(coded, "dispatch")
	assert.Equal(t, "BREAKER_OPEN", GetCode(outer))

	assert.Nil(t, WithCode(nil, "NOOP"))
}

func TestGetCodeNoCode(t *testing.T) {
	assert.Equal(t, "", GetCode(New("plain error")))
	assert.Equal(t, "", GetCode(nil))
}

func TestNewCoded(t *testing.T) {
	err := NewCoded("RATE_LIMITED", "quota exceeded")
	assert.Equal(t, "RATE_LIMITED", GetCode(err))
	assert.Contains(t, err.Error(), "quota exceeded")
}
