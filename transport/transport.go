// Package transport 定义对上游提供方的调用抽象。
//
// 网关的派发层只面向 Transport 接口，不关心提供方的实际协议。
// 调用错误统一分类为三类机器可读错误码，供熔断与降级决策使用：
//
//   - TIMEOUT：调用超出时限（上下文超时或传输层超时）
//   - CONNECTION_ERROR：建连或传输失败
//   - REMOTE_ERROR：对端返回 4xx/5xx，状态码保留在错误链中
//
// ## 基本使用
//
//	tp, _ := transport.NewHTTP(&transport.HTTPConfig{
//	    BaseURL: "https://api.openai.com",
//	    Timeout: 30 * time.Second,
//	})
//
//	resp, err := tp.Call(ctx, &transport.Request{
//	    Method: http.MethodPost,
//	    Path:   "/v1/chat/completions",
//	    Body:   payload,
//	})
package transport

import (
	"context"
	"net/http"
)

// Request 提供方调用请求
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Response 提供方调用响应
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport 提供方调用接口
type Transport interface {
	// Call 执行一次调用。错误通过 xerrors 错误码分类；
	// REMOTE_ERROR 时 Response 仍然有效，携带对端状态与响应体。
	Call(ctx context.Context, req *Request) (*Response, error)
}

// Func 函数适配器，便于测试与内嵌提供方。
type Func func(ctx context.Context, req *Request) (*Response, error)

func (f Func) Call(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
