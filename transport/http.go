package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

// HTTPConfig HTTP 传输配置
type HTTPConfig struct {
	// BaseURL 提供方基础地址，如 "https://api.openai.com"
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Timeout 单次调用超时（默认 30s）
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxResponseBytes 响应体读取上限（默认 8 MiB）
	MaxResponseBytes int64 `json:"max_response_bytes" yaml:"max_response_bytes" mapstructure:"max_response_bytes"`
}

func (c *HTTPConfig) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = 8 << 20
	}
}

// httpTransport 基于 net/http 的传输实现（非导出）
type httpTransport struct {
	cfg    *HTTPConfig
	client *http.Client
	logger clog.Logger
}

// HTTPOption HTTP 传输初始化选项
type HTTPOption func(*httpTransport)

// WithHTTPClient 替换底层 http.Client（测试或定制连接池时使用）
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *httpTransport) {
		t.client = client
	}
}

// WithHTTPLogger 设置 Logger
func WithHTTPLogger(logger clog.Logger) HTTPOption {
	return func(t *httpTransport) {
		t.logger = logger
	}
}

// NewHTTP 创建 HTTP 传输实例
func NewHTTP(cfg *HTTPConfig, opts ...HTTPOption) (Transport, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, xerrors.New("transport: base url is required")
	}
	cfg.setDefaults()

	t := &httpTransport{
		cfg:    cfg,
		logger: clog.Discard(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: cfg.Timeout}
	}
	t.logger = t.logger.WithNamespace("transport")
	return t, nil
}

func (t *httpTransport) Call(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrRequestNil
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	url := strings.TrimSuffix(t.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(req.Path, "/")

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, xerrors.Wrap(err, "transport: build request")
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyCallError(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, t.cfg.MaxResponseBytes))
	if err != nil {
		return nil, classifyCallError(err)
	}

	resp := &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   respBody,
	}

	// 4xx/5xx 视为调用失败，但响应内容保留给调用方
	if httpResp.StatusCode >= http.StatusBadRequest {
		return resp, NewRemoteError(httpResp.StatusCode)
	}
	return resp, nil
}
