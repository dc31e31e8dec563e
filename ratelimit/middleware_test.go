package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/store"
)

func newMiddlewareRouter(t *testing.T, policy Policy) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(&store.Config{Driver: store.DriverMemory})
	require.NoError(t, err)

	limiter, err := New(DefaultConfig(), WithStore(st))
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware(limiter, policy, nil))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func doRequest(r *gin.Engine, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareAllowsAndSetsHeaders(t *testing.T) {
	r := newMiddlewareRouter(t, Policy{Limit: 2, Window: time.Minute, Class: "api"})

	w := doRequest(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddlewareDeniesWithRetryAfter(t *testing.T) {
	r := newMiddlewareRouter(t, Policy{Limit: 1, Window: time.Minute, Class: "api"})

	w := doRequest(r, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestMiddlewareIdentityIsolation(t *testing.T) {
	r := newMiddlewareRouter(t, Policy{Limit: 1, Window: time.Minute, Class: "api"})

	w := doRequest(r, "key-a")
	require.Equal(t, http.StatusOK, w.Code)

	// 不同 API Key 是不同身份，不共享配额
	w = doRequest(r, "key-b")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, "key-a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestDefaultIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("APIKeyFirst", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("X-API-Key", "secret")
		c.Set(ContextUserKey, 42)

		assert.Equal(t, "apikey:secret", DefaultIdentity(c))
	})

	t.Run("UserBeforeIP", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Set(ContextUserKey, 42)

		assert.Equal(t, "user:42", DefaultIdentity(c))
	})

	t.Run("IPFallback", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.RemoteAddr = "10.1.2.3:4567"

		assert.Equal(t, "ip:10.1.2.3", DefaultIdentity(c))
	})
}
