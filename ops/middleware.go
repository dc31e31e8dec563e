package ops

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID 请求标识头，入站已携带时原样沿用。
const HeaderRequestID = "X-Request-ID"

// HeaderResponseTime 请求处理耗时头（毫秒）
const HeaderResponseTime = "X-Response-Time"

// ContextRequestIDKey gin 上下文中请求 ID 的键
const ContextRequestIDKey = "request_id"

// RequestID 请求追踪中间件。
//
// 为每个请求分配（或沿用入站的）请求 ID，写入响应头与 gin 上下文，
// 响应结束时附带处理耗时头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(ContextRequestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)

		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		c.Header(HeaderResponseTime, strconv.FormatInt(elapsed.Milliseconds(), 10)+"ms")
	}
}

// GetRequestID 从 gin 上下文读取请求 ID，中间件未启用时返回空串。
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextRequestIDKey)
}
