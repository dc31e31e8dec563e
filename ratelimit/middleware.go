package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ContextUserKey gin 上下文中认证用户 ID 的键，由上游认证层写入。
const ContextUserKey = "user_id"

// IdentityFunc 从请求中提取限流身份
type IdentityFunc func(*gin.Context) string

// DefaultIdentity 默认身份提取：API Key 优先，其次认证用户，最后客户端 IP。
func DefaultIdentity(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return "apikey:" + key
	}
	if user, ok := c.Get(ContextUserKey); ok {
		return fmt.Sprintf("user:%v", user)
	}
	return "ip:" + c.ClientIP()
}

// GinMiddleware 创建 Gin 限流中间件
//
// 每次判定都会写入 X-RateLimit-Limit / X-RateLimit-Remaining 响应头；
// 拒绝时返回 429 并附带 Retry-After。identityFn 为 nil 时使用
// DefaultIdentity。
//
// 使用示例:
//
//	r := gin.New()
//	r.Use(ratelimit.GinMiddleware(limiter,
//	    ratelimit.Policy{Limit: 100, Window: time.Minute, Class: "api"},
//	    nil))
func GinMiddleware(limiter Limiter, policy Policy, identityFn IdentityFunc) gin.HandlerFunc {
	if identityFn == nil {
		identityFn = DefaultIdentity
	}

	return func(c *gin.Context) {
		identity := identityFn(c)
		if identity == "" {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), identity, policy)
		if err != nil {
			// 无效策略等配置性错误：放行，避免影响业务
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(policy.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			retryAfter := int64(decision.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
