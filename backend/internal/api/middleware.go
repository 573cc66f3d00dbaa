package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"digital-twin/backend/internal/ratelimit"
	apperrors "digital-twin/backend/pkg/errors"
)

const (
	// HeaderAuthenticatedUser carries the identity set by the upstream auth proxy
	HeaderAuthenticatedUser = "X-Authenticated-User"
	HeaderForwardedFor      = "X-Forwarded-For"
	HeaderRealIP            = "X-Real-IP"

	callerKey = "caller"
)

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
			zap.String("user", c.GetHeader(HeaderAuthenticatedUser)),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// identify records who is calling and from where
func identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(callerKey, ratelimit.Caller{
			Subject:      c.GetHeader(HeaderAuthenticatedUser),
			ForwardedFor: c.GetHeader(HeaderForwardedFor),
			RealIP:       c.GetHeader(HeaderRealIP),
			RemoteAddr:   c.RemoteIP(),
		})
		c.Next()
	}
}

func callerFrom(c *gin.Context) ratelimit.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(ratelimit.Caller); ok {
			return caller
		}
	}
	return ratelimit.Caller{}
}

// limit rejects the request with 429 once caller exceeds policy for operation
func limit(limiter *ratelimit.Limiter, operation string, policy ratelimit.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if err := limiter.Allow(c.Request.Context(), operation, policy, callerFrom(c)); err != nil {
			if rlErr, ok := apperrors.AsRateLimitExceeded(err); ok {
				c.Header("Retry-After", strconv.Itoa(rlErr.RetryAfterSeconds))
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"message":    "Rate limit exceeded. Try again later.",
					"retryAfter": rlErr.RetryAfterSeconds,
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}
