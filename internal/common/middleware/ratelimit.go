package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"loyalty-promo-backend/internal/common/kv"
)

// RateLimit caps requests per client IP to max within a fixed window.
// The counter lives in the cache store under prefix:<ip> and expires
// with the window.
func RateLimit(store kv.Store, prefix string, max int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := prefix + ":" + c.ClientIP()
		count, err := store.Incr(c.Request.Context(), key, window)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			return
		}
		if count > max {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, please try again later"})
			return
		}
		c.Next()
	}
}
