package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyAuth API Key 认证中间件
// 支持 X-API-Key 头或 Authorization: Bearer <key>，apiKey 为空时不校验
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		token := c.GetHeader("X-API-Key")
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.JSON(http.StatusUnauthorized, gin.H{
					"status":  "error",
					"message": "missing API key",
				})
				c.Abort()
				return
			}

			token = strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				c.JSON(http.StatusUnauthorized, gin.H{
					"status":  "error",
					"message": "malformed authorization header",
				})
				c.Abort()
				return
			}
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "invalid API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
