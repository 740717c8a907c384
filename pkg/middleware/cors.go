package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// corsAllowAll は全オリジンを許可する指定。
const corsAllowAll = "*"

// CORS は指定されたオリジンからのクロスオリジンリクエストを許可するGinミドルウェアを返す。
// allowedOriginsに "*" を含めると全オリジンを許可する。空の場合はヘッダーを一切付与しない。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == corsAllowAll {
			allowAll = true
			continue
		}
		originsSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		_, listed := originsSet[origin]
		if origin != "" && (allowAll || listed) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-User-ID")
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
