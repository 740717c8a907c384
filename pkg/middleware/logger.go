package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/restaurant-api/pkg/apperr"
	"go.uber.org/zap"
)

// headerKeyRequestID はリクエストIDを伝播するHTTPヘッダーキー。
const headerKeyRequestID = "X-Request-ID"

// contextKeyRequestID はリクエストIDをGinコンテキストに格納するキー。
const contextKeyRequestID = "request_id"

// RequestLogger はリクエストごとに1行の構造化ログを出力するGinミドルウェアを返す。
// リクエストIDが無い場合は新しく採番し、レスポンスヘッダーにも設定する。
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(headerKeyRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(contextKeyRequestID, requestID)
		c.Header(headerKeyRequestID, requestID)

		c.Next()

		// 失敗時のレスポンスは外側のErrorHandlerが書き込むため、ここでは積まれたエラーから求める
		status := c.Writer.Status()
		if !c.Writer.Written() && len(c.Errors) > 0 {
			status = apperr.From(c.Errors.Last().Err).StatusCode()
		}

		logger.Info("リクエストを処理しました",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_id", GetUserID(c)),
		)
	}
}

// GetRequestID はGinコンテキストからリクエストIDを取得する。
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
