package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/restaurant-api/pkg/apperr"
	"go.uber.org/zap"
)

// ErrorResponse はすべての失敗で返すJSONボディ。
type ErrorResponse struct {
	// Status はHTTPステータスコード。
	Status int `json:"status"`
	// Message は人間向けのメッセージ。
	Message string `json:"message"`
}

// Fail はコンテキストにエラーを積んで後続のハンドラを中断する。
// 呼び出し元は直後にreturnすること。
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler はパイプライン中に積まれたエラーをJSONレスポンスに変換するGinミドルウェアを返す。
// 他のミドルウェアより先に登録し、チェーン全体を包む位置で使用する。
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		last := c.Errors.Last()
		failure := apperr.From(last.Err)
		status := failure.StatusCode()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.String("kind", string(failure.Kind)),
			zap.Error(last.Err),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("リクエスト処理中にエラーが発生しました", fields...)
		} else {
			logger.Debug("リクエストが失敗しました", fields...)
		}

		if c.Writer.Written() {
			return
		}
		c.JSON(status, ErrorResponse{
			Status:  status,
			Message: failure.PublicMessage(),
		})
	}
}

// NotFound はどのルートにも一致しなかったリクエストを404の失敗にするハンドラを返す。
// engine.NoRoute に登録する。
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		Fail(c, apperr.RouteNotFound(c.Request.Method, c.Request.URL.Path))
	}
}
