package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/restaurant-api/pkg/apperr"
	"go.uber.org/zap"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時はスタックトレースをログに出力し、500の失敗としてErrorHandlerに渡す。
// ErrorHandlerの内側に登録すること。
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("パニックから回復しました",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				Fail(c, apperr.Internal(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
