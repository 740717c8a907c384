package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/nao1215/restaurant-api/pkg/apperr"
)

// JSONBody はJSONリクエストボディを事前に検証するGinミドルウェアを返す。
// Content-Typeがapplication/jsonのリクエストについて、ボディがlimitバイトを
// 超える場合は413、JSONとして不正な場合は400の失敗にする。
// 検証済みのボディは後続のハンドラが再度読めるように差し戻す。
func JSONBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody || c.ContentType() != binding.MIMEJSON {
			c.Next()
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				Fail(c, apperr.PayloadTooLarge(limit))
				return
			}
			Fail(c, apperr.BadRequest(err, "Failed to read request body"))
			return
		}

		if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
			Fail(c, apperr.BadRequest(nil, "Malformed JSON body"))
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}
