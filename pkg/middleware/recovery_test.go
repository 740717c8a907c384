package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/restaurant-api/pkg/apperr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// newRecoveryRouter はErrorHandlerとRecoveryを適用したテスト用ルーターを生成する。
func newRecoveryRouter(logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandler(logger))
	router.Use(Recovery(logger))
	return router
}

// TestRecovery はRecoveryミドルウェアを検証する。
func TestRecovery(t *testing.T) {
	t.Parallel()

	t.Run("パニックが発生した場合500と汎用メッセージが返ること", func(t *testing.T) {
		t.Parallel()

		router := newRecoveryRouter(zap.NewNop())
		router.GET("/panic", func(_ *gin.Context) {
			panic("テスト用パニック")
		})

		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		body := decodeErrorResponse(t, w)
		if body.Message != apperr.MessageInternal {
			t.Errorf("message = %q, want %q", body.Message, apperr.MessageInternal)
		}
		if body.Status != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", body.Status, http.StatusInternalServerError)
		}
	})

	t.Run("パニックが発生しない場合は正常にレスポンスが返ること", func(t *testing.T) {
		t.Parallel()

		router := newRecoveryRouter(zap.NewNop())
		router.GET("/ok", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("error型のパニック値でも500が返ること", func(t *testing.T) {
		t.Parallel()

		router := newRecoveryRouter(zap.NewNop())
		router.GET("/panic-error", func(_ *gin.Context) {
			panic(http.ErrAbortHandler)
		})

		req := httptest.NewRequest(http.MethodGet, "/panic-error", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})

	t.Run("パニック後もサーバーが次のリクエストを処理できること", func(t *testing.T) {
		t.Parallel()

		router := newRecoveryRouter(zap.NewNop())
		router.GET("/panic", func(_ *gin.Context) {
			panic("パニック発生")
		})
		router.GET("/ok", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "recovered"})
		})

		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/panic", nil))
		if w1.Code != http.StatusInternalServerError {
			t.Errorf("1回目のステータスコード = %d, want %d", w1.Code, http.StatusInternalServerError)
		}

		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if w2.Code != http.StatusOK {
			t.Errorf("2回目のステータスコード = %d, want %d", w2.Code, http.StatusOK)
		}
	})

	t.Run("パニックがスタック付きでログに出力されること", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zapcore.ErrorLevel)
		router := newRecoveryRouter(zap.New(core))
		router.POST("/panic-post", func(_ *gin.Context) {
			panic("POSTでパニック")
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/panic-post", nil))

		found := false
		for _, entry := range logs.All() {
			if entry.Message == "パニックから回復しました" {
				found = true
				if _, ok := entry.ContextMap()["stack"]; !ok {
					t.Error("stackフィールドが含まれるべき")
				}
			}
		}
		if !found {
			t.Error("パニックのログが出力されるべき")
		}
	})
}
