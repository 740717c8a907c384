package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/restaurant-api/pkg/apperr"
	"github.com/nao1215/restaurant-api/pkg/token"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testSecret はテスト用のJWTシークレット。
const testSecret = "test-secret-key-for-unit-tests"

// issueTestToken はテスト用のトークンを発行する。
func issueTestToken(t *testing.T, secret string, identity token.Identity) string {
	t.Helper()

	tok, err := token.NewIssuer(secret, "restaurant-api", time.Hour).Issue(identity)
	if err != nil {
		t.Fatalf("テスト用トークンの発行に失敗: %v", err)
	}
	return tok
}

// newGatedRouter はErrorHandlerとAuthを適用したテスト用ルーターを生成する。
// handlerCalledは保護されたハンドラが実行されたかどうかを記録する。
func newGatedRouter(handlerCalled *bool, captured *token.Identity) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandler(zap.NewNop()))
	router.Use(Auth(token.NewVerifier(testSecret)))
	router.GET("/test", func(c *gin.Context) {
		*handlerCalled = true
		if identity, ok := GetIdentity(c); ok {
			*captured = identity
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

// decodeErrorResponse はエラーレスポンスのボディをパースする。
func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v (body=%s)", err, w.Body.String())
	}
	return body
}

// TestExtractBearerToken はAuthorizationヘッダーからのトークン抽出を検証する。
func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "通常のBearerトークン", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "スキームの大文字小文字を区別しない", header: "bearer abc", want: "abc"},
		{name: "空ヘッダー", header: "", want: ""},
		{name: "スキームのみ", header: "Bearer", want: ""},
		{name: "スキームと空白のみ", header: "Bearer ", want: ""},
		{name: "Bearer以外のスキーム", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "スキーム無しのトークン", header: "abc.def.ghi", want: ""},
		{name: "最初の空白以降をすべてトークンとする", header: "Bearer a b", want: "a b"},
		{name: "スキーム後の連続した空白は取り除く", header: "Bearer   tok", want: "tok"},
		{name: "トークン末尾の空白は取り除く", header: "Bearer tok  ", want: "tok"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ExtractBearerToken(tt.header); got != tt.want {
				t.Errorf("ExtractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

// stubVerifier は呼び出し回数を記録するテスト用のIdentityVerifier。
type stubVerifier struct {
	calls    int
	identity token.Identity
	err      error
}

func (s *stubVerifier) Verify(_ string) (token.Identity, error) {
	s.calls++
	return s.identity, s.err
}

// TestAuthenticate は認証ゲートの判定関数を検証する。
func TestAuthenticate(t *testing.T) {
	t.Parallel()

	t.Run("トークンが無い場合は検証を行わずMissingCredentialを返すこと", func(t *testing.T) {
		t.Parallel()

		v := &stubVerifier{}
		_, err := Authenticate("", v)

		var f *apperr.Failure
		if !errors.As(err, &f) {
			t.Fatalf("Failureが返るべき: %v", err)
		}
		if f.Kind != apperr.KindMissingCredential {
			t.Errorf("Kind = %q, want %q", f.Kind, apperr.KindMissingCredential)
		}
		if v.calls != 0 {
			t.Errorf("Verify呼び出し回数 = %d, want 0", v.calls)
		}
	})

	t.Run("検証に失敗した場合InvalidCredentialを返すこと", func(t *testing.T) {
		t.Parallel()

		v := &stubVerifier{err: token.ErrInvalidSignature}
		_, err := Authenticate("Bearer x", v)

		var f *apperr.Failure
		if !errors.As(err, &f) {
			t.Fatalf("Failureが返るべき: %v", err)
		}
		if f.Kind != apperr.KindInvalidCredential {
			t.Errorf("Kind = %q, want %q", f.Kind, apperr.KindInvalidCredential)
		}
		if !errors.Is(err, token.ErrInvalidSignature) {
			t.Error("原因エラーが保持されるべき")
		}
	})

	t.Run("検証に成功した場合Identityを返すこと", func(t *testing.T) {
		t.Parallel()

		want := token.Identity{ID: "cust-1", Role: token.RoleCustomer}
		v := &stubVerifier{identity: want}
		got, err := Authenticate("Bearer x", v)
		if err != nil {
			t.Fatalf("Authenticate()でエラーが発生: %v", err)
		}
		if got != want {
			t.Errorf("Identity = %+v, want %+v", got, want)
		}
		if v.calls != 1 {
			t.Errorf("Verify呼び出し回数 = %d, want 1", v.calls)
		}
	})
}

// TestAuth は認証ゲートミドルウェアを検証する。
func TestAuth(t *testing.T) {
	t.Parallel()

	t.Run("有効なトークンでIdentityがハンドラに渡ること", func(t *testing.T) {
		t.Parallel()

		var called bool
		var captured token.Identity
		router := newGatedRouter(&called, &captured)

		tokenStr := issueTestToken(t, testSecret, token.Identity{ID: "cust-ok", Role: token.RoleCustomer})
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if !called {
			t.Error("ハンドラが呼ばれるべき")
		}
		if captured.ID != "cust-ok" || captured.Role != token.RoleCustomer {
			t.Errorf("Identity = %+v", captured)
		}
		if got := w.Header().Get("X-User-ID"); got != "cust-ok" {
			t.Errorf("X-User-ID = %q, want %q", got, "cust-ok")
		}
	})

	t.Run("Authorizationヘッダーが無い場合401とメッセージが返ること", func(t *testing.T) {
		t.Parallel()

		var called bool
		var captured token.Identity
		router := newGatedRouter(&called, &captured)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		body := decodeErrorResponse(t, w)
		if body.Status != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", body.Status, http.StatusUnauthorized)
		}
		if body.Message != "No token, authorization denied" {
			t.Errorf("message = %q, want %q", body.Message, "No token, authorization denied")
		}
		if called {
			t.Error("トークンが無い場合ハンドラが呼ばれるべきではない")
		}
	})

	t.Run("不正なトークンで401とメッセージが返ること", func(t *testing.T) {
		t.Parallel()

		var called bool
		var captured token.Identity
		router := newGatedRouter(&called, &captured)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		body := decodeErrorResponse(t, w)
		if body.Message != "Token is not valid" {
			t.Errorf("message = %q, want %q", body.Message, "Token is not valid")
		}
		if called {
			t.Error("不正なトークンでハンドラが呼ばれるべきではない")
		}
	})

	t.Run("異なるシークレットで署名されたトークンで401が返ること", func(t *testing.T) {
		t.Parallel()

		var called bool
		var captured token.Identity
		router := newGatedRouter(&called, &captured)

		tokenStr := issueTestToken(t, "different-secret", token.Identity{ID: "cust-diff", Role: token.RoleCustomer})
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if called {
			t.Error("ハンドラが呼ばれるべきではない")
		}
	})

	t.Run("レスポンスが1つだけ書き込まれること", func(t *testing.T) {
		t.Parallel()

		var called bool
		var captured token.Identity
		router := newGatedRouter(&called, &captured)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// ボディが単一のJSONオブジェクトとしてパースできることで二重書き込みが無いことを確認する
		body := decodeErrorResponse(t, w)
		if body.Message != "No token, authorization denied" {
			t.Errorf("message = %q, want %q", body.Message, "No token, authorization denied")
		}
	})
}

// TestGetUserID はGetUserID関数を検証する。
func TestGetUserID(t *testing.T) {
	t.Parallel()

	t.Run("Identityが設定されている場合にIDを取得できること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(contextKeyIdentity, token.Identity{ID: "cust-get-id", Role: token.RoleCustomer})

		if got := GetUserID(c); got != "cust-get-id" {
			t.Errorf("GetUserID() = %q, want %q", got, "cust-get-id")
		}
	})

	t.Run("Identityが設定されていない場合に空文字列が返ること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		if got := GetUserID(c); got != "" {
			t.Errorf("GetUserID() = %q, want empty string", got)
		}
		if _, ok := GetIdentity(c); ok {
			t.Error("GetIdentity()がfalseを返すべき")
		}
	})

	t.Run("Identity以外の型の場合に空文字列が返ること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(contextKeyIdentity, "cust-string")

		if got := GetUserID(c); got != "" {
			t.Errorf("GetUserID() = %q, want empty string", got)
		}
	})
}
