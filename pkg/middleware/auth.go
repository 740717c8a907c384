package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/restaurant-api/pkg/apperr"
	"github.com/nao1215/restaurant-api/pkg/token"
)

// contextKeyIdentity は認証済みIdentityをGinコンテキストに格納するキー。
const contextKeyIdentity = "identity"

// headerKeyUserID は認証済みユーザーIDをレスポンスに付与するHTTPヘッダーキー。
const headerKeyUserID = "X-User-ID"

// IdentityVerifier はトークン文字列を検証してIdentityを返す。
// *token.Verifier が実装する。
type IdentityVerifier interface {
	Verify(tokenString string) (token.Identity, error)
}

// ExtractBearerToken はAuthorizationヘッダーからトークンを取り出す。
// "Bearer <token>" 形式で、最初の空白以降の前後の空白を除いた部分をトークンとして扱う。
// 取り出せない場合は空文字列を返す。
func ExtractBearerToken(header string) string {
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}

// Authenticate はAuthorizationヘッダーの値を検証し、Identityか失敗のどちらかを返す。
// 失敗はトークン欠落ならMissingCredential、検証失敗ならInvalidCredentialになる。
func Authenticate(header string, v IdentityVerifier) (token.Identity, error) {
	tokenString := ExtractBearerToken(header)
	if tokenString == "" {
		return token.Identity{}, apperr.MissingCredential()
	}

	identity, err := v.Verify(tokenString)
	if err != nil {
		return token.Identity{}, apperr.InvalidCredential(err)
	}
	return identity, nil
}

// Auth はベアラートークンを検証するGinミドルウェアを返す。
// 成功時はコンテキストにIdentityを設定し、失敗時はエラーを積んで後続の処理を中断する。
func Auth(v IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := Authenticate(c.GetHeader("Authorization"), v)
		if err != nil {
			Fail(c, err)
			return
		}

		c.Set(contextKeyIdentity, identity)
		c.Header(headerKeyUserID, identity.ID)
		c.Next()
	}
}

// GetIdentity はGinコンテキストから認証済みIdentityを取得する。
// Authミドルウェアが適用されていない場合はfalseを返す。
func GetIdentity(c *gin.Context) (token.Identity, bool) {
	v, ok := c.Get(contextKeyIdentity)
	if !ok {
		return token.Identity{}, false
	}
	identity, ok := v.(token.Identity)
	return identity, ok
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// 未認証の場合は空文字列を返す。
func GetUserID(c *gin.Context) string {
	identity, _ := GetIdentity(c)
	return identity.ID
}
