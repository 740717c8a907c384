// Package token はJWTベアラートークンの発行と検証を提供する。
//
// 署名方式はHS256に固定する。秘密鍵は起動時に一度だけ読み込み、
// Verifier/Issuerの生成時に注入する。リクエスト処理中に環境変数を参照しない。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSignature はトークンの構造・署名・有効期限・クレーム形状のいずれかが不正であることを表す。
// 呼び出し元には失敗の詳細な種類を区別させない。
var ErrInvalidSignature = errors.New("トークンが無効です")

// Role はユーザーの役割を表す。
type Role string

const (
	// RoleCustomer は一般の顧客。
	RoleCustomer Role = "customer"
	// RoleStaff は店舗スタッフ。
	RoleStaff Role = "staff"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
)

// Valid は既知の役割かどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Identity はトークンに埋め込まれた認証済みユーザーの情報。
type Identity struct {
	// ID はユーザー（顧客）の一意識別子。
	ID string `json:"id"`
	// Role はユーザーの役割。
	Role Role `json:"role"`
}

// IsStaff はスタッフ以上の役割かどうかを返す。
func (i Identity) IsStaff() bool {
	return i.Role == RoleStaff || i.Role == RoleAdmin
}

// Claims はJWTのペイロード。ユーザー情報は "user" キーの下に格納する。
type Claims struct {
	jwt.RegisteredClaims
	// User は認証済みユーザーの情報。
	User Identity `json:"user"`
}

// Validate はjwt.ClaimsValidatorを実装する。標準クレームの検証後に呼ばれ、
// ペイロードの形状が期待通りでない場合はエラーを返す。
func (c Claims) Validate() error {
	if c.User.ID == "" {
		return errors.New("user.idが空です")
	}
	if !c.User.Role.Valid() {
		return fmt.Errorf("user.roleが不正です: %q", c.User.Role)
	}
	return nil
}

// Verifier はトークンを検証してIdentityを取り出す。
// 生成後は不変であり、複数のゴルーチンから同時に使用できる。
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// VerifierOption はVerifierの設定を変更する。
type VerifierOption func(*Verifier)

// WithClock は有効期限の判定に使う現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier は秘密鍵を受け取ってVerifierを生成する。
func NewVerifier(secret string, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify はトークン文字列を検証し、埋め込まれたIdentityを返す。
// 失敗時は必ずErrInvalidSignatureをラップしたエラーを返す。
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if !tok.Valid {
		return Identity{}, ErrInvalidSignature
	}
	return claims.User, nil
}

// Issuer はトークンを発行する。
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer は秘密鍵・発行者名・有効期間を受け取ってIssuerを生成する。
func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue はIdentityを埋め込んだ署名済みトークンを生成する。
func (i *Issuer) Issue(identity Identity) (string, error) {
	if err := (Claims{User: identity}).Validate(); err != nil {
		return "", fmt.Errorf("クレームの検証に失敗: %w", err)
	}

	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			Subject:   identity.ID,
		},
		User: identity,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}
