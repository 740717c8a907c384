// Package apperr はリクエストパイプライン上で発生する失敗（Failure）を表現する。
//
// 各ステージ（認証ゲート、ハンドラ、ボディ解析など）はFailureを生成してGinの
// エラーチャネルに積み、エラーレスポンダーがそれを一度だけHTTPレスポンスに変換する。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind は失敗の分類を表す。
type Kind string

const (
	// KindMissingCredential は認証が必要なリクエストにトークンが無いことを表す。
	KindMissingCredential Kind = "MissingCredential"
	// KindInvalidCredential はトークンの検証に失敗したことを表す。
	KindInvalidCredential Kind = "InvalidCredential"
	// KindRouteNotFound はどのルートにも一致しなかったことを表す。
	KindRouteNotFound Kind = "RouteNotFound"
	// KindNotFound は指定されたリソースが存在しないことを表す。
	KindNotFound Kind = "NotFound"
	// KindBadRequest はリクエストの内容が不正であることを表す。
	KindBadRequest Kind = "BadRequest"
	// KindPayloadTooLarge はリクエストボディが上限を超えたことを表す。
	KindPayloadTooLarge Kind = "PayloadTooLarge"
	// KindForbidden は権限が不足していることを表す。
	KindForbidden Kind = "Forbidden"
	// KindConflict は一意制約などの競合を表す。
	KindConflict Kind = "Conflict"
	// KindUnhandled はその他すべての失敗を表す。
	KindUnhandled Kind = "UnhandledFailure"
)

// 認証失敗時のメッセージ。クライアントとの互換性のため文言を変更しないこと。
const (
	MessageMissingCredential = "No token, authorization denied"
	MessageInvalidCredential = "Token is not valid"
)

// MessageInternal はステータス500で詳細を隠す際の汎用メッセージ。
const MessageInternal = "Internal Server Error"

// Failure はパイプラインの失敗を表す。Statusが0の場合は500として扱う。
type Failure struct {
	// Status はHTTPステータスコード。
	Status int
	// Message はクライアントに返す人間向けのメッセージ。
	Message string
	// Kind は失敗の分類。
	Kind Kind
	// Err は原因となったエラー。ログにのみ出力し、クライアントには返さない。
	Err error
}

// Error はerrorインターフェースを実装する。
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s (%d): %s: %v", f.Kind, f.StatusCode(), f.Message, f.Err)
	}
	return fmt.Sprintf("%s (%d): %s", f.Kind, f.StatusCode(), f.Message)
}

// Unwrap は原因エラーを返す。
func (f *Failure) Unwrap() error {
	return f.Err
}

// StatusCode は未設定の場合に500を補ったステータスコードを返す。
func (f *Failure) StatusCode() int {
	if f.Status == 0 {
		return http.StatusInternalServerError
	}
	return f.Status
}

// PublicMessage はクライアントに返すメッセージを返す。
// 未設定の場合はステータスに対応する標準の文言を使う。
func (f *Failure) PublicMessage() string {
	if f.Message != "" {
		return f.Message
	}
	if text := http.StatusText(f.StatusCode()); text != "" {
		return text
	}
	return MessageInternal
}

// New は任意のステータスとメッセージでFailureを生成する。
func New(status int, kind Kind, message string) *Failure {
	return &Failure{Status: status, Kind: kind, Message: message}
}

// Wrap は原因エラー付きのFailureを生成する。
func Wrap(err error, status int, kind Kind, message string) *Failure {
	return &Failure{Status: status, Kind: kind, Message: message, Err: err}
}

// MissingCredential はトークン欠落の失敗を生成する。
func MissingCredential() *Failure {
	return New(http.StatusUnauthorized, KindMissingCredential, MessageMissingCredential)
}

// InvalidCredential はトークン検証失敗の失敗を生成する。
func InvalidCredential(err error) *Failure {
	return Wrap(err, http.StatusUnauthorized, KindInvalidCredential, MessageInvalidCredential)
}

// RouteNotFound は未登録ルートへのアクセスの失敗を生成する。
func RouteNotFound(method, path string) *Failure {
	return New(http.StatusNotFound, KindRouteNotFound, fmt.Sprintf("Route not found: %s %s", method, path))
}

// NotFound はリソース未検出の失敗を生成する。
func NotFound(message string) *Failure {
	return New(http.StatusNotFound, KindNotFound, message)
}

// BadRequest は不正なリクエストの失敗を生成する。
func BadRequest(err error, message string) *Failure {
	return Wrap(err, http.StatusBadRequest, KindBadRequest, message)
}

// PayloadTooLarge はボディサイズ超過の失敗を生成する。
func PayloadTooLarge(limit int64) *Failure {
	return New(http.StatusRequestEntityTooLarge, KindPayloadTooLarge,
		fmt.Sprintf("Request body exceeds %d bytes", limit))
}

// Forbidden は権限不足の失敗を生成する。
func Forbidden(message string) *Failure {
	return New(http.StatusForbidden, KindForbidden, message)
}

// Conflict は競合の失敗を生成する。
func Conflict(message string) *Failure {
	return New(http.StatusConflict, KindConflict, message)
}

// Internal は内部エラーを500の失敗に変換する。原因はクライアントに公開しない。
func Internal(err error) *Failure {
	return Wrap(err, http.StatusInternalServerError, KindUnhandled, MessageInternal)
}

// From は任意のエラーをFailureに変換する。
// Failureを含まないエラーは詳細を隠した500として扱う。
func From(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return Internal(err)
}
