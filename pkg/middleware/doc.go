// Package middleware はレストランAPIのリクエストパイプラインを構成するGinミドルウェアを提供する。
//
// パイプライン上の失敗はすべてapperr.Failureとしてc.Errorに積まれ、
// 最外周のErrorHandlerが {status, message} 形式のJSONに変換する。
// ベアラートークンの検証（Auth）、JSONボディの事前検証（JSONBody）、
// リクエストログ（RequestLogger）、パニックリカバリ（Recovery）、CORS設定を含む。
package middleware
