// Package api はレストランAPIのHTTPサーバーを提供する。
//
// GET / のウェルカムメッセージと、メニュー（/menu）・注文（/orders）・
// 顧客（/customers）・認証（/auth）の各リソースグループをルーティングする。
// どのグループに認証ゲートを掛けるかは設定（PROTECTED_GROUPS）で決まる。
//
// エンドポイント:
//
//	GET   /                     ウェルカムメッセージ（認証・ボディ解析・ログなし）
//	GET   /menu/                メニュー一覧（?category= で絞り込み）
//	GET   /menu/:id             メニュー項目の取得
//	POST  /menu/                メニュー項目の作成（スタッフ・管理者のみ）
//	POST  /orders/              注文の作成
//	GET   /orders/              自分の注文一覧
//	GET   /orders/:id           注文の取得
//	GET   /customers/           顧客一覧（スタッフ・管理者のみ）
//	GET   /customers/:id        顧客の取得（本人またはスタッフ・管理者）
//	PATCH /customers/:id/role   役割の変更（管理者のみ）
//	POST  /auth/register        顧客登録とトークン発行
//	POST  /auth/login           ログインとトークン発行
//	GET   /auth/me              呼び出し元のIdentity
//
// コレクションのパスは末尾スラッシュの有無を問わない（/menu と /menu/ は同じ）。
// ADMIN_EMAILとADMIN_PASSWORDを設定すると起動時に管理者アカウントが用意される。
//
// 失敗はすべて {"status": <int>, "message": "<text>"} 形式で返る。
package api
