// Package user はユーザープロフィールサービスの内部実装を提供する。
//
// プロフィールは任意のフィールド構成を持つJSONとして保存する。
// 作成時にはauthサービス側の認証識別子（authIdentifierフィールド）の
// リンクを必須とし、登録Sagaのフェーズ2の対象となる。
package user
