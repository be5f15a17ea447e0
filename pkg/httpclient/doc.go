// Package httpclient はサービス間通信用のJSON HTTPクライアントを提供する。
//
// gatewayからauth/userサービスへのアウトバウンド呼び出しに使用する。
// リクエストごとのタイムアウトと、コンテキスト経由の識別情報
// （ユーザーIDとロール一覧）のヘッダー伝播をサポートする。
package httpclient
