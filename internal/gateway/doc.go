// Package gateway はAPI Gatewayサービスを提供する。
//
// 全リクエストの入口として認証フィルタ（Bearerトークン検証と
// アイデンティティヘッダーの付与）を適用し、認証系エンドポイントを
// authサービスへプロキシする。また、ユーザー登録のSagaオーケストレータを
// ホストし、auth・user両サービスへの2フェーズ登録と失敗時の補償を行う。
// Sagaの失敗は監査テーブルに記録され、補償に失敗した孤児リソースは
// 管理者向けエンドポイントから確認できる。
package gateway
