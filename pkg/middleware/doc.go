// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// ベアラートークンを検証して識別ヘッダーを下流に伝播する認証フィルタ、
// ロールによるアクセス制御、パニックリカバリ、CORS設定など、
// 全サービスで共通して使用するミドルウェアを含む。
package middleware
