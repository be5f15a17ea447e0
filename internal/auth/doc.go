// Package auth は認証情報サービスの内部実装を提供する。
//
// 認証情報（ユーザー名・bcryptハッシュ化済みパスワード・ロール）の
// 作成・参照・削除と、JWTトークンの発行（ログイン・リフレッシュ）・
// 検証APIを担当する。登録Sagaのフェーズ1と補償アクションの対象となる
// サービスであり、識別子（ユーザー名またはID）による削除を提供する。
package auth
