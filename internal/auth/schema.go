package auth

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。
const schema = `
CREATE TABLE IF NOT EXISTS credentials (
    -- 認証情報の一意識別子（UUID）
    id TEXT PRIMARY KEY,
    -- ログインに使用するユーザー名
    username TEXT NOT NULL UNIQUE,
    -- bcryptでハッシュ化済みのパスワード
    password_hash TEXT NOT NULL,
    -- 主体に付与されたロール
    role TEXT NOT NULL DEFAULT 'USER',
    -- 作成日時
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
