package user

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。
const schema = `
CREATE TABLE IF NOT EXISTS users (
    -- ユーザーの一意識別子（UUID）
    id TEXT PRIMARY KEY,
    -- リンクされたauthサービス側の認証識別子
    auth_identifier TEXT NOT NULL,
    -- プロフィール本体（任意フィールドのJSON）
    profile TEXT NOT NULL,
    -- 作成日時
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

-- 認証識別子での検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_users_auth_identifier
    ON users(auth_identifier);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
