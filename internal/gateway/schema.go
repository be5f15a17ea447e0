package gateway

import (
	"database/sql"
	"fmt"
)

// schema は登録失敗の監査テーブル定義。
// Sagaの最終結果のみを記録し、進行中のSaga状態は保持しない。
const schema = `
CREATE TABLE IF NOT EXISTS registration_failures (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    stage TEXT NOT NULL,
    compensated INTEGER NOT NULL,
    detail TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_registration_failures_compensated
    ON registration_failures(compensated);
`

// initSchema はデータベーススキーマを初期化する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
