package auth

import (
	"context"
	"database/sql"
	"time"
)

// Credential は認証情報テーブルの1行。
type Credential struct {
	// ID は認証情報の一意識別子（UUID）。
	ID string
	// Username はログインに使用するユーザー名。
	Username string
	// PasswordHash はbcryptでハッシュ化済みのパスワード。
	PasswordHash string
	// Role は主体に付与されたロール。
	Role string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// queries は認証情報テーブルへのクエリ実行オブジェクト。
type queries struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// newQueries は新しいクエリ実行オブジェクトを生成する。
func newQueries(db *sql.DB) *queries {
	return &queries{db: db}
}

// createCredentialParams は認証情報作成のパラメータ。
type createCredentialParams struct {
	// ID は認証情報の一意識別子。
	ID string
	// Username はユーザー名。
	Username string
	// PasswordHash はハッシュ化済みパスワード。
	PasswordHash string
	// Role はロール。
	Role string
}

// createCredential は認証情報を1件作成する。
func (q *queries) createCredential(ctx context.Context, params createCredentialParams) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO credentials (id, username, password_hash, role) VALUES (?, ?, ?, ?)",
		params.ID, params.Username, params.PasswordHash, params.Role,
	)
	return err
}

// getCredentialByUsername はユーザー名で認証情報を1件取得する。
func (q *queries) getCredentialByUsername(ctx context.Context, username string) (Credential, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, role, created_at FROM credentials WHERE username = ?",
		username,
	)
	var c Credential
	err := row.Scan(&c.ID, &c.Username, &c.PasswordHash, &c.Role, &c.CreatedAt)
	return c, err
}

// getCredentialByIdentifier はユーザー名またはIDで認証情報を1件取得する。
// Sagaの補償と運用時の参照は、フェーズ1で捕捉した識別子
// （username優先・idフォールバック）のどちらでも解決できる必要がある。
func (q *queries) getCredentialByIdentifier(ctx context.Context, identifier string) (Credential, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, role, created_at FROM credentials WHERE username = ? OR id = ?",
		identifier, identifier,
	)
	var c Credential
	err := row.Scan(&c.ID, &c.Username, &c.PasswordHash, &c.Role, &c.CreatedAt)
	return c, err
}

// deleteCredentialByIdentifier はユーザー名またはIDで認証情報を削除し、削除件数を返す。
func (q *queries) deleteCredentialByIdentifier(ctx context.Context, identifier string) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE username = ? OR id = ?",
		identifier, identifier,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
