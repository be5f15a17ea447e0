package user

import (
	"context"
	"database/sql"
	"time"
)

// User はユーザーテーブルの1行。
type User struct {
	// ID はユーザーの一意識別子（UUID）。
	ID string
	// AuthIdentifier はリンクされた認証識別子。
	AuthIdentifier string
	// Profile はプロフィール本体（JSON文字列）。
	Profile string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// queries はユーザーテーブルへのクエリ実行オブジェクト。
type queries struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// newQueries は新しいクエリ実行オブジェクトを生成する。
func newQueries(db *sql.DB) *queries {
	return &queries{db: db}
}

// createUserParams はユーザー作成のパラメータ。
type createUserParams struct {
	// ID はユーザーの一意識別子。
	ID string
	// AuthIdentifier はリンクする認証識別子。
	AuthIdentifier string
	// Profile はプロフィール本体（JSON文字列）。
	Profile string
}

// createUser はユーザーを1件作成する。
func (q *queries) createUser(ctx context.Context, params createUserParams) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO users (id, auth_identifier, profile) VALUES (?, ?, ?)",
		params.ID, params.AuthIdentifier, params.Profile,
	)
	return err
}

// getUserByID はIDでユーザーを1件取得する。
func (q *queries) getUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, auth_identifier, profile, created_at FROM users WHERE id = ?",
		id,
	)
	var u User
	err := row.Scan(&u.ID, &u.AuthIdentifier, &u.Profile, &u.CreatedAt)
	return u, err
}

// deleteUserByID はIDでユーザーを削除し、削除件数を返す。
func (q *queries) deleteUserByID(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
