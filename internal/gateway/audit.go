package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/accounthub/internal/saga"
)

// auditStore は登録失敗の監査レコードを永続化するストア。
// saga.AuditRecorderを実装する。
type auditStore struct {
	db *sql.DB
}

// newAuditStore は新しい監査ストアを生成する。
func newAuditStore(db *sql.DB) *auditStore {
	return &auditStore{db: db}
}

// failureRow は監査テーブルの1レコード。
type failureRow struct {
	// ID はレコードの一意識別子。
	ID string `json:"id"`
	// Username は登録しようとしていたユーザー名。
	Username string `json:"username"`
	// Stage は失敗したSagaフェーズ。
	Stage string `json:"stage"`
	// Compensated は補償が完了しているかどうか。
	Compensated bool `json:"compensated"`
	// Detail は失敗内容の説明。
	Detail string `json:"detail"`
	// CreatedAt はレコードの作成日時。
	CreatedAt time.Time `json:"created_at"`
}

const insertRegistrationFailure = `
INSERT INTO registration_failures (id, username, stage, compensated, detail)
VALUES (?, ?, ?, ?, ?)
`

// RecordFailure はSagaの失敗レコードを1件記録する。
func (s *auditStore) RecordFailure(ctx context.Context, record saga.FailureRecord) error {
	id := uuid.New().String()
	if _, err := s.db.ExecContext(ctx, insertRegistrationFailure,
		id, record.Username, string(record.Stage), record.Compensated, record.Detail); err != nil {
		return fmt.Errorf("監査レコードの挿入に失敗: %w", err)
	}
	return nil
}

const listUncompensatedFailures = `
SELECT id, username, stage, compensated, detail, created_at
FROM registration_failures
WHERE compensated = 0
ORDER BY created_at DESC
`

// listUncompensated は補償が完了していない失敗レコードの一覧を返す。
// 孤児となった認証リソースの手動復旧に使用される。
func (s *auditStore) listUncompensated(ctx context.Context) ([]failureRow, error) {
	rows, err := s.db.QueryContext(ctx, listUncompensatedFailures)
	if err != nil {
		return nil, fmt.Errorf("監査レコードの取得に失敗: %w", err)
	}
	defer rows.Close()

	var failures []failureRow
	for rows.Next() {
		var f failureRow
		if err := rows.Scan(&f.ID, &f.Username, &f.Stage, &f.Compensated, &f.Detail, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("監査レコードの読み取りに失敗: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
