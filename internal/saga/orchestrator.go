package saga

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"net/url"
	"strconv"

	"github.com/nao1215/accounthub/pkg/httpclient"
)

// LinkField はフェーズ2でプロフィールに合成する認証識別子のフィールド名。
// userサービスのスキーマと合意済みの固定値であり、リクエストごとに変えない。
const LinkField = "authIdentifier"

// defaultRole は認証情報にロール指定が無い場合に付与するロール。
const defaultRole = "USER"

// ErrInvalidRequest はcredentialsまたはprofileを欠くリクエストを表すエラー。
// クライアント入力の不備であり、バックエンド呼び出しは一切発生しない。
var ErrInvalidRequest = errors.New("credentials and profile required")

// errNoIdentifier はフェーズ1の成功後に識別子を取得できなかったことを表すエラー。
// 削除対象を特定できないため補償はスキップされる。
var errNoIdentifier = errors.New("no auth identifier captured; compensation skipped")

// Stage はSagaのどのフェーズで失敗したかを表す。
type Stage string

const (
	// StageAuth はフェーズ1（認証情報の作成）での失敗。
	StageAuth Stage = "auth"
	// StageUser はフェーズ2（プロフィールの作成）での失敗。
	StageUser Stage = "user"
)

// Request は登録Sagaへの入力。credentialsとprofileの両方が必須。
type Request struct {
	// Credentials はauthサービスに渡す認証情報（username・password・任意のrole）。
	Credentials map[string]any `json:"credentials"`
	// Profile はuserサービスに渡すプロフィール（任意のフィールド構成）。
	Profile map[string]any `json:"profile"`
}

// Result は登録Sagaの成功結果。
// 両サービスに作成されたリソースの表現をそのまま保持する。
type Result struct {
	// Auth はauthサービスが返した認証リソースの表現。
	Auth map[string]any
	// User はuserサービスが返したユーザーリソースの表現（認証識別子を含む）。
	User map[string]any
}

// StageError は登録Sagaの失敗結果。
// 失敗したフェーズと補償の成否を保持し、運用者がauthフェーズ失敗・
// userフェーズ失敗・補償失敗を区別できるようにする。
type StageError struct {
	// Stage は失敗したフェーズ。
	Stage Stage
	// Compensated は作成済みリソースの取り消しが完了しているかどうか。
	// falseの場合は孤児となった認証情報が残っており、手動での対応が必要。
	Compensated bool
	// Err は元の失敗原因。
	Err error
	// CompensationErr は補償アクション自体の失敗原因（補償が失敗した場合のみ）。
	CompensationErr error
}

// Error はフェーズと補償状態を識別できる失敗内容を返す。
// 生の認証情報（パスワード等）は含めない。
func (e *StageError) Error() string {
	switch {
	case e.Stage == StageAuth:
		return fmt.Sprintf("auth stage failed: %v", e.Err)
	case e.CompensationErr != nil:
		return fmt.Sprintf("user stage failed: %v (compensation failed: %v)", e.Err, e.CompensationErr)
	default:
		return fmt.Sprintf("user stage failed: %v (auth record rolled back)", e.Err)
	}
}

// Unwrap は元の失敗原因を返す。
func (e *StageError) Unwrap() error { return e.Err }

// FailureRecord は監査用に記録するSaga失敗の内容。
type FailureRecord struct {
	// Username は登録しようとしていたユーザー名。
	Username string
	// Stage は失敗したフェーズ。
	Stage Stage
	// Compensated は補償が完了しているかどうか。
	Compensated bool
	// Detail は失敗内容の説明。
	Detail string
}

// AuditRecorder はSagaの失敗を永続化する監査レコーダー。
// 特にCompensated=falseのレコードは孤児リソースの手動復旧に使用される。
type AuditRecorder interface {
	// RecordFailure は失敗レコードを1件記録する。
	RecordFailure(ctx context.Context, record FailureRecord) error
}

// Orchestrator はアカウント登録Sagaを実行するオーケストレータ。
// リクエスト間で共有する可変状態を持たないため、並行呼び出しに安全。
type Orchestrator struct {
	// authClient はauthサービスへのHTTPクライアント。
	authClient *httpclient.Client
	// userClient はuserサービスへのHTTPクライアント。
	userClient *httpclient.Client
	// audit はSaga失敗の監査レコーダー。nilの場合は記録しない。
	audit AuditRecorder
}

// NewOrchestrator は新しい登録Sagaオーケストレータを生成する。
func NewOrchestrator(authClient, userClient *httpclient.Client, audit AuditRecorder) *Orchestrator {
	return &Orchestrator{
		authClient: authClient,
		userClient: userClient,
		audit:      audit,
	}
}

// Register は2フェーズの登録Sagaを実行する。
//
// 成功時は両サービスに作成されたリソースを返す。失敗時は*StageError
// （入力不備の場合はErrInvalidRequest）を返す。バックエンド呼び出しの
// 失敗はすべてここで型付きの結果に変換され、生の通信エラーが
// 呼び出し側に漏れることはない。
func (o *Orchestrator) Register(ctx context.Context, req Request) (*Result, error) {
	if req.Credentials == nil || req.Profile == nil {
		return nil, ErrInvalidRequest
	}
	username, _ := req.Credentials["username"].(string)

	// フェーズ1: 認証情報を作成する
	credentials := make(map[string]any, len(req.Credentials)+1)
	maps.Copy(credentials, req.Credentials)
	if _, ok := credentials["role"]; !ok {
		credentials["role"] = defaultRole
	}

	var authResp map[string]any
	if err := o.authClient.PostJSON(ctx, "/auth/register", credentials, &authResp); err != nil {
		// まだ何も作成していないため、取り消すものがない
		log.Printf("[Saga] 認証情報の作成に失敗: username=%s, error=%v", username, err)
		return nil, o.fail(ctx, username, &StageError{Stage: StageAuth, Compensated: true, Err: err})
	}

	identifier := captureIdentifier(authResp)
	log.Printf("[Saga] 認証情報を作成しました: identifier=%s", identifier)

	// フェーズ2: 認証識別子をリンクしてプロフィールを作成する。
	// リンクと補償の正しさはフェーズ1の完了に依存するため、
	// フェーズ1の結果を観測してからのみ開始する。
	profile := make(map[string]any, len(req.Profile)+1)
	maps.Copy(profile, req.Profile)
	profile[LinkField] = identifier

	var userResp map[string]any
	if err := o.userClient.PostJSON(ctx, "/users", profile, &userResp); err != nil {
		log.Printf("[Saga] プロフィールの作成に失敗: identifier=%s, error=%v", identifier, err)
		return nil, o.compensate(ctx, username, identifier, err)
	}

	log.Printf("[Saga] 登録Sagaが完了しました: identifier=%s", identifier)
	return &Result{Auth: authResp, User: userResp}, nil
}

// compensate はフェーズ2の失敗後に作成済み認証情報の削除を試みる。
func (o *Orchestrator) compensate(ctx context.Context, username, identifier string, userErr error) error {
	if identifier == "" {
		// フェーズ1が成功したのに識別子が無いのは想定外のケース。
		// 削除対象を特定できないため補償せず、区別可能な失敗として報告する。
		return o.fail(ctx, username, &StageError{
			Stage:           StageUser,
			Compensated:     false,
			Err:             userErr,
			CompensationErr: errNoIdentifier,
		})
	}

	log.Printf("[Saga] 補償アクションを開始します: identifier=%s", identifier)
	if cerr := o.authClient.DeleteJSON(ctx, "/auth/"+url.PathEscape(identifier), nil); cerr != nil {
		// 補償にも失敗。孤児となった認証情報が残っているため、
		// 通常の失敗より深刻な状態として運用者への引き継ぎが必要。
		log.Printf("[Saga] 補償アクションに失敗しました（要手動対応）: identifier=%s, error=%v", identifier, cerr)
		return o.fail(ctx, username, &StageError{
			Stage:           StageUser,
			Compensated:     false,
			Err:             userErr,
			CompensationErr: cerr,
		})
	}

	log.Printf("[Saga] 補償アクションが完了しました: identifier=%s", identifier)
	return o.fail(ctx, username, &StageError{Stage: StageUser, Compensated: true, Err: userErr})
}

// fail はSagaの失敗を監査レコーダーに記録してそのまま返す。
// 記録自体の失敗はログに残すのみで、Sagaの結果には影響させない。
func (o *Orchestrator) fail(ctx context.Context, username string, e *StageError) error {
	if o.audit != nil {
		record := FailureRecord{
			Username:    username,
			Stage:       e.Stage,
			Compensated: e.Compensated,
			Detail:      e.Error(),
		}
		if err := o.audit.RecordFailure(ctx, record); err != nil {
			log.Printf("[Saga] 監査レコードの記録に失敗: %v", err)
		}
	}
	return e
}

// captureIdentifier はauthサービスのレスポンスからリンクと補償に使う識別子を取り出す。
// usernameを優先し、無ければidにフォールバックする。idはJSON数値の場合もある。
func captureIdentifier(resp map[string]any) string {
	if username, ok := resp["username"].(string); ok && username != "" {
		return username
	}
	switch id := resp["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}
