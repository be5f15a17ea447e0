// Package saga はアカウント登録の2フェーズSagaオーケストレータを提供する。
//
// 登録は独立したauthサービスとuserサービスの両方にレコードを作成する
// 必要があるが、サービスをまたぐ単一トランザクションは存在しない。
// そこでフェーズ1（認証情報の作成）→フェーズ2（認証識別子をリンクした
// プロフィールの作成）を順に実行し、フェーズ2が失敗した場合は作成済みの
// 認証情報を削除する補償アクションで原子性を近似する。
//
// Sagaの進行状態は永続化しない。オーケストレータ呼び出し全体の
// リトライは扱わないため、部分成功後の再呼び出しはリソースの重複を
// 生み得る（既知の非対応事項として監査レコードで追跡する）。
package saga
