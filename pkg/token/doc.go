// Package token はベアラートークン（JWT）の発行と検証を提供する。
//
// 検証はネットワークやディスクへのI/Oを伴わない純粋な計算であり、
// 署名・有効期限・subjectクレーム・ロールクレームの妥当性を確認して
// 正規化済みのClaimsを返す。ロールクレームは単一文字列と文字列配列の
// 両方の形式を受け付け、順序を保った文字列リストに正規化する。
package token
