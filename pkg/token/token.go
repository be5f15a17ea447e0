package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はトークンの検証に失敗したことを表すエラー。
// 署名不正・形式不正・期限切れ・必須クレームの欠落はすべてこのエラーに分類される。
var ErrInvalidToken = errors.New("トークンが無効です")

// issuer は発行するJWTのissクレーム値。
const issuer = "accounthub-auth"

// expiry は発行するJWTの有効期間。
const expiry = 24 * time.Hour

// Claims は検証済みトークンから取り出した正規化済みのクレーム。
// 一度生成したら変更しない。
type Claims struct {
	// Subject はトークンの主体（ユーザー名）。
	Subject string
	// Roles は主体に付与されたロールの順序付きリスト。
	// トークン内の出現順を保持する。カンマ区切りでヘッダー転送できる。
	Roles []string
}

// roleList はロールクレームのデコード用の型。
// JSON上の単一文字列と文字列配列の両方を受け付ける。
type roleList []string

// UnmarshalJSON は文字列配列または単一文字列をロールのリストに変換する。
func (r *roleList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = []string{single}
		return nil
	}

	return fmt.Errorf("ロールクレームの形式が不正です: %s", string(data))
}

// jwtClaims はJWTペイロードの構造。
// ロールは複数形（roles）と単数形（role）のどちらのクレームでも受け付ける。
type jwtClaims struct {
	jwt.RegisteredClaims
	// Roles は複数形のロールクレーム。
	Roles roleList `json:"roles,omitempty"`
	// Role は単数形のロールクレーム。旧形式のトークンとの互換用。
	Role string `json:"role,omitempty"`
}

// Generate は主体とロールからHS256署名のJWTトークンを生成する。
// authサービスがログイン・リフレッシュ時に呼び出す。
func Generate(secret, subject string, roles []string) (string, error) {
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
		Roles: roles,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Validate はトークン文字列を検証してClaimsを返す。
// 署名不正・形式不正・期限切れ・subject欠落・ロール欠落のいずれも
// ErrInvalidTokenとして報告する。ロールを持たない匿名の主体は許可しない。
func Validate(tokenString, secret string) (*Claims, error) {
	parsed := &jwtClaims{}
	t, err := jwt.ParseWithClaims(tokenString, parsed, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !t.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if parsed.Subject == "" {
		return nil, fmt.Errorf("%w: subjectクレームがありません", ErrInvalidToken)
	}

	roles := []string(parsed.Roles)
	if len(roles) == 0 && parsed.Role != "" {
		roles = []string{parsed.Role}
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: ロールクレームがありません", ErrInvalidToken)
	}

	return &Claims{Subject: parsed.Subject, Roles: roles}, nil
}
