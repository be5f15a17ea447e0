package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// testSecret はテスト用のJWTシークレット。
const testSecret = "test-secret-key-for-unit-tests"

// signClaims は任意のクレームでHS256トークンを生成するヘルパー関数。
func signClaims(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("トークンの署名に失敗: %v", err)
	}
	return signed
}

// TestGenerate はGenerate関数を検証する。
func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("正常にトークンを生成して検証できること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := Generate(testSecret, "alice", []string{"USER"})
		if err != nil {
			t.Fatalf("Generate()でエラーが発生: %v", err)
		}
		if tokenStr == "" {
			t.Fatal("Generate()が空文字列を返した")
		}

		claims, err := Validate(tokenStr, testSecret)
		if err != nil {
			t.Fatalf("Validate()でエラーが発生: %v", err)
		}
		if claims.Subject != "alice" {
			t.Errorf("Subject = %q, want %q", claims.Subject, "alice")
		}
		if len(claims.Roles) != 1 || claims.Roles[0] != "USER" {
			t.Errorf("Roles = %v, want [USER]", claims.Roles)
		}
	})

	t.Run("発行者と有効期限が設定されていること", func(t *testing.T) {
		t.Parallel()

		before := time.Now()
		tokenStr, err := Generate(testSecret, "bob", []string{"USER"})
		if err != nil {
			t.Fatalf("Generate()でエラーが発生: %v", err)
		}

		parsed := &jwtClaims{}
		if _, err := jwt.ParseWithClaims(tokenStr, parsed, func(_ *jwt.Token) (any, error) {
			return []byte(testSecret), nil
		}); err != nil {
			t.Fatalf("トークンのパースに失敗: %v", err)
		}

		if parsed.Issuer != "accounthub-auth" {
			t.Errorf("Issuer = %q, want %q", parsed.Issuer, "accounthub-auth")
		}

		expectedExpiry := before.Add(24 * time.Hour)
		if parsed.ExpiresAt.Time.Before(expectedExpiry.Add(-1 * time.Minute)) {
			t.Errorf("ExpiresAt = %v, 期待する最小値: %v", parsed.ExpiresAt.Time, expectedExpiry.Add(-1*time.Minute))
		}
		if parsed.ExpiresAt.Time.After(expectedExpiry.Add(1 * time.Minute)) {
			t.Errorf("ExpiresAt = %v, 期待する最大値: %v", parsed.ExpiresAt.Time, expectedExpiry.Add(1*time.Minute))
		}
	})

	t.Run("複数ロールの順序が保持されること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := Generate(testSecret, "carol", []string{"ADMIN", "USER", "AUDITOR"})
		if err != nil {
			t.Fatalf("Generate()でエラーが発生: %v", err)
		}

		claims, err := Validate(tokenStr, testSecret)
		if err != nil {
			t.Fatalf("Validate()でエラーが発生: %v", err)
		}

		want := []string{"ADMIN", "USER", "AUDITOR"}
		if len(claims.Roles) != len(want) {
			t.Fatalf("Rolesの長さ = %d, want %d", len(claims.Roles), len(want))
		}
		for i, role := range want {
			if claims.Roles[i] != role {
				t.Errorf("Roles[%d] = %q, want %q", i, claims.Roles[i], role)
			}
		}
	})
}

// TestValidate はValidate関数を検証する。
func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("単数形のroleクレームを受け付けること", func(t *testing.T) {
		t.Parallel()

		tokenStr := signClaims(t, testSecret, jwtClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "legacy-user",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Role: "USER",
		})

		claims, err := Validate(tokenStr, testSecret)
		if err != nil {
			t.Fatalf("Validate()でエラーが発生: %v", err)
		}
		if len(claims.Roles) != 1 || claims.Roles[0] != "USER" {
			t.Errorf("Roles = %v, want [USER]", claims.Roles)
		}
	})

	t.Run("複数形が存在する場合は複数形を優先すること", func(t *testing.T) {
		t.Parallel()

		tokenStr := signClaims(t, testSecret, jwtClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "both-user",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Roles: roleList{"ADMIN", "USER"},
			Role:  "GUEST",
		})

		claims, err := Validate(tokenStr, testSecret)
		if err != nil {
			t.Fatalf("Validate()でエラーが発生: %v", err)
		}
		if len(claims.Roles) != 2 || claims.Roles[0] != "ADMIN" || claims.Roles[1] != "USER" {
			t.Errorf("Roles = %v, want [ADMIN USER]", claims.Roles)
		}
	})

	t.Run("ロールクレームが無い場合はErrInvalidTokenを返すこと", func(t *testing.T) {
		t.Parallel()

		tokenStr := signClaims(t, testSecret, jwt.RegisteredClaims{
			Subject:   "roleless",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		_, err := Validate(tokenStr, testSecret)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("subjectクレームが無い場合はErrInvalidTokenを返すこと", func(t *testing.T) {
		t.Parallel()

		tokenStr := signClaims(t, testSecret, jwtClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Roles: roleList{"USER"},
		})

		_, err := Validate(tokenStr, testSecret)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("期限切れトークンはErrInvalidTokenを返すこと", func(t *testing.T) {
		t.Parallel()

		tokenStr := signClaims(t, testSecret, jwtClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "expired-user",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-25 * time.Hour)),
			},
			Roles: roleList{"USER"},
		})

		_, err := Validate(tokenStr, testSecret)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("異なるシークレットで署名されたトークンはErrInvalidTokenを返すこと", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := Generate("different-secret", "mallory", []string{"USER"})
		if err != nil {
			t.Fatalf("Generate()でエラーが発生: %v", err)
		}

		_, err = Validate(tokenStr, testSecret)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("形式不正なトークンはErrInvalidTokenを返すこと", func(t *testing.T) {
		t.Parallel()

		_, err := Validate("not-a-jwt-token", testSecret)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})
}
