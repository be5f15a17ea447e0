package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/accounthub/pkg/token"
)

// TestRequireRole はRequireRoleミドルウェアを検証する。
func TestRequireRole(t *testing.T) {
	t.Parallel()

	// setupRoleRouter は認証フィルタとロールガード付きのルーターを構築する。
	setupRoleRouter := func(t *testing.T, requiredRole string) *gin.Engine {
		t.Helper()

		router := gin.New()
		router.Use(Auth(testSecret, nil))
		router.GET("/admin/audit", RequireRole(requiredRole), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		return router
	}

	t.Run("必要なロールを持つ場合は通過すること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := token.Generate(testSecret, "operator", []string{"USER", "ADMIN"})
		if err != nil {
			t.Fatalf("Generate()でエラーが発生: %v", err)
		}

		router := setupRoleRouter(t, "ADMIN")
		req := httptest.NewRequest(http.MethodGet, "/admin/audit", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("必要なロールを持たない場合は403を返すこと", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := token.Generate(testSecret, "alice", []string{"USER"})
		if err != nil {
			t.Fatalf("Generate()でエラーが発生: %v", err)
		}

		router := setupRoleRouter(t, "ADMIN")
		req := httptest.NewRequest(http.MethodGet, "/admin/audit", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("未認証の場合はロールガードより先に401になること", func(t *testing.T) {
		t.Parallel()

		router := setupRoleRouter(t, "ADMIN")
		req := httptest.NewRequest(http.MethodGet, "/admin/audit", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}
