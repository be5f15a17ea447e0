package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestCORS はCORSミドルウェアを検証する。
func TestCORS(t *testing.T) {
	t.Parallel()

	// setupCORSRouter はCORSミドルウェア付きのルーターを構築する。
	setupCORSRouter := func(t *testing.T, origins []string) *gin.Engine {
		t.Helper()

		router := gin.New()
		router.Use(CORS(origins))
		router.GET("/api", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		return router
	}

	t.Run("許可されたオリジンにCORSヘッダーが付与されること", func(t *testing.T) {
		t.Parallel()

		router := setupCORSRouter(t, []string{"http://localhost:3000"})
		req := httptest.NewRequest(http.MethodGet, "/api", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
		}
	})

	t.Run("許可されていないオリジンにはCORSヘッダーが付与されないこと", func(t *testing.T) {
		t.Parallel()

		router := setupCORSRouter(t, []string{"http://localhost:3000"})
		req := httptest.NewRequest(http.MethodGet, "/api", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("プリフライトリクエストに204を返すこと", func(t *testing.T) {
		t.Parallel()

		router := setupCORSRouter(t, []string{"http://localhost:3000"})
		req := httptest.NewRequest(http.MethodOptions, "/api", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNoContent)
		}
		if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
			t.Error("Access-Control-Allow-Methodsが設定されていない")
		}
	})
}
