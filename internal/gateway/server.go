package gateway

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/nao1215/accounthub/internal/saga"
	"github.com/nao1215/accounthub/pkg/httpclient"
	"github.com/nao1215/accounthub/pkg/middleware"
)

// publicPaths は認証フィルタを適用しないパスの接頭辞一覧。
// ここに含まれないパスは全て有効なBearerトークンを要求する。
var publicPaths = []string{
	"/auth/login",
	"/auth/register",
	"/auth/refresh",
	"/auth/validate",
	"/register",
	"/health",
}

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// db はSQLiteデータベース接続（監査テーブル用）。
	db *sql.DB
	// audit は登録失敗の監査ストア。
	audit *auditStore
	// orchestrator はユーザー登録のSagaオーケストレータ。
	orchestrator *saga.Orchestrator
	// jwtSecret はJWT署名用の秘密鍵。
	jwtSecret string
	// serviceURLs は内部サービスのURL。
	serviceURLs serviceURLConfig
	// proxyClient はプロキシ転送に使用するHTTPクライアント。
	proxyClient *http.Client
}

// serviceURLConfig は内部サービスのURL設定。
type serviceURLConfig struct {
	Auth string
	User string
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(port string) (*Server, error) {
	dbPath := getEnvOr("GATEWAY_DB_PATH", "/data/gateway.db")
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	jwtSecret := getEnvOr("JWT_SECRET", "dev-secret-key")

	urls := serviceURLConfig{
		Auth: getEnvOr("AUTH_URL", "http://localhost:8081"),
		User: getEnvOr("USER_URL", "http://localhost:8082"),
	}

	frontendURL := getEnvOr("FRONTEND_URL", "http://localhost:3000")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{frontendURL}))
	router.Use(middleware.Auth(jwtSecret, publicPaths))

	audit := newAuditStore(sqlDB)
	s := &Server{
		router:       router,
		port:         port,
		db:           sqlDB,
		audit:        audit,
		orchestrator: saga.NewOrchestrator(httpclient.New(urls.Auth), httpclient.New(urls.User), audit),
		jwtSecret:    jwtSecret,
		serviceURLs:  urls,
		proxyClient:  &http.Client{Timeout: 30 * time.Second},
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// ユーザー登録Saga（認証不要）
	s.router.POST("/register", s.handleRegister())

	// 認証系エンドポイント（authサービスへプロキシ、認証不要）
	auth := s.router.Group("/auth")
	{
		auth.POST("/login", s.handleProxy(s.serviceURLs.Auth, "/auth/login"))
		auth.POST("/register", s.handleProxy(s.serviceURLs.Auth, "/auth/register"))
		auth.POST("/refresh", s.handleProxy(s.serviceURLs.Auth, "/auth/refresh"))
		auth.POST("/validate", s.handleProxy(s.serviceURLs.Auth, "/auth/validate"))
	}

	// ユーザープロフィール参照（認証必須のプロキシ）
	s.router.GET("/users/:id", s.handleProxyWithParam(s.serviceURLs.User, "/users/", "id"))

	// 登録失敗の監査一覧（ADMINロール必須）
	api := s.router.Group("/api/v1")
	{
		api.GET("/registrations/failures", middleware.RequireRole("ADMIN"), s.handleListFailures())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})
}

// handleListFailures は補償未完了の登録失敗レコードを一覧するハンドラを返す。
func (s *Server) handleListFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		failures, err := s.audit.listUncompensated(c.Request.Context())
		if err != nil {
			log.Printf("[Gateway] 監査レコードの取得エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "監査レコードの取得に失敗しました"})
			return
		}
		if failures == nil {
			failures = []failureRow{}
		}
		c.JSON(http.StatusOK, gin.H{"failures": failures})
	}
}

// handleProxy は指定されたサービスにリクエストをプロキシするハンドラを返す。
func (s *Server) handleProxy(baseURL, path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxyURL := baseURL + path
		if c.Request.URL.RawQuery != "" {
			proxyURL += "?" + c.Request.URL.RawQuery
		}
		s.doProxy(c, c.Request.Method, proxyURL)
	}
}

// handleProxyWithParam はURLパラメータを含むプロキシハンドラを返す。
func (s *Server) handleProxyWithParam(baseURL, pathPrefix, paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxyURL := baseURL + pathPrefix + c.Param(paramName)
		if c.Request.URL.RawQuery != "" {
			proxyURL += "?" + c.Request.URL.RawQuery
		}
		s.doProxy(c, c.Request.Method, proxyURL)
	}
}

// doProxy はリクエストを内部サービスにプロキシする共通処理。
// 認証フィルタが付与したアイデンティティヘッダーを転送する。
func (s *Server) doProxy(c *gin.Context, method, url string) {
	req, err := http.NewRequestWithContext(c.Request.Context(), method, url, c.Request.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "プロキシリクエストの作成に失敗しました"})
		return
	}

	req.Header.Set("Content-Type", c.GetHeader("Content-Type"))
	if userID := c.GetHeader(middleware.HeaderUserID); userID != "" {
		req.Header.Set(middleware.HeaderUserID, userID)
	}
	if roles := c.GetHeader(middleware.HeaderUserRoles); roles != "" {
		req.Header.Set(middleware.HeaderUserRoles, roles)
	}

	resp, err := s.proxyClient.Do(req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "内部サービスとの通信に失敗しました"})
		log.Printf("[Gateway] プロキシエラー: url=%s, error=%v", url, err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "レスポンスの読み取りに失敗しました"})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, body)
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
