package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/nao1215/accounthub/pkg/middleware"
	"github.com/nao1215/accounthub/pkg/token"
)

// Server は認証情報サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries は認証情報テーブルへのクエリ実行オブジェクト。
	queries *queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// jwtSecret はJWT署名用の秘密鍵。
	jwtSecret string
}

// NewServer は新しい認証情報サーバーを生成する。
// SQLiteデータベースの初期化とスキーマ作成を行う。
func NewServer(port string) (*Server, error) {
	dbPath := getEnvOr("AUTH_DB_PATH", "/data/auth.db")
	sqlDB, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	jwtSecret := getEnvOr("JWT_SECRET", "dev-secret-key")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:    router,
		port:      port,
		queries:   newQueries(sqlDB),
		db:        sqlDB,
		jwtSecret: jwtSecret,
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
	auth := s.router.Group("/auth")
	{
		// 認証情報の作成（Sagaフェーズ1）
		auth.POST("/register", s.handleRegister())
		// トークン発行
		auth.POST("/login", s.handleLogin())
		// トークン再発行
		auth.POST("/refresh", s.handleRefresh())
		// トークン検証
		auth.POST("/validate", s.handleValidate())
		// 認証情報の参照（識別子はユーザー名またはID）
		auth.GET("/:identifier", s.handleGet())
		// 認証情報の削除（Sagaの補償アクション）
		auth.DELETE("/:identifier", s.handleDelete())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "auth"})
	})
}

// credentialResponse は認証情報のJSONレスポンス構造。
// パスワードハッシュは含めない。
type credentialResponse struct {
	// ID は認証情報の一意識別子。
	ID string `json:"id"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Role はロール。
	Role string `json:"role"`
}

// toCredentialResponse はDB行をJSONレスポンスに変換する。
func toCredentialResponse(c Credential) credentialResponse {
	return credentialResponse{ID: c.ID, Username: c.Username, Role: c.Role}
}

// registerRequest は認証情報作成リクエストのJSON構造。
type registerRequest struct {
	// Username はユーザー名。
	Username string `json:"username" binding:"required"`
	// Password は平文パスワード。保存前にbcryptでハッシュ化する。
	Password string `json:"password" binding:"required"`
	// Role はロール。未指定の場合はUSER。
	Role string `json:"role"`
}

// handleRegister は認証情報を作成するハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if req.Role == "" {
			req.Role = "USER"
		}

		// ユーザー名の重複を確認する
		if _, err := s.queries.getCredentialByUsername(c.Request.Context(), req.Username); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "このユーザー名は既に使用されています"})
			return
		} else if !errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "認証情報の確認に失敗しました"})
			log.Printf("認証情報確認エラー: %v", err)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "パスワードのハッシュ化に失敗しました"})
			log.Printf("パスワードハッシュ化エラー: %v", err)
			return
		}

		credential := createCredentialParams{
			ID:           uuid.New().String(),
			Username:     req.Username,
			PasswordHash: string(hash),
			Role:         req.Role,
		}
		if err := s.queries.createCredential(c.Request.Context(), credential); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "認証情報の作成に失敗しました"})
			log.Printf("認証情報作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, credentialResponse{
			ID:       credential.ID,
			Username: credential.Username,
			Role:     credential.Role,
		})
	}
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	// Username はユーザー名。
	Username string `json:"username" binding:"required"`
	// Password は平文パスワード。
	Password string `json:"password" binding:"required"`
}

// handleLogin はパスワードを検証してJWTトークンを発行するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		credential, err := s.queries.getCredentialByUsername(c.Request.Context(), req.Username)
		if err != nil {
			// ユーザー名の存在有無は漏らさない
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザー名またはパスワードが不正です"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(credential.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザー名またはパスワードが不正です"})
			return
		}

		tokenStr, err := token.Generate(s.jwtSecret, credential.Username, []string{credential.Role})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークンの発行に失敗しました"})
			log.Printf("トークン発行エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": tokenStr})
	}
}

// tokenRequest はトークンを受け取るリクエストのJSON構造。
type tokenRequest struct {
	// Token は検証または再発行の対象トークン。
	Token string `json:"token" binding:"required"`
}

// handleRefresh は有効なトークンから新しいトークンを再発行するハンドラを返す。
func (s *Server) handleRefresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		claims, err := token.Validate(req.Token, s.jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "トークンが無効です"})
			return
		}

		tokenStr, err := token.Generate(s.jwtSecret, claims.Subject, claims.Roles)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークンの発行に失敗しました"})
			log.Printf("トークン再発行エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": tokenStr})
	}
}

// handleValidate はトークンを検証してクレームを返すハンドラを返す。
func (s *Server) handleValidate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		claims, err := token.Validate(req.Token, s.jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"valid":   true,
			"subject": claims.Subject,
			"roles":   claims.Roles,
		})
	}
}

// handleGet は識別子（ユーザー名またはID）で認証情報を返すハンドラを返す。
func (s *Server) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.Param("identifier")

		credential, err := s.queries.getCredentialByIdentifier(c.Request.Context(), identifier)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "認証情報が見つかりません"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "認証情報の取得に失敗しました"})
			log.Printf("認証情報取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toCredentialResponse(credential))
	}
}

// handleDelete は識別子（ユーザー名またはID）で認証情報を削除するハンドラを返す。
// 登録Sagaの補償アクションから呼び出される。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.Param("identifier")

		affected, err := s.queries.deleteCredentialByIdentifier(c.Request.Context(), identifier)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "認証情報の削除に失敗しました"})
			log.Printf("認証情報削除エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "認証情報が見つかりません"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
