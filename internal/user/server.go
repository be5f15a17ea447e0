package user

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nao1215/accounthub/pkg/middleware"
)

// linkField はプロフィールにリンクされる認証識別子のフィールド名。
// gatewayの登録Sagaと合意済みの固定値。
const linkField = "authIdentifier"

// Server はユーザープロフィールサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はユーザーテーブルへのクエリ実行オブジェクト。
	queries *queries
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewServer は新しいユーザープロフィールサーバーを生成する。
// SQLiteデータベースの初期化とスキーマ作成を行う。
func NewServer(port string) (*Server, error) {
	dbPath := getEnvOr("USER_DB_PATH", "/data/user.db")
	sqlDB, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:  router,
		port:    port,
		queries: newQueries(sqlDB),
		db:      sqlDB,
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
	users := s.router.Group("/users")
	{
		// プロフィールの作成（Sagaフェーズ2）
		users.POST("", s.handleCreate())
		// プロフィールの参照
		users.GET("/:id", s.handleGet())
		// プロフィールの削除
		users.DELETE("/:id", s.handleDelete())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "user"})
	})
}

// toUserResponse はDB行をJSONレスポンスに変換する。
// プロフィールの任意フィールドを展開し、idとauthIdentifierを合成する。
func toUserResponse(u User) (map[string]any, error) {
	response := map[string]any{}
	if err := json.Unmarshal([]byte(u.Profile), &response); err != nil {
		return nil, fmt.Errorf("プロフィールJSONの解析に失敗: %w", err)
	}
	response["id"] = u.ID
	response[linkField] = u.AuthIdentifier
	return response, nil
}

// handleCreate はプロフィールを作成するハンドラを返す。
// リクエストボディは任意フィールドのJSONで、authIdentifierのリンクが必須。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		authIdentifier, _ := body[linkField].(string)
		if authIdentifier == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%sが必要です", linkField)})
			return
		}
		delete(body, linkField)

		profileJSON, err := json.Marshal(body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "プロフィールのシリアライズに失敗しました"})
			log.Printf("プロフィールシリアライズエラー: %v", err)
			return
		}

		userID := uuid.New().String()
		if err := s.queries.createUser(c.Request.Context(), createUserParams{
			ID:             userID,
			AuthIdentifier: authIdentifier,
			Profile:        string(profileJSON),
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの作成に失敗しました"})
			log.Printf("ユーザー作成エラー: %v", err)
			return
		}

		response := body
		response["id"] = userID
		response[linkField] = authIdentifier
		c.JSON(http.StatusCreated, response)
	}
}

// handleGet はIDでプロフィールを返すハンドラを返す。
func (s *Server) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.queries.getUserByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの取得に失敗しました"})
			log.Printf("ユーザー取得エラー: %v", err)
			return
		}

		response, err := toUserResponse(u)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "プロフィールの読み取りに失敗しました"})
			log.Printf("プロフィール解析エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, response)
	}
}

// handleDelete はIDでプロフィールを削除するハンドラを返す。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		affected, err := s.queries.deleteUserByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの削除に失敗しました"})
			log.Printf("ユーザー削除エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
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
