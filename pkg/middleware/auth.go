package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/accounthub/pkg/token"
)

// HeaderUserID は下流サービスへ検証済みユーザーの主体を伝播するHTTPヘッダーキー。
const HeaderUserID = "X-User-ID"

// HeaderUserRoles は下流サービスへ検証済みロール一覧（カンマ区切り）を伝播するHTTPヘッダーキー。
const HeaderUserRoles = "X-User-Roles"

// contextKeyUserID はGinコンテキストに主体を格納するキー。
const contextKeyUserID = "user_id"

// contextKeyRoles はGinコンテキストにロール一覧を格納するキー。
const contextKeyRoles = "roles"

// Auth はベアラートークンを検証する認証フィルタのGinミドルウェアを返す。
//
// publicPrefixesに前方一致するパスは認証不要として素通しし、
// リクエストヘッダーには一切手を加えない。それ以外のパスでは
// `Authorization: Bearer <token>` ヘッダーを必須とし、欠落・形式不正・
// 検証失敗はすべて空ボディの401で拒否する。検証エラーがフィルタの外へ
// 伝播することはない。
//
// 検証に成功した場合、X-User-IDとX-User-Rolesをリクエストに設定して
// 下流へ転送する。呼び出し元が同名ヘッダーを付けていても常に上書きする。
// 識別ヘッダーの信頼できる供給源はこのフィルタのみである。
func Auth(secret string, publicPrefixes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if authHeader == "" || !found {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := token.Validate(tokenString, secret)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Request.Header.Set(HeaderUserID, claims.Subject)
		c.Request.Header.Set(HeaderUserRoles, strings.Join(claims.Roles, ","))
		c.Set(contextKeyUserID, claims.Subject)
		c.Set(contextKeyRoles, claims.Roles)
		c.Next()
	}
}

// GetUserID はGinコンテキストから認証済みユーザーの主体を取得する。
// Authミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	v, _ := c.Get(contextKeyUserID)
	if id, ok := v.(string); ok {
		return id
	}
	return ""
}

// GetRoles はGinコンテキストから認証済みユーザーのロール一覧を取得する。
// Authミドルウェアが事前に適用されている必要がある。
func GetRoles(c *gin.Context) []string {
	v, _ := c.Get(contextKeyRoles)
	if roles, ok := v.([]string); ok {
		return roles
	}
	return nil
}
