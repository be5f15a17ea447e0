package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole は指定ロールを持たないリクエストを403で拒否するGinミドルウェアを返す。
// Authミドルウェアが検証したロール一覧を参照するため、Authより後に適用すること。
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, r := range GetRoles(c) {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "この操作に必要なロールがありません",
		})
	}
}
