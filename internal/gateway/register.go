package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/accounthub/internal/saga"
)

// handleRegister はユーザー登録Sagaを実行するハンドラを返す。
// クライアントが途中で切断しても補償が中断されないよう、
// Sagaはリクエストのキャンセルから切り離したコンテキストで実行する。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req saga.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(invalidRequestResponse())
			return
		}

		ctx := context.WithoutCancel(c.Request.Context())
		result, err := s.orchestrator.Register(ctx, req)
		if err != nil {
			log.Printf("[Gateway] 登録Saga失敗: %v", err)
		}

		c.JSON(assembleRegistration(result, err))
	}
}

// assembleRegistration はSagaの結果をHTTPステータスとレスポンスボディに変換する。
// 成功・入力不備・フェーズ失敗の3種を区別し、フェーズ失敗では
// 失敗フェーズと補償状態を運用者が判別できる形で返す。
func assembleRegistration(result *saga.Result, err error) (int, gin.H) {
	switch {
	case err == nil:
		return http.StatusCreated, gin.H{
			"auth": result.Auth,
			"user": result.User,
		}
	case errors.Is(err, saga.ErrInvalidRequest):
		return invalidRequestResponse()
	default:
		body := gin.H{
			"message": "registration failed",
			"detail":  err.Error(),
		}
		var stageErr *saga.StageError
		if errors.As(err, &stageErr) {
			body["stage"] = string(stageErr.Stage)
			body["compensated"] = stageErr.Compensated
		}
		return http.StatusInternalServerError, gin.H{"error": body}
	}
}

// invalidRequestResponse はcredentialsまたはprofileを欠くリクエストへの応答を返す。
func invalidRequestResponse() (int, gin.H) {
	return http.StatusBadRequest, gin.H{
		"error": gin.H{"message": saga.ErrInvalidRequest.Error()},
	}
}
