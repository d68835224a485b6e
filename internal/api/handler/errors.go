package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/response"
	"github.com/qs3c/fit_go_server/internal/service"
)

// respondError 把 service 错误转换为统一响应
// 未识别的错误只记录日志，客户端得到通用消息
func respondError(c *gin.Context, err error) {
	if ve, ok := service.AsValidationError(err); ok {
		response.ValidationError(c, ve.Field, ve.Message)
		return
	}

	switch {
	case errors.Is(err, service.ErrConflict):
		response.ConflictError(c, err.Error())
	case errors.Is(err, service.ErrInvalidToken):
		response.TokenError(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.CredentialsError(c, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		response.AuthError(c, err.Error())
	case errors.Is(err, service.ErrUsernameChangeTooSoon):
		response.ValidationError(c, "username", err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrPlanNotFound):
		response.NotFoundError(c, "No workout plan yet")
	case errors.Is(err, service.ErrGeneration):
		response.GenerationError(c, "")
	default:
		logger.Log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		response.ServerError(c, "")
	}
}

// bindJSON 解析请求体，失败时已写入响应
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ValidationError(c, "", "Invalid request body")
		return false
	}
	return true
}
