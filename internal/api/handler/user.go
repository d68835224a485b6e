package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/api/middleware"
	"github.com/qs3c/fit_go_server/internal/model/dto"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/response"
	"github.com/qs3c/fit_go_server/internal/pkg/ws"
	"github.com/qs3c/fit_go_server/internal/service"
)

type UserHandler struct {
	userService *service.UserService
	authService *service.AuthService
	hub         *ws.Hub
	cfg         *config.Config
}

func NewUserHandler(userService *service.UserService, authService *service.AuthService, hub *ws.Hub, cfg *config.Config) *UserHandler {
	return &UserHandler{
		userService: userService,
		authService: authService,
		hub:         hub,
		cfg:         cfg,
	}
}

// current 当前会话的用户 ID 和会话 ID
func current(c *gin.Context) (int64, string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return 0, "", false
	}
	sessionID, _ := middleware.GetSessionID(c)
	return userID, sessionID, true
}

// GetProfile 获取当前用户信息
// GET /api/v1/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, _, ok := current(c)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, profile)
}

// UpdateProfile 更新个人信息
// POST /api/v1/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, sessionID, ok := current(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.userService.UpdateProfile(c.Request.Context(), sessionID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Profile updated", profile)
}

// UpdateWorkoutSettings 更新训练设置
// POST /api/v1/user/workout-settings
func (h *UserHandler) UpdateWorkoutSettings(c *gin.Context) {
	userID, sessionID, ok := current(c)
	if !ok {
		return
	}

	var req dto.UpdateWorkoutSettingsRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.userService.UpdateWorkoutSettings(c.Request.Context(), sessionID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Workout settings updated", profile)
}

// ChangeUsername 修改用户名
// POST /api/v1/user/username
func (h *UserHandler) ChangeUsername(c *gin.Context) {
	userID, sessionID, ok := current(c)
	if !ok {
		return
	}

	var req dto.ChangeUsernameRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.userService.ChangeUsername(c.Request.Context(), sessionID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Username updated", profile)
}

// UploadAvatar 上传头像
// POST /api/v1/user/avatar
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, sessionID, ok := current(c)
	if !ok {
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		response.ValidationError(c, "avatar", "Please choose an image")
		return
	}

	f, err := file.Open()
	if err != nil {
		logger.Log.WithError(err).Error("failed to open uploaded avatar")
		response.ServerError(c, "")
		return
	}
	defer f.Close()

	resp, err := h.userService.UploadAvatar(c.Request.Context(), sessionID, userID, file.Filename, file.Size, f)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Avatar updated", resp)
}

// ChangePassword 修改密码
// POST /api/v1/user/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, _, ok := current(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.ValidationError(c, "old_password", "Current password is incorrect")
			return
		}
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Password changed", nil)
}

// DeleteAccount 注销账号
// POST /api/v1/user/delete
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	userID, _, ok := current(c)
	if !ok {
		return
	}

	if err := h.authService.DeleteAccount(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.DisconnectUser(userID)
	}
	clearSessionCookie(c, h.cfg.Session)
	response.SuccessWithMessage(c, "Account deleted", nil)
}
