package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/api/middleware"
	"github.com/qs3c/fit_go_server/internal/model/dto"
	"github.com/qs3c/fit_go_server/internal/pkg/response"
	"github.com/qs3c/fit_go_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Registration successful, please check your email to verify your account", resp)
}

// ResendVerification 重发验证邮件
// POST /api/v1/auth/resend-verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req dto.ResendVerificationRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ResendVerification(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Verification email sent", nil)
}

// VerifyEmail 邮件中的验证链接
// GET /api/v1/auth/verify-email?token=xxx
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	resp, err := h.authService.VerifyEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	setSessionCookie(c, h.cfg.Session, resp.Token)
	if h.cfg.Server.OnboardingURL != "" {
		c.Redirect(http.StatusFound, h.cfg.Server.OnboardingURL)
		return
	}

	response.SuccessWithMessage(c, "Email verified", resp)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		// 不区分邮箱不存在和密码错误
		if errors.Is(err, service.ErrUserNotFound) {
			err = service.ErrInvalidCredentials
		}
		respondError(c, err)
		return
	}

	setSessionCookie(c, h.cfg.Session, resp.Token)
	response.SuccessWithMessage(c, "Login successful", resp)
}

// Logout 退出登录
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), sessionID); err != nil {
		respondError(c, err)
		return
	}

	clearSessionCookie(c, h.cfg.Session)
	response.SuccessWithMessage(c, "Logged out", nil)
}

// ForgetPassword 发送密码重置邮件
// POST /api/v1/auth/forget-password
func (h *AuthHandler) ForgetPassword(c *gin.Context) {
	var req dto.ForgetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ForgetPassword(c.Request.Context(), &req); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.ValidationError(c, "email", "No account found with this email")
			return
		}
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "If the email is registered, a reset link has been sent", nil)
}

// ResetPassword 使用邮件中的 token 重置密码，token 可放在 query 或请求体
// POST /api/v1/auth/reset-password?token=xxx
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if tok := c.Query("token"); tok != "" {
		req.Token = tok
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Password has been reset, please log in again", nil)
}

// CompleteOnboarding 填写补充信息
// POST /api/v1/onboarding
func (h *AuthHandler) CompleteOnboarding(c *gin.Context) {
	sessionID, _ := middleware.GetSessionID(c)
	state, ok := middleware.GetState(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.OnboardingRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.CompleteOnboarding(c.Request.Context(), sessionID, state.Principal, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Profile completed", resp)
}
