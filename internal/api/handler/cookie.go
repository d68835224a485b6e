package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/fit_go_server/config"
)

// setSessionCookie 写入 HttpOnly 会话 cookie，有效期与凭证一致
func setSessionCookie(c *gin.Context, cfg config.SessionConfig, token string) {
	if cfg.CookieName == "" || token == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, token, cfg.TTLHours*3600, "/", "", cfg.Secure, true)
}

func clearSessionCookie(c *gin.Context, cfg config.SessionConfig) {
	if cfg.CookieName == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.Secure, true)
}
