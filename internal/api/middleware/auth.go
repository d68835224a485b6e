package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/pkg/jwt"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/response"
	"github.com/qs3c/fit_go_server/internal/pkg/session"
)

const (
	SessionIDKey    = "sessionID"
	SessionStateKey = "sessionState"
)

// Session 加载会话（可选）
// 凭证依次从 Authorization、cookie 读取，websocket 握手时还接受 ?token=
func Session(store *session.Store, cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := credential(c, cfg.CookieName)
		if raw == "" {
			c.Next()
			return
		}

		claims, err := jwt.ParseToken(raw, cfg.Secret)
		if err != nil {
			c.Next()
			return
		}

		state, err := store.Get(c.Request.Context(), claims.SessionID)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				logger.Log.WithError(err).Warn("failed to load session")
			}
			c.Next()
			return
		}

		c.Set(SessionIDKey, claims.SessionID)
		c.Set(SessionStateKey, state)
		c.Next()
	}
}

func credential(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if tok := strings.TrimPrefix(header, "Bearer "); tok != header {
			return strings.TrimSpace(tok)
		}
	}
	if cookieName != "" {
		if tok, err := c.Cookie(cookieName); err == nil && tok != "" {
			return tok
		}
	}
	if websocket.IsWebSocketUpgrade(c.Request) {
		return c.Query("token")
	}
	return ""
}

// RequireSession 要求已登录，引导阶段也放行
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		state, ok := GetState(c)
		if !ok || !state.HasPrincipal() {
			response.Abort(c, response.CodeUnauthenticated, "")
			return
		}
		c.Next()
	}
}

// RequireAuthenticated 要求已完成引导
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		state, ok := GetState(c)
		if !ok || !state.HasPrincipal() {
			response.Abort(c, response.CodeUnauthenticated, "")
			return
		}
		if !state.Authenticated() {
			response.Abort(c, response.CodeOnboardingRequired, "")
			return
		}
		c.Next()
	}
}

// GetState 从上下文获取会话
func GetState(c *gin.Context) (*session.State, bool) {
	v, exists := c.Get(SessionStateKey)
	if !exists {
		return nil, false
	}
	state, ok := v.(*session.State)
	return state, ok && state != nil
}

// GetSessionID 从上下文获取会话 ID
func GetSessionID(c *gin.Context) (string, bool) {
	v, exists := c.Get(SessionIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	state, ok := GetState(c)
	if !ok || state.Principal == nil {
		return 0, false
	}
	return state.Principal.UserID, true
}
