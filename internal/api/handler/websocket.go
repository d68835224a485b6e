package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qs3c/fit_go_server/internal/api/middleware"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/pubsub"
	"github.com/qs3c/fit_go_server/internal/pkg/response"
	"github.com/qs3c/fit_go_server/internal/pkg/ws"
)

const maxMessageSize = 64 << 10

// newUpgrader 只接受 CORS 白名单中的 Origin，没有 Origin 的非浏览器客户端放行
func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	anyOrigin := false
	for _, o := range allowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || anyOrigin {
				return true
			}
			if allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader *websocket.Upgrader
}

func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		upgrader: newUpgrader(allowedOrigins),
	}
}

// Handle 训练计划进度推送
// GET /api/v1/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to upgrade websocket connection")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := ws.NewClient(userID, conn)
	h.hub.Register(client)

	// 只读不处理，用于检测断开
	go func() {
		defer func() {
			h.hub.Unregister(client)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Forward 把 worker 发布的进度转发给用户的在线连接
func (h *WebSocketHandler) Forward(msg *pubsub.ProgressMessage) {
	if err := h.hub.SendToUser(msg.UserID, &ws.Message{Type: msg.Type, Data: msg}); err != nil {
		logger.Log.WithError(err).WithField("job_id", msg.JobID).Warn("failed to forward plan progress")
	}
}
