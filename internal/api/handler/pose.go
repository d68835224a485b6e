package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qs3c/fit_go_server/internal/pkg/logger"
	"github.com/qs3c/fit_go_server/internal/pkg/pose"
)

// poseFrame 客户端发送的一帧关键点
type poseFrame struct {
	Exercise  string          `json:"exercise"`
	Keypoints []pose.Keypoint `json:"keypoints"`
}

type poseReply struct {
	Type   string       `json:"type"`
	Result *pose.Result `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type PoseHandler struct {
	upgrader *websocket.Upgrader
}

func NewPoseHandler(allowedOrigins []string) *PoseHandler {
	return &PoseHandler{upgrader: newUpgrader(allowedOrigins)}
}

// Handle 实时动作分析，每收到一帧返回一次结果
// GET /api/v1/ws/pose
func (h *PoseHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to upgrade pose connection")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.WithError(err).Debug("pose connection closed")
			}
			return
		}

		var frame poseFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			if err := conn.WriteJSON(poseReply{Type: "error", Error: "invalid frame"}); err != nil {
				return
			}
			continue
		}

		result, err := pose.Analyze(frame.Exercise, frame.Keypoints)
		reply := poseReply{Type: "pose_result"}
		if err != nil {
			reply.Type = "error"
			reply.Error = err.Error()
		} else {
			reply.Result = &result
		}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}
