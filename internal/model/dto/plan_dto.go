package dto

import "github.com/qs3c/fit_go_server/internal/model"

// GeneratePlanRequest 生成训练计划，日期为空时使用默认窗口
type GeneratePlanRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// 生成状态
const (
	PlanStatusQueued    = "queued"
	PlanStatusCompleted = "completed"
)

// GeneratePlanResponse 生成结果；排队时 Plan 为空
type GeneratePlanResponse struct {
	Status string    `json:"status"`
	JobID  string    `json:"job_id,omitempty"`
	Plan   *PlanInfo `json:"plan,omitempty"`
}

// PlanInfo 训练计划
type PlanInfo struct {
	UserID    int64               `json:"user_id"`
	StartDate string              `json:"start_date"`
	EndDate   string              `json:"end_date"`
	Items     []model.WorkoutItem `json:"items"`
	UpdatedAt string              `json:"updated_at"`
}
