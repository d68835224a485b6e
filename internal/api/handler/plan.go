package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/fit_go_server/internal/model/dto"
	"github.com/qs3c/fit_go_server/internal/pkg/response"
	"github.com/qs3c/fit_go_server/internal/service"
)

type PlanHandler struct {
	planService *service.PlanService
}

func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// Generate 生成训练计划，请求体可为空
// POST /api/v1/plans
func (h *PlanHandler) Generate(c *gin.Context) {
	userID, _, ok := current(c)
	if !ok {
		return
	}

	var req dto.GeneratePlanRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	resp, err := h.planService.RequestPlan(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if resp.Status == dto.PlanStatusQueued {
		response.SuccessWithMessage(c, "Your plan is being generated", resp)
		return
	}
	response.Success(c, resp)
}

// Get 获取当前训练计划
// GET /api/v1/plans
func (h *PlanHandler) Get(c *gin.Context) {
	userID, _, ok := current(c)
	if !ok {
		return
	}

	plan, err := h.planService.GetPlan(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, plan)
}
