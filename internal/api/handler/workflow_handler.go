package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Manchinn/CSLogbook-sub002/internal/service"
	"github.com/Manchinn/CSLogbook-sub002/pkg/response"
)

// WorkflowHandler 工作流活动模块 HTTP 处理器
type WorkflowHandler struct {
	workflowSvc service.WorkflowService
}

// NewWorkflowHandler 创建 WorkflowHandler
func NewWorkflowHandler(workflowSvc service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowSvc: workflowSvc}
}

// GetMyActivities 查询当前学生的工作流进度
// GET /api/v1/workflows/me
func (h *WorkflowHandler) GetMyActivities(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.workflowSvc.GetStudentActivities(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// GetStudentActivities 按学生 ID 查询工作流进度（教师与系办）
// GET /api/v1/students/:id/workflows
func (h *WorkflowHandler) GetStudentActivities(c *gin.Context) {
	result, err := h.workflowSvc.GetStudentActivities(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}
