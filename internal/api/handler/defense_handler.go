package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Manchinn/CSLogbook-sub002/internal/dto"
	"github.com/Manchinn/CSLogbook-sub002/internal/service"
	pkgerrors "github.com/Manchinn/CSLogbook-sub002/pkg/errors"
	"github.com/Manchinn/CSLogbook-sub002/pkg/response"
)

// DefenseHandler 答辩申请模块 HTTP 处理器
type DefenseHandler struct {
	defenseSvc service.DefenseService
}

// NewDefenseHandler 创建 DefenseHandler
func NewDefenseHandler(defenseSvc service.DefenseService) *DefenseHandler {
	return &DefenseHandler{defenseSvc: defenseSvc}
}

// Submit 提交答辩申请
// POST /api/v1/projects/:id/defense-requests
func (h *DefenseHandler) Submit(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.defenseSvc.Submit(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}
	response.Created(c, result)
}

// Get 查询答辩申请
// GET /api/v1/defense-requests/:id
func (h *DefenseHandler) Get(c *gin.Context) {
	result, err := h.defenseSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}
	response.OK(c, result)
}

// Amend 修正答辩申请
// PUT /api/v1/defense-requests/:id
func (h *DefenseHandler) Amend(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.defenseSvc.Amend(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}
	response.OK(c, result)
}

// AdvisorDecision 导师审批
// POST /api/v1/defense-requests/:id/advisor-decision
func (h *DefenseHandler) AdvisorDecision(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AdvisorDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.defenseSvc.AdvisorDecision(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}
	response.OK(c, result)
}

// StaffVerify 系办核验
// POST /api/v1/defense-requests/:id/staff-verify
func (h *DefenseHandler) StaffVerify(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.StaffVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.defenseSvc.StaffVerify(c.Request.Context(), userID, role, c.Param("id"), &req)
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}
	response.OK(c, result)
}

// Schedule 排期答辩
// POST /api/v1/defense-requests/:id/schedule
func (h *DefenseHandler) Schedule(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.ScheduleDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.defenseSvc.Schedule(c.Request.Context(), userID, role, c.Param("id"), &req)
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}
	response.OK(c, result)
}

// Cancel 撤销申请
// POST /api/v1/defense-requests/:id/cancel
func (h *DefenseHandler) Cancel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	result, err := h.defenseSvc.Cancel(c.Request.Context(), userID, role, c.Param("id"))
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}
	response.OK(c, result)
}

// handleDefenseError 业务错误 → HTTP 响应映射
func (h *DefenseHandler) handleDefenseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDefenseNotFound):
		response.NotFound(c, 13001, "答辩申请不存在")
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFound(c, 12001, "项目不存在")
	case errors.Is(err, service.ErrDefenseForbidden):
		response.Forbidden(c, 13002, "没有权限操作该答辩申请")
	case errors.Is(err, service.ErrDefenseState):
		response.Conflict(c, 13003, "答辩申请当前状态不允许该操作")
	case errors.Is(err, service.ErrDefenseConflict):
		response.Conflict(c, 13004, "该类型已存在处理中的答辩申请")
	case errors.Is(err, service.ErrDefenseEditLocked):
		response.Conflict(c, 13005, "答辩申请已锁定，不能修改")
	case errors.Is(err, service.ErrReadinessNotMet):
		response.Conflict(c, 13006, "已批准的会议记录数未达到要求")
	case errors.Is(err, service.ErrScheduleInvalid):
		response.BadRequest(c, 13007, "排期时间无效")
	case errors.Is(err, service.ErrProjectState):
		response.Conflict(c, 12004, "项目当前状态不允许该操作")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13008, "申请已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
