package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Manchinn/CSLogbook-sub002/internal/dto"
	"github.com/Manchinn/CSLogbook-sub002/internal/service"
	"github.com/Manchinn/CSLogbook-sub002/pkg/response"
)

// MeetingHandler 指导会议模块 HTTP 处理器
type MeetingHandler struct {
	meetingSvc service.MeetingService
}

// NewMeetingHandler 创建 MeetingHandler
func NewMeetingHandler(meetingSvc service.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetingSvc: meetingSvc}
}

// CreateMeeting 创建指导会议
// POST /api/v1/meetings
func (h *MeetingHandler) CreateMeeting(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.meetingSvc.CreateMeeting(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleMeetingError(c, err)
		return
	}
	response.Created(c, result)
}

// GetMeeting 查询会议详情
// GET /api/v1/meetings/:id
func (h *MeetingHandler) GetMeeting(c *gin.Context) {
	result, err := h.meetingSvc.GetMeeting(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleMeetingError(c, err)
		return
	}
	response.OK(c, result)
}

// ListByProject 按项目列出会议
// GET /api/v1/projects/:id/meetings
func (h *MeetingHandler) ListByProject(c *gin.Context) {
	result, err := h.meetingSvc.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleMeetingError(c, err)
		return
	}
	response.OK(c, result)
}

// RecordAttendance 记录出席
// PUT /api/v1/meetings/:id/attendance
func (h *MeetingHandler) RecordAttendance(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.meetingSvc.RecordAttendance(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleMeetingError(c, err)
		return
	}
	response.OK(c, result)
}

// SubmitLog 学生提交会议记录
// POST /api/v1/meetings/:id/logs
func (h *MeetingHandler) SubmitLog(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitMeetingLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.meetingSvc.SubmitLog(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleMeetingError(c, err)
		return
	}
	response.Created(c, result)
}

// ApproveLog 导师批准会议记录
// POST /api/v1/meeting-logs/:id/approve
func (h *MeetingHandler) ApproveLog(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.meetingSvc.ApproveLog(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleMeetingError(c, err)
		return
	}
	response.OK(c, result)
}

// handleMeetingError 业务错误 → HTTP 响应映射
func (h *MeetingHandler) handleMeetingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMeetingNotFound):
		response.NotFound(c, 14001, "会议不存在")
	case errors.Is(err, service.ErrLogNotFound):
		response.NotFound(c, 14002, "会议记录不存在")
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFound(c, 12001, "项目不存在")
	case errors.Is(err, service.ErrMeetingForbidden):
		response.Forbidden(c, 14003, "没有权限操作该会议")
	case errors.Is(err, service.ErrMeetingInvalid):
		response.BadRequest(c, 14004, "会议参数无效")
	case errors.Is(err, service.ErrLogState):
		response.Conflict(c, 14005, "会议记录当前状态不允许该操作")
	case errors.Is(err, service.ErrProjectState):
		response.Conflict(c, 12004, "项目当前状态不允许该操作")
	default:
		response.InternalError(c)
	}
}
