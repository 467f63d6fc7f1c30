package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Manchinn/CSLogbook-sub002/internal/dto"
	"github.com/Manchinn/CSLogbook-sub002/internal/service"
	"github.com/Manchinn/CSLogbook-sub002/pkg/response"
)

// ProjectHandler 项目模块 HTTP 处理器
type ProjectHandler struct {
	projectSvc service.ProjectService
}

// NewProjectHandler 创建 ProjectHandler
func NewProjectHandler(projectSvc service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectSvc: projectSvc}
}

// Create 创建项目
// POST /api/v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.projectSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.Created(c, result)
}

// Get 查询项目
// GET /api/v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	result, err := h.projectSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.OK(c, result)
}

// ListMine 查询我的项目
// GET /api/v1/projects/mine
func (h *ProjectHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.projectSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// AddMember 添加成员
// POST /api/v1/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.projectSvc.AddMember(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.OK(c, result)
}

// Update 更新项目元数据
// PUT /api/v1/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.projectSvc.UpdateMetadata(c.Request.Context(), userID, role, c.Param("id"), &req)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.OK(c, result)
}

// Activate 项目进入实作阶段
// POST /api/v1/projects/:id/activate
func (h *ProjectHandler) Activate(c *gin.Context) {
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	result, err := h.projectSvc.Activate(c.Request.Context(), role, c.Param("id"))
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.OK(c, result)
}

// Archive 归档项目
// POST /api/v1/projects/:id/archive
func (h *ProjectHandler) Archive(c *gin.Context) {
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	result, err := h.projectSvc.Archive(c.Request.Context(), role, c.Param("id"))
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.OK(c, result)
}

// RecordExamResult 记录考核结果
// POST /api/v1/projects/:id/exam-results
func (h *ProjectHandler) RecordExamResult(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RecordExamResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.projectSvc.RecordExamResult(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.Created(c, result)
}

// AcknowledgeExamResult 学生确认考核结果
// POST /api/v1/projects/:id/exam-results/acknowledge
func (h *ProjectHandler) AcknowledgeExamResult(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.projectSvc.AcknowledgeExamResult(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleProjectError(c, err)
		return
	}
	response.OK(c, result)
}

// handleProjectError 业务错误 → HTTP 响应映射
func (h *ProjectHandler) handleProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFound(c, 12001, "项目不存在")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 12002, "学生不存在")
	case errors.Is(err, service.ErrProjectForbidden):
		response.Forbidden(c, 12003, "没有权限操作该项目")
	case errors.Is(err, service.ErrProjectState):
		response.Conflict(c, 12004, "项目当前状态不允许该操作")
	case errors.Is(err, service.ErrProjectConflict):
		response.Conflict(c, 12005, "学生已有进行中的项目")
	case errors.Is(err, service.ErrMemberExists):
		response.Conflict(c, 12006, "该学生已是项目成员")
	case errors.Is(err, service.ErrTeamFull):
		response.Conflict(c, 12007, "项目成员已满")
	case errors.Is(err, service.ErrNotEligible):
		response.Forbidden(c, 12008, "学生不符合项目注册资格")
	case errors.Is(err, service.ErrUnacknowledgedFailure):
		response.Conflict(c, 12009, "存在未确认的考核结果，须先确认")
	case errors.Is(err, service.ErrExamResultExists):
		response.Conflict(c, 12010, "该类型考核结果已记录")
	case errors.Is(err, service.ErrDefenseNotVerified):
		response.Conflict(c, 12011, "答辩申请尚未核验通过")
	case errors.Is(err, service.ErrNothingToAcknowledge):
		response.Conflict(c, 12012, "没有待确认的考核结果")
	default:
		response.InternalError(c)
	}
}
