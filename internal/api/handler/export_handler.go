package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Manchinn/CSLogbook-sub002/internal/service"
	"github.com/Manchinn/CSLogbook-sub002/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportDefenseSchedule 导出答辩排期表
// GET /api/v1/export/defense-schedule?from=2026-01-01T00:00:00Z&to=2026-06-30T00:00:00Z&defense_type=final
func (h *ExportHandler) ExportDefenseSchedule(c *gin.Context) {
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	from, err := parseTimeParam(c.Query("from"))
	if err != nil {
		response.BadRequest(c, 10001, "from 时间格式无效")
		return
	}
	to, err := parseTimeParam(c.Query("to"))
	if err != nil {
		response.BadRequest(c, 10001, "to 时间格式无效")
		return
	}

	data, filename, err := h.exportSvc.ExportDefenseSchedule(c.Request.Context(), role, c.Query("defense_type"), from, to)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// parseTimeParam 解析查询参数时间，支持 RFC 3339 与纯日期两种格式
func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportForbidden):
		response.Forbidden(c, 16001, "没有权限导出答辩排期")
	case errors.Is(err, service.ErrExportRange):
		response.BadRequest(c, 16002, "时间范围无效")
	default:
		response.InternalError(c)
	}
}
