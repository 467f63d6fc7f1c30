package handler

import "github.com/Manchinn/CSLogbook-sub002/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	Project  *ProjectHandler
	Defense  *DefenseHandler
	Meeting  *MeetingHandler
	Workflow *WorkflowHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		Project:  NewProjectHandler(svc.Project),
		Defense:  NewDefenseHandler(svc.Defense),
		Meeting:  NewMeetingHandler(svc.Meeting),
		Workflow: NewWorkflowHandler(svc.Workflow),
		Export:   NewExportHandler(svc.Export),
	}
}
