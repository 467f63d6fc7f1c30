package service

import (
	"go.uber.org/zap"

	"github.com/Manchinn/CSLogbook-sub002/config"
	"github.com/Manchinn/CSLogbook-sub002/internal/repository"
	pkgjwt "github.com/Manchinn/CSLogbook-sub002/pkg/jwt"
	"github.com/Manchinn/CSLogbook-sub002/pkg/redis"
)

// Service 所有业务服务的聚合入口
type Service struct {
	Auth     AuthService
	Project  ProjectService
	Defense  DefenseService
	Meeting  MeetingService
	Workflow WorkflowService
	Export   ExportService
}

// NewService 创建 Service 聚合并完成依赖装配。
// rdb 可为 nil（Redis 降级运行），eligibility / notifier 可为 nil（使用默认实现）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *pkgjwt.Manager,
	rdb *redis.Client,
	notifier Notifier,
	eligibility EligibilityChecker,
	logger *zap.Logger,
) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	notifier = NewBestEffortNotifier(notifier, logger)

	workflow := NewWorkflowService(repo, logger)

	return &Service{
		Auth:     NewAuthService(repo, jwtMgr, rdb, logger),
		Project:  NewProjectService(repo, workflow, eligibility, notifier, logger),
		Defense:  NewDefenseService(repo, workflow, notifier, logger),
		Meeting:  NewMeetingService(repo, workflow, logger),
		Workflow: workflow,
		Export:   NewExportService(repo, logger),
	}
}
