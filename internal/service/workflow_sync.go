package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Manchinn/CSLogbook-sub002/internal/dto"
	"github.com/Manchinn/CSLogbook-sub002/internal/model"
	"github.com/Manchinn/CSLogbook-sub002/internal/repository"
)

// WorkflowService 工作流同步与查询接口
type WorkflowService interface {
	// SyncProject 在调用方事务内重算并持久化项目全部成员的派生状态。
	// repo 必须是绑定到触发变更那个事务的 Repository —
	// 同步器从不自行开启事务；此处报错将使整个变更回滚，
	// 因为缺少一致派生状态的变更视为未完成。
	SyncProject(ctx context.Context, repo *repository.Repository, projectID string) error
	// GetStudentActivities 查询学生的工作流活动时间线
	GetStudentActivities(ctx context.Context, studentID string) ([]dto.WorkflowActivityResponse, error)
}

type workflowService struct {
	repo       *repository.Repository
	aggregator *MeetingMetricsAggregator
	logger     *zap.Logger
}

// NewWorkflowService 创建 WorkflowService 实例
func NewWorkflowService(repo *repository.Repository, logger *zap.Logger) WorkflowService {
	return &workflowService{
		repo:       repo,
		aggregator: NewMeetingMetricsAggregator(logger),
		logger:     logger,
	}
}

// ────────────────────── SyncProject ──────────────────────

func (s *workflowService) SyncProject(ctx context.Context, repo *repository.Repository, projectID string) error {
	// 1. 在事务快照内重新加载项目图
	project, err := repo.Project.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("同步加载项目失败: %w", err)
	}

	// 2. 聚合会议统计（专题一工作流只看 phase1）
	metrics := s.aggregator.Aggregate(ctx, repo, projectID, project.Members, model.PhaseOne)

	// 3. 逐成员派生状态并持久化
	for i := range project.Members {
		member := &project.Members[i]
		state := ComputeWorkflowState(project, member, metrics)

		if err := s.upsertActivity(ctx, repo, member.StudentID, state); err != nil {
			return err
		}
		if err := s.syncStudentFlags(ctx, repo, member.StudentID, state); err != nil {
			return err
		}
	}

	return nil
}

// upsertActivity 创建或原地更新学生的工作流活动行。
// 无实际变化时跳过写入，保证两次连续同步产生完全相同的行（幂等）
func (s *workflowService) upsertActivity(ctx context.Context, repo *repository.Repository, studentID string, state *WorkflowState) error {
	payload, err := json.Marshal(state.DataPayload)
	if err != nil {
		return fmt.Errorf("序列化工作流载荷失败: %w", err)
	}

	existing, err := repo.WorkflowActivity.GetByStudentAndType(ctx, studentID, model.WorkflowTypeProject1)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("查询工作流活动失败: %w", err)
		}
		// 首次同步懒创建
		activity := &model.WorkflowActivity{
			StudentID:             studentID,
			WorkflowType:          model.WorkflowTypeProject1,
			CurrentStepKey:        state.CurrentStepKey,
			CurrentStepStatus:     state.CurrentStepStatus,
			OverallWorkflowStatus: state.OverallStatus,
			DataPayload:           payload,
		}
		if err := repo.WorkflowActivity.Create(ctx, activity); err != nil {
			return fmt.Errorf("创建工作流活动失败: %w", err)
		}
		return nil
	}

	if existing.CurrentStepKey == state.CurrentStepKey &&
		existing.CurrentStepStatus == state.CurrentStepStatus &&
		existing.OverallWorkflowStatus == state.OverallStatus &&
		bytes.Equal(existing.DataPayload, payload) {
		return nil // 无变化，保持行字节不变
	}

	existing.CurrentStepKey = state.CurrentStepKey
	existing.CurrentStepStatus = state.CurrentStepStatus
	existing.OverallWorkflowStatus = state.OverallStatus
	existing.DataPayload = payload
	if err := repo.WorkflowActivity.Update(ctx, existing); err != nil {
		return fmt.Errorf("更新工作流活动失败: %w", err)
	}
	return nil
}

// syncStudentFlags 同步学生的冗余生命周期标记
func (s *workflowService) syncStudentFlags(ctx context.Context, repo *repository.Repository, studentID string, state *WorkflowState) error {
	student, err := repo.User.GetByID(ctx, studentID)
	if err != nil {
		return fmt.Errorf("查询学生失败: %w", err)
	}

	if student.ProjectEnrolled == state.IsEnrolled &&
		student.ProjectLifecycleStatus == state.StudentLifecycleStatus {
		return nil
	}

	if err := repo.User.UpdateLifecycleFlags(ctx, studentID, state.IsEnrolled, state.StudentLifecycleStatus); err != nil {
		return fmt.Errorf("更新学生生命周期标记失败: %w", err)
	}
	return nil
}

// ────────────────────── GetStudentActivities ──────────────────────

func (s *workflowService) GetStudentActivities(ctx context.Context, studentID string) ([]dto.WorkflowActivityResponse, error) {
	activities, err := s.repo.WorkflowActivity.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询工作流活动失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.WorkflowActivityResponse, 0, len(activities))
	for i := range activities {
		result = append(result, *toWorkflowActivityResponse(&activities[i]))
	}
	return result, nil
}

func toWorkflowActivityResponse(a *model.WorkflowActivity) *dto.WorkflowActivityResponse {
	var payload map[string]interface{}
	if len(a.DataPayload) > 0 {
		_ = json.Unmarshal(a.DataPayload, &payload)
	}
	return &dto.WorkflowActivityResponse{
		ActivityID:            a.ActivityID,
		StudentID:             a.StudentID,
		WorkflowType:          a.WorkflowType,
		CurrentStepKey:        a.CurrentStepKey,
		CurrentStepStatus:     a.CurrentStepStatus,
		OverallWorkflowStatus: a.OverallWorkflowStatus,
		DataPayload:           payload,
		UpdatedAt:             a.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
