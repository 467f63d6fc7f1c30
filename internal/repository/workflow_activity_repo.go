package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

// WorkflowActivityRepository 工作流活动数据访问接口
// 写操作仅供工作流同步器调用，其余组件只读
type WorkflowActivityRepository interface {
	GetByStudentAndType(ctx context.Context, studentID, workflowType string) (*model.WorkflowActivity, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.WorkflowActivity, error)
	Create(ctx context.Context, activity *model.WorkflowActivity) error
	Update(ctx context.Context, activity *model.WorkflowActivity) error
}

type workflowActivityRepo struct {
	db *gorm.DB
}

// NewWorkflowActivityRepo 创建 WorkflowActivityRepository 实例
func NewWorkflowActivityRepo(db *gorm.DB) WorkflowActivityRepository {
	return &workflowActivityRepo{db: db}
}

func (r *workflowActivityRepo) GetByStudentAndType(ctx context.Context, studentID, workflowType string) (*model.WorkflowActivity, error) {
	var activity model.WorkflowActivity
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND workflow_type = ?", studentID, workflowType).
		First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *workflowActivityRepo) ListByStudent(ctx context.Context, studentID string) ([]model.WorkflowActivity, error) {
	var activities []model.WorkflowActivity
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("workflow_type ASC").
		Find(&activities).Error
	return activities, err
}

func (r *workflowActivityRepo) Create(ctx context.Context, activity *model.WorkflowActivity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *workflowActivityRepo) Update(ctx context.Context, activity *model.WorkflowActivity) error {
	return r.db.WithContext(ctx).
		Model(activity).
		Where("activity_id = ?", activity.ActivityID).
		Updates(map[string]interface{}{
			"current_step_key":        activity.CurrentStepKey,
			"current_step_status":     activity.CurrentStepStatus,
			"overall_workflow_status": activity.OverallWorkflowStatus,
			"data_payload":            activity.DataPayload,
		}).Error
}
