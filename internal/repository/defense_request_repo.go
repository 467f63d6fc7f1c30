package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
	pkgerrors "github.com/Manchinn/CSLogbook-sub002/pkg/errors"
)

// DefenseRequestRepository 答辩申请数据访问接口
type DefenseRequestRepository interface {
	Create(ctx context.Context, request *model.DefenseRequest) error
	GetByID(ctx context.Context, id string) (*model.DefenseRequest, error)
	// GetByIDForUpdate 以行锁加载申请，状态迁移前置检查在持锁后进行
	GetByIDForUpdate(ctx context.Context, id string) (*model.DefenseRequest, error)
	// GetActiveByProjectAndType 获取 (项目, 类型) 下唯一的活动（非 cancelled）申请
	GetActiveByProjectAndType(ctx context.Context, projectID, defenseType string) (*model.DefenseRequest, error)
	ListByProject(ctx context.Context, projectID string) ([]model.DefenseRequest, error)
	// ListScheduled 列出时间窗口内已排期的申请（导出用）
	ListScheduled(ctx context.Context, defenseType string, from, to time.Time) ([]model.DefenseRequest, error)
	Update(ctx context.Context, request *model.DefenseRequest) error
}

type defenseRequestRepo struct {
	db *gorm.DB
}

// NewDefenseRequestRepo 创建 DefenseRequestRepository 实例
func NewDefenseRequestRepo(db *gorm.DB) DefenseRequestRepository {
	return &defenseRequestRepo{db: db}
}

func (r *defenseRequestRepo) Create(ctx context.Context, request *model.DefenseRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *defenseRequestRepo) GetByID(ctx context.Context, id string) (*model.DefenseRequest, error) {
	var request model.DefenseRequest
	err := r.db.WithContext(ctx).
		Where("request_id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *defenseRequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.DefenseRequest, error) {
	var request model.DefenseRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *defenseRequestRepo) GetActiveByProjectAndType(ctx context.Context, projectID, defenseType string) (*model.DefenseRequest, error) {
	var request model.DefenseRequest
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND defense_type = ? AND status != ?",
			projectID, defenseType, model.DefenseStatusCancelled).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *defenseRequestRepo) ListByProject(ctx context.Context, projectID string) ([]model.DefenseRequest, error) {
	var requests []model.DefenseRequest
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&requests).Error
	return requests, err
}

func (r *defenseRequestRepo) ListScheduled(ctx context.Context, defenseType string, from, to time.Time) ([]model.DefenseRequest, error) {
	var requests []model.DefenseRequest
	q := r.db.WithContext(ctx).
		Where("status = ?", model.DefenseStatusScheduled).
		Where("scheduled_at >= ? AND scheduled_at < ?", from, to)
	if defenseType != "" {
		q = q.Where("defense_type = ?", defenseType)
	}
	err := q.Order("scheduled_at ASC").Find(&requests).Error
	return requests, err
}

// Update 带乐观锁的全量更新：版本不匹配返回 ErrOptimisticLock
func (r *defenseRequestRepo) Update(ctx context.Context, request *model.DefenseRequest) error {
	oldVersion := request.Version
	result := r.db.WithContext(ctx).
		Model(request).
		Where("request_id = ? AND version = ?", request.RequestID, oldVersion).
		Updates(map[string]interface{}{
			"status":             request.Status,
			"form_payload":       request.FormPayload,
			"attachment_path":    request.AttachmentPath,
			"attachment_mime":    request.AttachmentMime,
			"attachment_size":    request.AttachmentSize,
			"scheduled_at":       request.ScheduledAt,
			"location":           request.Location,
			"advisor_comment":    request.AdvisorComment,
			"staff_comment":      request.StaffComment,
			"advisor_decided_at": request.AdvisorDecidedAt,
			"staff_verified_at":  request.StaffVerifiedAt,
			"completed_at":       request.CompletedAt,
			"cancelled_at":       request.CancelledAt,
			"updated_by":         request.UpdatedBy,
			"version":            oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	request.Version = oldVersion + 1
	return nil
}
