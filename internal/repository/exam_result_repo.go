package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

// ExamResultRepository 考核结果数据访问接口
type ExamResultRepository interface {
	Create(ctx context.Context, result *model.ExamResult) error
	GetByProjectAndType(ctx context.Context, projectID, examType string) (*model.ExamResult, error)
	ListByProject(ctx context.Context, projectID string) ([]model.ExamResult, error)
	Update(ctx context.Context, result *model.ExamResult) error
}

type examResultRepo struct {
	db *gorm.DB
}

// NewExamResultRepo 创建 ExamResultRepository 实例
func NewExamResultRepo(db *gorm.DB) ExamResultRepository {
	return &examResultRepo{db: db}
}

func (r *examResultRepo) Create(ctx context.Context, result *model.ExamResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *examResultRepo) GetByProjectAndType(ctx context.Context, projectID, examType string) (*model.ExamResult, error) {
	var result model.ExamResult
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND exam_type = ?", projectID, examType).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *examResultRepo) ListByProject(ctx context.Context, projectID string) ([]model.ExamResult, error) {
	var results []model.ExamResult
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&results).Error
	return results, err
}

func (r *examResultRepo) Update(ctx context.Context, result *model.ExamResult) error {
	return r.db.WithContext(ctx).Save(result).Error
}
