package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

// ProjectRepository 项目数据访问接口
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	// GetByIDForUpdate 以行锁（SELECT ... FOR UPDATE）加载项目，
	// 状态迁移前置检查必须在持锁后进行，避免并发写产生矛盾状态
	GetByIDForUpdate(ctx context.Context, id string) (*model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	// ListActiveByStudent 列出学生参与的所有非归档项目
	ListActiveByStudent(ctx context.Context, studentID string) ([]model.Project, error)
	// ListUnacknowledgedFailedByStudent 列出学生参与的、考核未通过且未确认的已归档项目
	ListUnacknowledgedFailedByStudent(ctx context.Context, studentID string) ([]model.Project, error)
}

type projectRepo struct {
	db *gorm.DB
}

// NewProjectRepo 创建 ProjectRepository 实例
func NewProjectRepo(db *gorm.DB) ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).
		Preload("Advisor").
		Preload("Members.Student").
		Preload("DefenseRequests").
		Preload("ExamResults").
		Where("project_id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	// 行锁只作用于 projects 本身，关联随后单独加载，避免 FOR UPDATE 连带外连接
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("project_id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("project_id = ?", id).
		Find(&project.Members).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", id).
		Find(&project.DefenseRequests).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", id).
		Find(&project.ExamResults).Error; err != nil {
		return nil, err
	}

	return &project, nil
}

func (r *projectRepo) Update(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).
		Model(project).
		Where("project_id = ?", project.ProjectID).
		Updates(map[string]interface{}{
			"title_th":                project.TitleTH,
			"title_en":                project.TitleEN,
			"status":                  project.Status,
			"exam_result":             project.ExamResult,
			"exam_result_at":          project.ExamResultAt,
			"student_acknowledged_at": project.StudentAcknowledgedAt,
			"advisor_id":              project.AdvisorID,
			"co_advisor_id":           project.CoAdvisorID,
			"academic_year":           project.AcademicYear,
			"semester":                project.Semester,
			"archived_at":             project.ArchivedAt,
			"updated_by":              project.UpdatedBy,
		}).Error
}

func (r *projectRepo) ListActiveByStudent(ctx context.Context, studentID string) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Joins("JOIN project_members ON project_members.project_id = projects.project_id").
		Where("project_members.student_id = ? AND projects.status != ?", studentID, model.ProjectStatusArchived).
		Find(&projects).Error
	return projects, err
}

func (r *projectRepo) ListUnacknowledgedFailedByStudent(ctx context.Context, studentID string) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Joins("JOIN project_members ON project_members.project_id = projects.project_id").
		Where("project_members.student_id = ?", studentID).
		Where("projects.status = ?", model.ProjectStatusArchived).
		Where("projects.exam_result = ?", model.ProjectExamFailed).
		Where("projects.student_acknowledged_at IS NULL").
		Find(&projects).Error
	return projects, err
}
