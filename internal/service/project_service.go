package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Manchinn/CSLogbook-sub002/internal/dto"
	"github.com/Manchinn/CSLogbook-sub002/internal/model"
	"github.com/Manchinn/CSLogbook-sub002/internal/repository"
)

// ── 错误定义 ──

var (
	ErrProjectNotFound       = errors.New("项目不存在")
	ErrStudentNotFound       = errors.New("学生不存在")
	ErrProjectForbidden      = errors.New("没有权限操作该项目")
	ErrProjectState          = errors.New("项目当前状态不允许该操作")
	ErrProjectConflict       = errors.New("学生已有进行中的项目")
	ErrMemberExists          = errors.New("该学生已是项目成员")
	ErrTeamFull              = errors.New("项目成员已满")
	ErrNotEligible           = errors.New("学生不符合项目注册资格")
	ErrUnacknowledgedFailure = errors.New("存在未确认的考核结果，须先确认")
	ErrExamResultExists      = errors.New("该类型考核结果已记录")
	ErrDefenseNotVerified    = errors.New("答辩申请尚未核验通过，不能记录考核结果")
	ErrNothingToAcknowledge  = errors.New("没有待确认的考核结果")
)

// maxProjectMembers 每个项目的成员上限（leader 含在内）
const maxProjectMembers = 3

// ProjectService 项目生命周期服务接口
type ProjectService interface {
	Create(ctx context.Context, studentID string, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	AddMember(ctx context.Context, actorID, projectID string, req *dto.AddMemberRequest) (*dto.ProjectResponse, error)
	UpdateMetadata(ctx context.Context, actorID, actorRole, projectID string, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error)
	Activate(ctx context.Context, actorRole, projectID string) (*dto.ProjectResponse, error)
	Archive(ctx context.Context, actorRole, projectID string) (*dto.ProjectResponse, error)
	RecordExamResult(ctx context.Context, staffID, projectID string, req *dto.RecordExamResultRequest) (*dto.ProjectResponse, error)
	AcknowledgeExamResult(ctx context.Context, studentID, projectID string) (*dto.ProjectResponse, error)
	Get(ctx context.Context, projectID string) (*dto.ProjectResponse, error)
	ListMine(ctx context.Context, studentID string) ([]dto.ProjectResponse, error)
}

type projectService struct {
	repo        *repository.Repository
	workflow    WorkflowService
	aggregator  *MeetingMetricsAggregator
	eligibility EligibilityChecker
	notifier    Notifier
	logger      *zap.Logger
}

// NewProjectService 创建 ProjectService 实例
func NewProjectService(
	repo *repository.Repository,
	workflow WorkflowService,
	eligibility EligibilityChecker,
	notifier Notifier,
	logger *zap.Logger,
) ProjectService {
	if eligibility == nil {
		eligibility = AllowAllEligibility{}
	}
	return &projectService{
		repo:        repo,
		workflow:    workflow,
		aggregator:  NewMeetingMetricsAggregator(logger),
		eligibility: eligibility,
		notifier:    notifier,
		logger:      logger,
	}
}

// ────────────────────── Create ──────────────────────

// Create 创建项目草稿，创建者自动成为 leader
func (s *projectService) Create(ctx context.Context, studentID string, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("开启事务失败: %w", err)
	}
	committed := false
	defer func() {
		if tx != nil && !committed {
			tx.Rollback()
		}
	}()
	txRepo := s.repo.WithTx(tx)

	student, err := txRepo.User.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if student.Role != model.RoleStudent {
		return nil, ErrProjectForbidden
	}

	// 资格判定由外部协作方给出，此处直接信任其结论
	eligible, err := s.eligibility.CanRegister(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("资格检查失败: %w", err)
	}
	if !eligible {
		return nil, ErrNotEligible
	}

	if err := s.ensureCanJoin(ctx, txRepo, studentID); err != nil {
		return nil, err
	}

	project := &model.Project{
		TitleTH:      req.TitleTH,
		TitleEN:      req.TitleEN,
		Status:       model.ProjectStatusDraft,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
	}
	project.CreatedBy = &studentID
	if err := txRepo.Project.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("创建项目失败: %w", err)
	}

	leader := &model.ProjectMember{
		ProjectID: project.ProjectID,
		StudentID: studentID,
		Role:      model.MemberRoleLeader,
	}
	if err := txRepo.Member.Create(ctx, leader); err != nil {
		return nil, fmt.Errorf("创建项目成员失败: %w", err)
	}

	if err := s.workflow.SyncProject(ctx, txRepo, project.ProjectID); err != nil {
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, fmt.Errorf("提交事务失败: %w", err)
		}
	}
	committed = true

	s.logger.Info("项目创建成功",
		zap.String("project_id", project.ProjectID),
		zap.String("leader_id", studentID))
	return s.Get(ctx, project.ProjectID)
}

// ensureCanJoin 检查学生可以加入新项目：
// 1) 没有非归档项目的成员身份（全局唯一活动项目不变量）
// 2) 没有未通过且未确认的已归档项目（须先确认结果）
func (s *projectService) ensureCanJoin(ctx context.Context, repo *repository.Repository, studentID string) error {
	count, err := repo.Member.CountActiveByStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("查询活动项目失败: %w", err)
	}
	if count > 0 {
		return ErrProjectConflict
	}

	unacked, err := repo.Project.ListUnacknowledgedFailedByStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("查询未确认考核失败: %w", err)
	}
	if len(unacked) > 0 {
		return ErrUnacknowledgedFailure
	}
	return nil
}

// ────────────────────── AddMember ──────────────────────

// AddMember leader 按学号拉入组员
func (s *projectService) AddMember(ctx context.Context, actorID, projectID string, req *dto.AddMemberRequest) (*dto.ProjectResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("开启事务失败: %w", err)
	}
	committed := false
	defer func() {
		if tx != nil && !committed {
			tx.Rollback()
		}
	}()
	txRepo := s.repo.WithTx(tx)

	project, err := s.lockProject(ctx, txRepo, projectID)
	if err != nil {
		return nil, err
	}

	actor := project.MemberOf(actorID)
	if actor == nil || actor.Role != model.MemberRoleLeader {
		return nil, ErrProjectForbidden
	}
	// 进入实作阶段后团队构成锁定
	switch project.Status {
	case model.ProjectStatusDraft, model.ProjectStatusAdvisorAssigned:
	default:
		return nil, ErrProjectState
	}
	if len(project.Members) >= maxProjectMembers {
		return nil, ErrTeamFull
	}

	student, err := txRepo.User.GetByStudentCode(ctx, req.StudentCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if student.Role != model.RoleStudent {
		return nil, ErrProjectForbidden
	}
	if project.MemberOf(student.UserID) != nil {
		return nil, ErrMemberExists
	}
	if err := s.ensureCanJoin(ctx, txRepo, student.UserID); err != nil {
		return nil, err
	}

	member := &model.ProjectMember{
		ProjectID: projectID,
		StudentID: student.UserID,
		Role:      model.MemberRoleMember,
	}
	member.CreatedBy = &actorID
	if err := txRepo.Member.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("创建项目成员失败: %w", err)
	}

	if err := s.workflow.SyncProject(ctx, txRepo, projectID); err != nil {
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, fmt.Errorf("提交事务失败: %w", err)
		}
	}
	committed = true
	return s.Get(ctx, projectID)
}

// ────────────────────── UpdateMetadata ──────────────────────

// UpdateMetadata 更新题目与导师。
// 题目由 leader 在进入 in_progress 前修改；导师指派由 staff 操作，
// draft 项目指派首位导师时迁移到 advisor_assigned
func (s *projectService) UpdateMetadata(ctx context.Context, actorID, actorRole, projectID string, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("开启事务失败: %w", err)
	}
	committed := false
	defer func() {
		if tx != nil && !committed {
			tx.Rollback()
		}
	}()
	txRepo := s.repo.WithTx(tx)

	project, err := s.lockProject(ctx, txRepo, projectID)
	if err != nil {
		return nil, err
	}

	if req.TitleTH != nil || req.TitleEN != nil {
		actor := project.MemberOf(actorID)
		isStaff := actorRole == model.RoleStaff || actorRole == model.RoleAdmin
		if actor == nil && !isStaff {
			return nil, ErrProjectForbidden
		}
		// 题目在进入实作后锁定
		switch project.Status {
		case model.ProjectStatusDraft, model.ProjectStatusAdvisorAssigned:
		default:
			return nil, ErrProjectState
		}
		if req.TitleTH != nil {
			project.TitleTH = *req.TitleTH
		}
		if req.TitleEN != nil {
			project.TitleEN = *req.TitleEN
		}
	}

	if req.AdvisorID != nil || req.CoAdvisorID != nil {
		if actorRole != model.RoleStaff && actorRole != model.RoleAdmin {
			return nil, ErrProjectForbidden
		}
		if !project.IsActive() {
			return nil, ErrProjectState
		}
		if req.AdvisorID != nil {
			advisor, err := txRepo.User.GetByID(ctx, *req.AdvisorID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrStudentNotFound
				}
				return nil, err
			}
			if advisor.Role != model.RoleAdvisor {
				return nil, ErrProjectForbidden
			}
			project.AdvisorID = req.AdvisorID
			if project.Status == model.ProjectStatusDraft {
				project.Status = model.ProjectStatusAdvisorAssigned
			}
		}
		if req.CoAdvisorID != nil {
			project.CoAdvisorID = req.CoAdvisorID
		}
	}

	project.UpdatedBy = &actorID
	if err := txRepo.Project.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("更新项目失败: %w", err)
	}

	if err := s.workflow.SyncProject(ctx, txRepo, projectID); err != nil {
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, fmt.Errorf("提交事务失败: %w", err)
		}
	}
	committed = true
	return s.Get(ctx, projectID)
}

// ────────────────────── Activate ──────────────────────

// Activate 将项目推进到 in_progress。
// 前置：已指派导师、成员满两人、两种语言题目齐全
func (s *projectService) Activate(ctx context.Context, actorRole, projectID string) (*dto.ProjectResponse, error) {
	if actorRole != model.RoleStaff && actorRole != model.RoleAdmin {
		return nil, ErrProjectForbidden
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("开启事务失败: %w", err)
	}
	committed := false
	defer func() {
		if tx != nil && !committed {
			tx.Rollback()
		}
	}()
	txRepo := s.repo.WithTx(tx)

	project, err := s.lockProject(ctx, txRepo, projectID)
	if err != nil {
		return nil, err
	}

	if project.Status != model.ProjectStatusAdvisorAssigned {
		return nil, ErrProjectState
	}
	if len(project.Members) < 2 || project.TitleTH == "" || project.TitleEN == "" {
		return nil, ErrProjectState
	}

	project.Status = model.ProjectStatusInProgress
	if err := txRepo.Project.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("更新项目失败: %w", err)
	}

	if err := s.workflow.SyncProject(ctx, txRepo, projectID); err != nil {
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, fmt.Errorf("提交事务失败: %w", err)
		}
	}
	committed = true

	s.logger.Info("项目进入实作阶段", zap.String("project_id", projectID))
	return s.Get(ctx, projectID)
}

// ────────────────────── Archive ──────────────────────

// Archive 归档项目（staff 操作，任何非归档状态均可进入）
func (s *projectService) Archive(ctx context.Context, actorRole, projectID string) (*dto.ProjectResponse, error) {
	if actorRole != model.RoleStaff && actorRole != model.RoleAdmin {
		return nil, ErrProjectForbidden
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("开启事务失败: %w", err)
	}
	committed := false
	defer func() {
		if tx != nil && !committed {
			tx.Rollback()
		}
	}()
	txRepo := s.repo.WithTx(tx)

	project, err := s.lockProject(ctx, txRepo, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == model.ProjectStatusArchived {
		return nil, ErrProjectState
	}

	now := time.Now()
	project.Status = model.ProjectStatusArchived
	project.ArchivedAt = &now
	if err := txRepo.Project.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("更新项目失败: %w", err)
	}

	if err := s.workflow.SyncProject(ctx, txRepo, projectID); err != nil {
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, fmt.Errorf("提交事务失败: %w", err)
		}
	}
	committed = true
	return s.Get(ctx, projectID)
}

// ────────────────────── RecordExamResult ──────────────────────

// RecordExamResult 记录考核结果（staff 操作）。
// 仅当答辩申请处于 staff_verified / scheduled 时允许；
// 记录同时将答辩申请收束为 completed，并冗余结论到项目本身
func (s *projectService) RecordExamResult(ctx context.Context, staffID, projectID string, req *dto.RecordExamResultRequest) (*dto.ProjectResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("开启事务失败: %w", err)
	}
	committed := false
	defer func() {
		if tx != nil && !committed {
			tx.Rollback()
		}
	}()
	txRepo := s.repo.WithTx(tx)

	project, err := s.lockProject(ctx, txRepo, projectID)
	if err != nil {
		return nil, err
	}

	// 每个 (项目, 考核类型) 至多一条
	if _, err := txRepo.ExamResult.GetByProjectAndType(ctx, projectID, req.ExamType); err == nil {
		return nil, ErrExamResultExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	request, err := txRepo.DefenseRequest.GetActiveByProjectAndType(ctx, projectID, req.ExamType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDefenseNotVerified
		}
		return nil, err
	}
	if request.Status != model.DefenseStatusStaffVerified && request.Status != model.DefenseStatusScheduled {
		return nil, ErrDefenseNotVerified
	}

	now := time.Now()
	result := &model.ExamResult{
		ProjectID:            projectID,
		ExamType:             req.ExamType,
		Result:               req.Result,
		Score:                req.Score,
		Notes:                req.Notes,
		RequireScopeRevision: req.RequireScopeRevision,
		RecordedByUserID:     staffID,
	}
	if err := txRepo.ExamResult.Create(ctx, result); err != nil {
		return nil, fmt.Errorf("记录考核结果失败: %w", err)
	}

	// 申请收束为 completed
	request.Status = model.DefenseStatusCompleted
	request.CompletedAt = &now
	request.UpdatedBy = &staffID
	if err := txRepo.DefenseRequest.Update(ctx, request); err != nil {
		return nil, err
	}

	// 结论冗余到项目：PROJECT1 通过 → 项目完成；未通过 → 等待学生确认
	if req.ExamType == model.DefenseTypeProject1 {
		verdict := model.ProjectExamFailed
		if req.Result == model.ExamResultPass {
			verdict = model.ProjectExamPassed
			project.Status = model.ProjectStatusCompleted
		}
		project.ExamResult = &verdict
		project.ExamResultAt = &now
		project.StudentAcknowledgedAt = nil
		project.UpdatedBy = &staffID
		if err := txRepo.Project.Update(ctx, project); err != nil {
			return nil, fmt.Errorf("更新项目失败: %w", err)
		}
	}

	if err := s.workflow.SyncProject(ctx, txRepo, projectID); err != nil {
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, fmt.Errorf("提交事务失败: %w", err)
		}
	}
	committed = true

	s.notifyExamResult(ctx, project, req)
	return s.Get(ctx, projectID)
}

// notifyExamResult 提交后尽力通知成员，失败不影响已提交的结果
func (s *projectService) notifyExamResult(ctx context.Context, project *model.Project, req *dto.RecordExamResultRequest) {
	if s.notifier == nil {
		return
	}
	recipients := make([]string, 0, len(project.Members))
	for i := range project.Members {
		if project.Members[i].Student != nil && project.Members[i].Student.Email != "" {
			recipients = append(recipients, project.Members[i].Student.Email)
		}
	}
	if len(recipients) == 0 {
		return
	}
	_ = s.notifier.Notify(ctx, &Notification{
		Recipients: recipients,
		Subject:    fmt.Sprintf("ประกาศผลสอบ %s", req.ExamType),
		Body:       fmt.Sprintf("ผลสอบของโครงงาน %s: %s", project.TitleTH, req.Result),
	})
}

// ────────────────────── AcknowledgeExamResult ──────────────────────

// AcknowledgeExamResult 学生确认考核结果。
// 未通过的确认会连带归档项目，解除"单一活动项目"占用
func (s *projectService) AcknowledgeExamResult(ctx context.Context, studentID, projectID string) (*dto.ProjectResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("开启事务失败: %w", err)
	}
	committed := false
	defer func() {
		if tx != nil && !committed {
			tx.Rollback()
		}
	}()
	txRepo := s.repo.WithTx(tx)

	project, err := s.lockProject(ctx, txRepo, projectID)
	if err != nil {
		return nil, err
	}

	if project.MemberOf(studentID) == nil {
		return nil, ErrProjectForbidden
	}
	if project.ExamResult == nil {
		return nil, ErrNothingToAcknowledge
	}
	if project.StudentAcknowledgedAt != nil {
		return nil, ErrNothingToAcknowledge
	}

	now := time.Now()
	project.StudentAcknowledgedAt = &now
	if *project.ExamResult == model.ProjectExamFailed && project.Status != model.ProjectStatusArchived {
		project.Status = model.ProjectStatusArchived
		project.ArchivedAt = &now
	}
	project.UpdatedBy = &studentID
	if err := txRepo.Project.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("更新项目失败: %w", err)
	}

	// 考核行上的确认时间与项目保持一致
	if result, err := txRepo.ExamResult.GetByProjectAndType(ctx, projectID, model.DefenseTypeProject1); err == nil {
		result.StudentAcknowledgedAt = &now
		if err := txRepo.ExamResult.Update(ctx, result); err != nil {
			return nil, fmt.Errorf("更新考核结果失败: %w", err)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.workflow.SyncProject(ctx, txRepo, projectID); err != nil {
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, fmt.Errorf("提交事务失败: %w", err)
		}
	}
	committed = true
	return s.Get(ctx, projectID)
}

// ────────────────────── 查询 ──────────────────────

func (s *projectService) Get(ctx context.Context, projectID string) (*dto.ProjectResponse, error) {
	project, err := s.repo.Project.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	metrics := s.aggregator.Aggregate(ctx, s.repo, projectID, project.Members)
	return toProjectResponse(project, metrics), nil
}

func (s *projectService) ListMine(ctx context.Context, studentID string) ([]dto.ProjectResponse, error) {
	projects, err := s.repo.Project.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		view, err := s.Get(ctx, projects[i].ProjectID)
		if err != nil {
			return nil, err
		}
		result = append(result, *view)
	}
	return result, nil
}

// lockProject 以行锁加载项目，未找到时折叠为业务错误
func (s *projectService) lockProject(ctx context.Context, repo *repository.Repository, projectID string) (*model.Project, error) {
	project, err := repo.Project.GetByIDForUpdate(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("加载项目失败: %w", err)
	}
	return project, nil
}
