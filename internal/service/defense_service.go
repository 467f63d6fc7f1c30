package service

import (
	"context"
	"encoding/json"
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
	ErrDefenseNotFound   = errors.New("答辩申请不存在")
	ErrDefenseForbidden  = errors.New("没有权限操作该答辩申请")
	ErrDefenseState      = errors.New("答辩申请当前状态不允许该操作")
	ErrDefenseConflict   = errors.New("该类型已存在处理中的答辩申请")
	ErrDefenseEditLocked = errors.New("答辩申请已锁定，不能修改")
	ErrReadinessNotMet   = errors.New("已批准的会议记录数未达到要求")
	ErrScheduleInvalid   = errors.New("排期时间无效")
)

// DefenseService 答辩申请服务接口
type DefenseService interface {
	Submit(ctx context.Context, studentID, projectID string, req *dto.SubmitDefenseRequest) (*dto.DefenseRequestResponse, error)
	Amend(ctx context.Context, studentID, requestID string, req *dto.SubmitDefenseRequest) (*dto.DefenseRequestResponse, error)
	AdvisorDecision(ctx context.Context, advisorID, requestID string, req *dto.AdvisorDecisionRequest) (*dto.DefenseRequestResponse, error)
	StaffVerify(ctx context.Context, staffID, staffRole, requestID string, req *dto.StaffVerifyRequest) (*dto.DefenseRequestResponse, error)
	Schedule(ctx context.Context, staffID, staffRole, requestID string, req *dto.ScheduleDefenseRequest) (*dto.DefenseRequestResponse, error)
	Cancel(ctx context.Context, actorID, actorRole, requestID string) (*dto.DefenseRequestResponse, error)
	Get(ctx context.Context, requestID string) (*dto.DefenseRequestResponse, error)
}

type defenseService struct {
	repo       *repository.Repository
	workflow   WorkflowService
	aggregator *MeetingMetricsAggregator
	notifier   Notifier
	logger     *zap.Logger
}

// NewDefenseService 创建 DefenseService 实例
func NewDefenseService(repo *repository.Repository, workflow WorkflowService, notifier Notifier, logger *zap.Logger) DefenseService {
	return &defenseService{
		repo:       repo,
		workflow:   workflow,
		aggregator: NewMeetingMetricsAggregator(logger),
		notifier:   notifier,
		logger:     logger,
	}
}

// ────────────────────── Submit ──────────────────────

// Submit leader 提交答辩申请。
// 同一 (项目, 类型) 已有被退回的申请时走重新提交路径；
// 仍在处理中则拒绝，保证活动申请全局唯一
func (s *defenseService) Submit(ctx context.Context, studentID, projectID string, req *dto.SubmitDefenseRequest) (*dto.DefenseRequestResponse, error) {
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

	// 锁顺序固定：先项目行，后申请行，避免与其他答辩操作死锁
	project, err := txRepo.Project.GetByIDForUpdate(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	member := project.MemberOf(studentID)
	if member == nil || member.Role != model.MemberRoleLeader {
		return nil, ErrDefenseForbidden
	}
	// THESIS 在题目考核通过（completed）之后提交，PROJECT1 在实作阶段提交
	if project.Status != model.ProjectStatusInProgress && project.Status != model.ProjectStatusCompleted {
		return nil, ErrProjectState
	}

	// 就绪门槛：提交者本人在对应阶段的已批准记录数
	phase := model.PhaseFor(req.DefenseType)
	metrics := s.aggregator.Aggregate(ctx, txRepo, projectID, project.Members, phase)
	if metrics.PerStudent[studentID].ApprovedLogs < readinessLogThreshold {
		return nil, ErrReadinessNotMet
	}

	payload, err := buildFormPayload(project, req)
	if err != nil {
		return nil, err
	}

	existing, err := txRepo.DefenseRequest.GetActiveByProjectAndType(ctx, projectID, req.DefenseType)
	if err == nil {
		// 重新提交路径：仅接受导师驳回 / 系办退回的申请
		if existing.Status != model.DefenseStatusAdvisorRejected &&
			existing.Status != model.DefenseStatusStaffReturned {
			return nil, ErrDefenseConflict
		}
		existing.Status = model.DefenseStatusSubmitted
		existing.FormPayload = payload
		applyAttachment(existing, req.Attachment)
		existing.UpdatedBy = &studentID
		if err := txRepo.DefenseRequest.Update(ctx, existing); err != nil {
			return nil, err
		}
		return s.finishDefenseTx(ctx, tx, txRepo, &committed, projectID, existing.RequestID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	request := &model.DefenseRequest{
		ProjectID:   projectID,
		DefenseType: req.DefenseType,
		Status:      model.DefenseStatusSubmitted,
		FormPayload: payload,
		SubmittedBy: studentID,
	}
	applyAttachment(request, req.Attachment)
	request.CreatedBy = &studentID
	if err := txRepo.DefenseRequest.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("创建答辩申请失败: %w", err)
	}

	return s.finishDefenseTx(ctx, tx, txRepo, &committed, projectID, request.RequestID)
}

// buildFormPayload 归一化表单载荷：联系方式 + 提交时刻的成员快照。
// 快照冻结在载荷里，后续成员变动不回写已提交的申请
func buildFormPayload(project *model.Project, req *dto.SubmitDefenseRequest) ([]byte, error) {
	members := make([]map[string]interface{}, 0, len(project.Members))
	for i := range project.Members {
		m := &project.Members[i]
		entry := map[string]interface{}{
			"student_id": m.StudentID,
			"role":       m.Role,
		}
		if m.Student != nil {
			entry["student_code"] = m.Student.StudentCode
			entry["name"] = m.Student.Name
		}
		members = append(members, entry)
	}
	payload := map[string]interface{}{
		"schema":        "v1",
		"contact_phone": req.ContactPhone,
		"contact_email": req.ContactEmail,
		"title_th":      project.TitleTH,
		"title_en":      project.TitleEN,
		"members":       members,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化表单载荷失败: %w", err)
	}
	return raw, nil
}

func applyAttachment(request *model.DefenseRequest, meta *dto.AttachmentMetaInput) {
	if meta == nil {
		return
	}
	request.AttachmentPath = &meta.Path
	request.AttachmentMime = &meta.Mime
	request.AttachmentSize = &meta.Size
}

// ────────────────────── Amend ──────────────────────

// Amend 提交者在审批开始前修正表单与附件
func (s *defenseService) Amend(ctx context.Context, studentID, requestID string, req *dto.SubmitDefenseRequest) (*dto.DefenseRequestResponse, error) {
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

	request, project, err := s.lockRequest(ctx, txRepo, requestID)
	if err != nil {
		return nil, err
	}
	if request.SubmittedBy != studentID {
		return nil, ErrDefenseForbidden
	}
	if request.IsEditLocked() {
		return nil, ErrDefenseEditLocked
	}
	switch request.Status {
	case model.DefenseStatusSubmitted, model.DefenseStatusAdvisorRejected, model.DefenseStatusStaffReturned:
	default:
		return nil, ErrDefenseState
	}

	payload, err := buildFormPayload(project, req)
	if err != nil {
		return nil, err
	}
	request.FormPayload = payload
	applyAttachment(request, req.Attachment)
	request.UpdatedBy = &studentID
	if err := txRepo.DefenseRequest.Update(ctx, request); err != nil {
		return nil, err
	}

	return s.finishDefenseTx(ctx, tx, txRepo, &committed, request.ProjectID, requestID)
}

// ────────────────────── AdvisorDecision ──────────────────────

// AdvisorDecision 项目导师审批已提交的申请
func (s *defenseService) AdvisorDecision(ctx context.Context, advisorID, requestID string, req *dto.AdvisorDecisionRequest) (*dto.DefenseRequestResponse, error) {
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

	request, project, err := s.lockRequest(ctx, txRepo, requestID)
	if err != nil {
		return nil, err
	}
	if project.AdvisorID == nil || *project.AdvisorID != advisorID {
		return nil, ErrDefenseForbidden
	}
	if request.Status != model.DefenseStatusSubmitted {
		return nil, ErrDefenseState
	}

	now := time.Now()
	if req.Approve {
		request.Status = model.DefenseStatusAdvisorApproved
	} else {
		request.Status = model.DefenseStatusAdvisorRejected
	}
	request.AdvisorComment = req.Comment
	request.AdvisorDecidedAt = &now
	request.UpdatedBy = &advisorID
	if err := txRepo.DefenseRequest.Update(ctx, request); err != nil {
		return nil, err
	}

	return s.finishDefenseTx(ctx, tx, txRepo, &committed, request.ProjectID, requestID)
}

// ────────────────────── StaffVerify ──────────────────────

// StaffVerify 系办核验导师已批准的申请
func (s *defenseService) StaffVerify(ctx context.Context, staffID, staffRole, requestID string, req *dto.StaffVerifyRequest) (*dto.DefenseRequestResponse, error) {
	if staffRole != model.RoleStaff && staffRole != model.RoleAdmin {
		return nil, ErrDefenseForbidden
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

	request, _, err := s.lockRequest(ctx, txRepo, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.DefenseStatusAdvisorApproved {
		return nil, ErrDefenseState
	}

	now := time.Now()
	if req.Approve {
		request.Status = model.DefenseStatusStaffVerified
		request.StaffVerifiedAt = &now
	} else {
		request.Status = model.DefenseStatusStaffReturned
	}
	request.StaffComment = req.Comment
	request.UpdatedBy = &staffID
	if err := txRepo.DefenseRequest.Update(ctx, request); err != nil {
		return nil, err
	}

	return s.finishDefenseTx(ctx, tx, txRepo, &committed, request.ProjectID, requestID)
}

// ────────────────────── Schedule ──────────────────────

// Schedule 系办排期或改期。completed 后排期永久锁定
func (s *defenseService) Schedule(ctx context.Context, staffID, staffRole, requestID string, req *dto.ScheduleDefenseRequest) (*dto.DefenseRequestResponse, error) {
	if staffRole != model.RoleStaff && staffRole != model.RoleAdmin {
		return nil, ErrDefenseForbidden
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, ErrScheduleInvalid
	}
	if scheduledAt.Before(time.Now()) {
		return nil, ErrScheduleInvalid
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

	request, project, err := s.lockRequest(ctx, txRepo, requestID)
	if err != nil {
		return nil, err
	}
	// staff_verified 首次排期，scheduled 改期；其余状态一律拒绝
	if request.Status != model.DefenseStatusStaffVerified && request.Status != model.DefenseStatusScheduled {
		return nil, ErrDefenseState
	}

	request.Status = model.DefenseStatusScheduled
	request.ScheduledAt = &scheduledAt
	request.Location = req.Location
	request.UpdatedBy = &staffID
	if err := txRepo.DefenseRequest.Update(ctx, request); err != nil {
		return nil, err
	}

	resp, err := s.finishDefenseTx(ctx, tx, txRepo, &committed, request.ProjectID, requestID)
	if err != nil {
		return nil, err
	}

	s.notifySchedule(ctx, project, request)
	return resp, nil
}

// notifySchedule 排期后尽力投递日历邀请，失败不回滚排期
func (s *defenseService) notifySchedule(ctx context.Context, project *model.Project, request *model.DefenseRequest) {
	if s.notifier == nil {
		return
	}
	invite, err := buildDefenseInvite(project, request)
	if err != nil {
		s.logger.Warn("生成日历邀请失败",
			zap.String("request_id", request.RequestID), zap.Error(err))
		return
	}
	recipients := make([]string, 0, len(project.Members)+1)
	for i := range project.Members {
		if project.Members[i].Student != nil && project.Members[i].Student.Email != "" {
			recipients = append(recipients, project.Members[i].Student.Email)
		}
	}
	if project.Advisor != nil && project.Advisor.Email != "" {
		recipients = append(recipients, project.Advisor.Email)
	}
	if len(recipients) == 0 {
		return
	}
	_ = s.notifier.Notify(ctx, &Notification{
		Recipients: recipients,
		Subject:    fmt.Sprintf("กำหนดการสอบ %s", request.DefenseType),
		Body: fmt.Sprintf("การสอบถูกกำหนดเวลา %s ณ %s",
			request.ScheduledAt.Format(time.RFC3339), request.Location),
		ICSInvite: invite,
	})
}

// ────────────────────── Cancel ──────────────────────

// Cancel 撤销申请（提交者或系办）。终态申请不可撤销
func (s *defenseService) Cancel(ctx context.Context, actorID, actorRole, requestID string) (*dto.DefenseRequestResponse, error) {
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

	request, _, err := s.lockRequest(ctx, txRepo, requestID)
	if err != nil {
		return nil, err
	}
	isStaff := actorRole == model.RoleStaff || actorRole == model.RoleAdmin
	if request.SubmittedBy != actorID && !isStaff {
		return nil, ErrDefenseForbidden
	}
	if request.IsTerminal() {
		return nil, ErrDefenseState
	}

	now := time.Now()
	request.Status = model.DefenseStatusCancelled
	request.CancelledAt = &now
	request.UpdatedBy = &actorID
	if err := txRepo.DefenseRequest.Update(ctx, request); err != nil {
		return nil, err
	}

	return s.finishDefenseTx(ctx, tx, txRepo, &committed, request.ProjectID, requestID)
}

// ────────────────────── 查询 ──────────────────────

func (s *defenseService) Get(ctx context.Context, requestID string) (*dto.DefenseRequestResponse, error) {
	request, err := s.repo.DefenseRequest.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDefenseNotFound
		}
		return nil, err
	}
	return ptrDefenseResponse(request), nil
}

// ── 内部辅助 ──

// lockRequest 按固定顺序锁定项目与申请行
func (s *defenseService) lockRequest(ctx context.Context, repo *repository.Repository, requestID string) (*model.DefenseRequest, *model.Project, error) {
	request, err := repo.DefenseRequest.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrDefenseNotFound
		}
		return nil, nil, err
	}

	project, err := repo.Project.GetByIDForUpdate(ctx, request.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProjectNotFound
		}
		return nil, nil, err
	}

	// 持项目锁后重读申请行并加锁，拿到最新版本号
	request, err = repo.DefenseRequest.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrDefenseNotFound
		}
		return nil, nil, err
	}
	return request, project, nil
}

// finishDefenseTx 同步派生状态、提交事务并返回申请最新视图
func (s *defenseService) finishDefenseTx(
	ctx context.Context,
	tx *gorm.DB,
	txRepo *repository.Repository,
	committed *bool,
	projectID, requestID string,
) (*dto.DefenseRequestResponse, error) {
	if err := s.workflow.SyncProject(ctx, txRepo, projectID); err != nil {
		return nil, err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, fmt.Errorf("提交事务失败: %w", err)
		}
	}
	*committed = true
	return s.Get(ctx, requestID)
}

func ptrDefenseResponse(r *model.DefenseRequest) *dto.DefenseRequestResponse {
	resp := toDefenseRequestResponse(r)
	return &resp
}
