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
	ErrMeetingNotFound  = errors.New("会议不存在")
	ErrMeetingForbidden = errors.New("没有权限操作该会议")
	ErrMeetingInvalid   = errors.New("会议参数无效")
	ErrLogNotFound      = errors.New("会议记录不存在")
	ErrLogState         = errors.New("会议记录当前状态不允许该操作")
)

// MeetingService 指导会议服务接口
type MeetingService interface {
	CreateMeeting(ctx context.Context, advisorID string, req *dto.CreateMeetingRequest) (*dto.MeetingResponse, error)
	RecordAttendance(ctx context.Context, advisorID, meetingID string, req *dto.RecordAttendanceRequest) (*dto.MeetingResponse, error)
	SubmitLog(ctx context.Context, studentID, meetingID string, req *dto.SubmitMeetingLogRequest) (*dto.MeetingLogResponse, error)
	ApproveLog(ctx context.Context, advisorID, logID string) (*dto.MeetingLogResponse, error)
	GetMeeting(ctx context.Context, meetingID string) (*dto.MeetingResponse, error)
	ListByProject(ctx context.Context, projectID string) ([]dto.MeetingResponse, error)
}

type meetingService struct {
	repo     *repository.Repository
	workflow WorkflowService
	logger   *zap.Logger
}

// NewMeetingService 创建 MeetingService 实例
func NewMeetingService(repo *repository.Repository, workflow WorkflowService, logger *zap.Logger) MeetingService {
	return &meetingService{repo: repo, workflow: workflow, logger: logger}
}

// ────────────────────── CreateMeeting ──────────────────────

// CreateMeeting 项目导师创建指导会议，参会人默认出席
func (s *meetingService) CreateMeeting(ctx context.Context, advisorID string, req *dto.CreateMeetingRequest) (*dto.MeetingResponse, error) {
	meetingAt, err := time.Parse(time.RFC3339, req.MeetingAt)
	if err != nil {
		return nil, ErrMeetingInvalid
	}

	project, err := s.repo.Project.GetByID(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if project.AdvisorID == nil || *project.AdvisorID != advisorID {
		return nil, ErrMeetingForbidden
	}
	if !project.IsActive() {
		return nil, ErrProjectState
	}

	// 未指定参会人时默认全体成员
	participantIDs := req.ParticipantIDs
	if len(participantIDs) == 0 {
		for i := range project.Members {
			participantIDs = append(participantIDs, project.Members[i].StudentID)
		}
	}
	for _, id := range participantIDs {
		if project.MemberOf(id) == nil {
			return nil, ErrMeetingInvalid
		}
	}

	meeting := &model.Meeting{
		ProjectID: req.ProjectID,
		Phase:     req.Phase,
		Topic:     req.Topic,
		MeetingAt: meetingAt,
		AdvisorID: advisorID,
	}
	meeting.CreatedBy = &advisorID
	if err := s.repo.Meeting.Create(ctx, meeting); err != nil {
		return nil, fmt.Errorf("创建会议失败: %w", err)
	}

	participants := make([]model.MeetingParticipant, 0, len(participantIDs))
	for _, id := range participantIDs {
		participants = append(participants, model.MeetingParticipant{
			MeetingID:        meeting.MeetingID,
			UserID:           id,
			AttendanceStatus: model.AttendancePresent,
		})
	}
	if err := s.repo.Participant.BatchCreate(ctx, participants); err != nil {
		return nil, fmt.Errorf("创建出席记录失败: %w", err)
	}

	s.logger.Info("指导会议创建成功",
		zap.String("meeting_id", meeting.MeetingID),
		zap.String("project_id", req.ProjectID))
	return s.GetMeeting(ctx, meeting.MeetingID)
}

// ────────────────────── RecordAttendance ──────────────────────

// RecordAttendance 导师记录实际出席情况。
// 出席状态影响会议统计，在事务内连带重算派生状态
func (s *meetingService) RecordAttendance(ctx context.Context, advisorID, meetingID string, req *dto.RecordAttendanceRequest) (*dto.MeetingResponse, error) {
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

	meeting, err := txRepo.Meeting.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	if meeting.AdvisorID != advisorID {
		return nil, ErrMeetingForbidden
	}

	for _, a := range req.Attendances {
		participant := &model.MeetingParticipant{
			MeetingID:        meetingID,
			UserID:           a.UserID,
			AttendanceStatus: a.Status,
		}
		if err := txRepo.Participant.Upsert(ctx, participant); err != nil {
			return nil, fmt.Errorf("更新出席记录失败: %w", err)
		}
	}

	if err := s.workflow.SyncProject(ctx, txRepo, meeting.ProjectID); err != nil {
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, fmt.Errorf("提交事务失败: %w", err)
		}
	}
	committed = true
	return s.GetMeeting(ctx, meetingID)
}

// ────────────────────── SubmitLog ──────────────────────

// SubmitLog 学生提交会议记录，等待导师批准。
// pending 记录不计入统计，无需触发同步
func (s *meetingService) SubmitLog(ctx context.Context, studentID, meetingID string, req *dto.SubmitMeetingLogRequest) (*dto.MeetingLogResponse, error) {
	meeting, err := s.repo.Meeting.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}

	// 只有非缺席的参会学生能提交记录
	attended := false
	for i := range meeting.Participants {
		p := &meeting.Participants[i]
		if p.UserID == studentID && p.AttendanceStatus != model.AttendanceAbsent {
			attended = true
			break
		}
	}
	if !attended {
		return nil, ErrMeetingForbidden
	}

	log := &model.MeetingLog{
		MeetingID:      meetingID,
		Content:        req.Content,
		ApprovalStatus: model.LogApprovalPending,
		SubmittedBy:    studentID,
	}
	log.CreatedBy = &studentID
	if err := s.repo.MeetingLog.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("创建会议记录失败: %w", err)
	}

	resp := toMeetingLogResponse(log)
	return &resp, nil
}

// ────────────────────── ApproveLog ──────────────────────

// ApproveLog 导师批准会议记录。
// 批准改变就绪统计，必须在同一事务内重算派生状态
func (s *meetingService) ApproveLog(ctx context.Context, advisorID, logID string) (*dto.MeetingLogResponse, error) {
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

	log, err := txRepo.MeetingLog.GetByID(ctx, logID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	if log.ApprovalStatus == model.LogApprovalApproved {
		return nil, ErrLogState
	}

	meeting, err := txRepo.Meeting.GetByID(ctx, log.MeetingID)
	if err != nil {
		return nil, fmt.Errorf("加载会议失败: %w", err)
	}
	if meeting.AdvisorID != advisorID {
		return nil, ErrMeetingForbidden
	}

	now := time.Now()
	log.ApprovalStatus = model.LogApprovalApproved
	log.ApprovedAt = &now
	log.ApprovedBy = &advisorID
	log.UpdatedBy = &advisorID
	if err := txRepo.MeetingLog.Update(ctx, log); err != nil {
		return nil, fmt.Errorf("更新会议记录失败: %w", err)
	}

	if err := s.workflow.SyncProject(ctx, txRepo, meeting.ProjectID); err != nil {
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, fmt.Errorf("提交事务失败: %w", err)
		}
	}
	committed = true

	resp := toMeetingLogResponse(log)
	return &resp, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *meetingService) GetMeeting(ctx context.Context, meetingID string) (*dto.MeetingResponse, error) {
	meeting, err := s.repo.Meeting.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	return toMeetingResponse(meeting), nil
}

func (s *meetingService) ListByProject(ctx context.Context, projectID string) ([]dto.MeetingResponse, error) {
	meetings, err := s.repo.Meeting.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.MeetingResponse, 0, len(meetings))
	for i := range meetings {
		result = append(result, *toMeetingResponse(&meetings[i]))
	}
	return result, nil
}
