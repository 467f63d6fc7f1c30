package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

// MeetingRepository 指导会议数据访问接口
type MeetingRepository interface {
	Create(ctx context.Context, meeting *model.Meeting) error
	GetByID(ctx context.Context, id string) (*model.Meeting, error)
	// ListByProject 列出项目会议，phases 为空时不按阶段过滤
	ListByProject(ctx context.Context, projectID string, phases ...string) ([]model.Meeting, error)
}

// ParticipantRepository 会议出席数据访问接口
type ParticipantRepository interface {
	BatchCreate(ctx context.Context, participants []model.MeetingParticipant) error
	Upsert(ctx context.Context, participant *model.MeetingParticipant) error
	// ListAttending 列出指定会议中指定用户的非缺席出席记录
	ListAttending(ctx context.Context, meetingIDs, userIDs []string) ([]model.MeetingParticipant, error)
}

// MeetingLogRepository 会议记录数据访问接口
type MeetingLogRepository interface {
	Create(ctx context.Context, log *model.MeetingLog) error
	GetByID(ctx context.Context, id string) (*model.MeetingLog, error)
	Update(ctx context.Context, log *model.MeetingLog) error
	// ListApprovedByMeetings 按批准时间倒序列出已批准的会议记录
	ListApprovedByMeetings(ctx context.Context, meetingIDs []string) ([]model.MeetingLog, error)
	ListByMeeting(ctx context.Context, meetingID string) ([]model.MeetingLog, error)
}

// ── Meeting Repository 实现 ──

type meetingRepo struct {
	db *gorm.DB
}

// NewMeetingRepo 创建 MeetingRepository 实例
func NewMeetingRepo(db *gorm.DB) MeetingRepository {
	return &meetingRepo{db: db}
}

func (r *meetingRepo) Create(ctx context.Context, meeting *model.Meeting) error {
	return r.db.WithContext(ctx).Create(meeting).Error
}

func (r *meetingRepo) GetByID(ctx context.Context, id string) (*model.Meeting, error) {
	var meeting model.Meeting
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Logs").
		Where("meeting_id = ?", id).
		First(&meeting).Error
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *meetingRepo) ListByProject(ctx context.Context, projectID string, phases ...string) ([]model.Meeting, error) {
	var meetings []model.Meeting
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if len(phases) > 0 {
		q = q.Where("phase IN ?", phases)
	}
	err := q.Order("meeting_at ASC").Find(&meetings).Error
	return meetings, err
}

// ── Participant Repository 实现 ──

type participantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo 创建 ParticipantRepository 实例
func NewParticipantRepo(db *gorm.DB) ParticipantRepository {
	return &participantRepo{db: db}
}

func (r *participantRepo) BatchCreate(ctx context.Context, participants []model.MeetingParticipant) error {
	if len(participants) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&participants).Error
}

func (r *participantRepo) Upsert(ctx context.Context, participant *model.MeetingParticipant) error {
	return r.db.WithContext(ctx).
		Where("meeting_id = ? AND user_id = ?", participant.MeetingID, participant.UserID).
		Assign(map[string]interface{}{"attendance_status": participant.AttendanceStatus}).
		FirstOrCreate(participant).Error
}

func (r *participantRepo) ListAttending(ctx context.Context, meetingIDs, userIDs []string) ([]model.MeetingParticipant, error) {
	var participants []model.MeetingParticipant
	if len(meetingIDs) == 0 || len(userIDs) == 0 {
		return participants, nil
	}
	err := r.db.WithContext(ctx).
		Where("meeting_id IN ?", meetingIDs).
		Where("user_id IN ?", userIDs).
		Where("attendance_status != ?", model.AttendanceAbsent).
		Find(&participants).Error
	return participants, err
}

// ── MeetingLog Repository 实现 ──

type meetingLogRepo struct {
	db *gorm.DB
}

// NewMeetingLogRepo 创建 MeetingLogRepository 实例
func NewMeetingLogRepo(db *gorm.DB) MeetingLogRepository {
	return &meetingLogRepo{db: db}
}

func (r *meetingLogRepo) Create(ctx context.Context, log *model.MeetingLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *meetingLogRepo) GetByID(ctx context.Context, id string) (*model.MeetingLog, error) {
	var log model.MeetingLog
	err := r.db.WithContext(ctx).
		Where("log_id = ?", id).
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *meetingLogRepo) Update(ctx context.Context, log *model.MeetingLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

func (r *meetingLogRepo) ListApprovedByMeetings(ctx context.Context, meetingIDs []string) ([]model.MeetingLog, error) {
	var logs []model.MeetingLog
	if len(meetingIDs) == 0 {
		return logs, nil
	}
	err := r.db.WithContext(ctx).
		Where("meeting_id IN ?", meetingIDs).
		Where("approval_status = ?", model.LogApprovalApproved).
		Order("approved_at DESC").
		Find(&logs).Error
	return logs, err
}

func (r *meetingLogRepo) ListByMeeting(ctx context.Context, meetingID string) ([]model.MeetingLog, error) {
	var logs []model.MeetingLog
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
