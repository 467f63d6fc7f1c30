package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
	"github.com/Manchinn/CSLogbook-sub002/internal/repository"
)

// StudentMeetingMetrics 单个学生的会议统计
type StudentMeetingMetrics struct {
	ApprovedLogs     int
	AttendedMeetings int
}

// MeetingMetrics 项目级会议统计聚合结果
type MeetingMetrics struct {
	TotalMeetings     int
	TotalApprovedLogs int
	LastApprovedLogAt *time.Time
	PerStudent        map[string]StudentMeetingMetrics
}

// MeetingMetricsAggregator 会议统计聚合器 — 纯读取聚合，不做任何变更。
// 读取失败时返回零值统计而非报错：状态计算必须在部分数据下继续，
// 不能让整条写路径因统计读取失败而中断（降级记入日志）。
type MeetingMetricsAggregator struct {
	logger *zap.Logger
}

// NewMeetingMetricsAggregator 创建会议统计聚合器
func NewMeetingMetricsAggregator(logger *zap.Logger) *MeetingMetricsAggregator {
	return &MeetingMetricsAggregator{logger: logger}
}

// Aggregate 聚合项目的会议统计，phases 为空时统计全部阶段。
// repo 应为调用方事务内的 Repository，保证读到未提交的本事务写入。
func (a *MeetingMetricsAggregator) Aggregate(
	ctx context.Context,
	repo *repository.Repository,
	projectID string,
	members []model.ProjectMember,
	phases ...string,
) *MeetingMetrics {
	metrics := zeroMetrics(members)

	// 1. 成员账号标识
	studentIDs := make([]string, 0, len(members))
	for _, m := range members {
		studentIDs = append(studentIDs, m.StudentID)
	}
	if len(studentIDs) == 0 {
		return metrics
	}

	// 2. 项目会议（可按阶段过滤）
	meetings, err := repo.Meeting.ListByProject(ctx, projectID, phases...)
	if err != nil {
		a.logger.Warn("会议统计降级：查询会议失败",
			zap.String("project_id", projectID), zap.Error(err))
		return metrics
	}
	metrics.TotalMeetings = len(meetings)
	if len(meetings) == 0 {
		return metrics
	}

	meetingIDs := make([]string, 0, len(meetings))
	for _, m := range meetings {
		meetingIDs = append(meetingIDs, m.MeetingID)
	}

	// 3. 出席记录（排除 absent）
	attending, err := repo.Participant.ListAttending(ctx, meetingIDs, studentIDs)
	if err != nil {
		a.logger.Warn("会议统计降级：查询出席记录失败",
			zap.String("project_id", projectID), zap.Error(err))
		return zeroMetrics(members)
	}

	// 4. 会议 → 出席学生索引
	attendIndex := make(map[string][]string, len(meetings))
	for _, p := range attending {
		attendIndex[p.MeetingID] = append(attendIndex[p.MeetingID], p.UserID)
		sm := metrics.PerStudent[p.UserID]
		sm.AttendedMeetings++
		metrics.PerStudent[p.UserID] = sm
	}

	// 5. 已批准记录（按批准时间倒序）
	logs, err := repo.MeetingLog.ListApprovedByMeetings(ctx, meetingIDs)
	if err != nil {
		a.logger.Warn("会议统计降级：查询会议记录失败",
			zap.String("project_id", projectID), zap.Error(err))
		return zeroMetrics(members)
	}
	metrics.TotalApprovedLogs = len(logs)
	if len(logs) > 0 {
		metrics.LastApprovedLogAt = logs[0].ApprovedAt
	}

	// 6. 每条已批准记录为出席其会议的学生各计一次
	//    记录只对出席该会议的学生生效
	for _, log := range logs {
		for _, studentID := range attendIndex[log.MeetingID] {
			sm := metrics.PerStudent[studentID]
			sm.ApprovedLogs++
			metrics.PerStudent[studentID] = sm
		}
	}

	return metrics
}

// zeroMetrics 构造零值统计（所有成员都有条目，计数为零）
func zeroMetrics(members []model.ProjectMember) *MeetingMetrics {
	per := make(map[string]StudentMeetingMetrics, len(members))
	for _, m := range members {
		per[m.StudentID] = StudentMeetingMetrics{}
	}
	return &MeetingMetrics{PerStudent: per}
}
