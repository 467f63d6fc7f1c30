package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Manchinn/CSLogbook-sub002/internal/dto"
	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

func newMeetingService(store *memStore) MeetingService {
	repo := newTestRepo(store)
	wf := NewWorkflowService(repo, testLogger())
	return NewMeetingService(repo, wf, testLogger())
}

func meetingFixture(store *memStore) (advisor, s1, s2 *model.User, project *model.Project) {
	advisor = store.addUser("อ.สมชาย", "T001", model.RoleAdvisor)
	s1 = store.addUser("นักศึกษา A", "64001", model.RoleStudent)
	s2 = store.addUser("นักศึกษา B", "64002", model.RoleStudent)
	project = store.addProject(model.ProjectStatusInProgress, &advisor.UserID)
	store.addMember(project.ProjectID, s1.UserID, model.MemberRoleLeader)
	store.addMember(project.ProjectID, s2.UserID, model.MemberRoleMember)
	return
}

func TestCreateMeeting_DefaultsToAllMembers(t *testing.T) {
	store := newMemStore()
	svc := newMeetingService(store)
	advisor, _, _, project := meetingFixture(store)

	resp, err := svc.CreateMeeting(context.Background(), advisor.UserID, &dto.CreateMeetingRequest{
		ProjectID: project.ProjectID,
		Phase:     model.PhaseOne,
		Topic:     "วางแผนโครงงาน",
		MeetingAt: time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("创建会议失败: %v", err)
	}
	if len(resp.Participants) != 2 {
		t.Errorf("期望默认全员参会，实际=%d", len(resp.Participants))
	}
	for _, p := range resp.Participants {
		if p.AttendanceStatus != model.AttendancePresent {
			t.Errorf("期望默认出席状态 present，实际=%s", p.AttendanceStatus)
		}
	}
}

func TestCreateMeeting_OnlyProjectAdvisor(t *testing.T) {
	store := newMemStore()
	svc := newMeetingService(store)
	_, _, _, project := meetingFixture(store)
	other := store.addUser("อ.อื่น", "T002", model.RoleAdvisor)

	_, err := svc.CreateMeeting(context.Background(), other.UserID, &dto.CreateMeetingRequest{
		ProjectID: project.ProjectID,
		Phase:     model.PhaseOne,
		Topic:     "วางแผนโครงงาน",
		MeetingAt: time.Now().Format(time.RFC3339),
	})
	if !errors.Is(err, ErrMeetingForbidden) {
		t.Errorf("期望 ErrMeetingForbidden，实际=%v", err)
	}
}

func TestSubmitLog_RequiresAttendance(t *testing.T) {
	store := newMemStore()
	svc := newMeetingService(store)
	advisor, s1, s2, project := meetingFixture(store)

	meeting, err := svc.CreateMeeting(context.Background(), advisor.UserID, &dto.CreateMeetingRequest{
		ProjectID: project.ProjectID,
		Phase:     model.PhaseOne,
		Topic:     "ติดตามความคืบหน้า",
		MeetingAt: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("创建会议失败: %v", err)
	}

	// s2 记为缺席后不能提交记录
	if _, err := svc.RecordAttendance(context.Background(), advisor.UserID, meeting.MeetingID,
		&dto.RecordAttendanceRequest{Attendances: []dto.AttendanceInput{
			{UserID: s2.UserID, Status: model.AttendanceAbsent},
		}}); err != nil {
		t.Fatalf("记录出席失败: %v", err)
	}

	_, err = svc.SubmitLog(context.Background(), s2.UserID, meeting.MeetingID,
		&dto.SubmitMeetingLogRequest{Content: "บันทึกการประชุมประจำสัปดาห์"})
	if !errors.Is(err, ErrMeetingForbidden) {
		t.Errorf("缺席学生提交应被拒绝，实际=%v", err)
	}

	log, err := svc.SubmitLog(context.Background(), s1.UserID, meeting.MeetingID,
		&dto.SubmitMeetingLogRequest{Content: "บันทึกการประชุมประจำสัปดาห์"})
	if err != nil {
		t.Fatalf("提交记录失败: %v", err)
	}
	if log.ApprovalStatus != model.LogApprovalPending {
		t.Errorf("期望初始状态 pending，实际=%s", log.ApprovalStatus)
	}
}

func TestApproveLog_TriggersSync(t *testing.T) {
	store := newMemStore()
	svc := newMeetingService(store)
	advisor, s1, _, project := meetingFixture(store)

	meeting, _ := svc.CreateMeeting(context.Background(), advisor.UserID, &dto.CreateMeetingRequest{
		ProjectID: project.ProjectID,
		Phase:     model.PhaseOne,
		Topic:     "ติดตามความคืบหน้า",
		MeetingAt: time.Now().Format(time.RFC3339),
	})
	log, err := svc.SubmitLog(context.Background(), s1.UserID, meeting.MeetingID,
		&dto.SubmitMeetingLogRequest{Content: "บันทึกการประชุมประจำสัปดาห์"})
	if err != nil {
		t.Fatalf("提交记录失败: %v", err)
	}

	// 其他导师不能批准
	other := store.addUser("อ.อื่น", "T002", model.RoleAdvisor)
	if _, err := svc.ApproveLog(context.Background(), other.UserID, log.LogID); !errors.Is(err, ErrMeetingForbidden) {
		t.Errorf("期望 ErrMeetingForbidden，实际=%v", err)
	}

	approved, err := svc.ApproveLog(context.Background(), advisor.UserID, log.LogID)
	if err != nil {
		t.Fatalf("批准失败: %v", err)
	}
	if approved.ApprovalStatus != model.LogApprovalApproved || approved.ApprovedAt == "" {
		t.Errorf("期望 approved 带批准时间，实际 status=%s approved_at=%q",
			approved.ApprovalStatus, approved.ApprovedAt)
	}

	// 批准触发派生状态重算：首条记录应推进 leader 步骤
	for _, a := range store.activities {
		if a.StudentID == s1.UserID && a.CurrentStepKey != model.StepReadinessReview {
			t.Errorf("期望 leader 步骤前移到 %s，实际=%s", model.StepReadinessReview, a.CurrentStepKey)
		}
	}

	// 重复批准
	if _, err := svc.ApproveLog(context.Background(), advisor.UserID, log.LogID); !errors.Is(err, ErrLogState) {
		t.Errorf("期望 ErrLogState，实际=%v", err)
	}
}
