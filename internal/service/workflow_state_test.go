package service

import (
	"testing"
	"time"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

func metricsWith(studentID string, approvedLogs, attended int) *MeetingMetrics {
	return &MeetingMetrics{
		TotalMeetings:     attended,
		TotalApprovedLogs: approvedLogs,
		PerStudent: map[string]StudentMeetingMetrics{
			studentID: {ApprovedLogs: approvedLogs, AttendedMeetings: attended},
		},
	}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func twoMemberProject(status string) (*model.Project, *model.ProjectMember) {
	leader := model.ProjectMember{MemberID: "m1", ProjectID: "p1", StudentID: "s1", Role: model.MemberRoleLeader}
	member := model.ProjectMember{MemberID: "m2", ProjectID: "p1", StudentID: "s2", Role: model.MemberRoleMember}
	project := &model.Project{
		ProjectID: "p1",
		TitleTH:   "ระบบทดสอบ",
		TitleEN:   "Test System",
		Status:    status,
		Members:   []model.ProjectMember{leader, member},
	}
	return project, &project.Members[0]
}

func TestComputeWorkflowState_SingleMemberNoTitles(t *testing.T) {
	project := &model.Project{
		ProjectID: "p1",
		Status:    model.ProjectStatusDraft,
		Members: []model.ProjectMember{
			{MemberID: "m1", ProjectID: "p1", StudentID: "s1", Role: model.MemberRoleLeader},
		},
	}
	state := ComputeWorkflowState(project, &project.Members[0], metricsWith("s1", 0, 0))

	if state.CurrentStepKey != model.StepTeamReady {
		t.Errorf("期望当前步骤 %s，实际=%s", model.StepTeamReady, state.CurrentStepKey)
	}
	if state.CurrentStepStatus != model.StepStatusAwaitingStudent {
		t.Errorf("期望步骤状态 %s，实际=%s", model.StepStatusAwaitingStudent, state.CurrentStepStatus)
	}
	if state.OverallStatus != model.OverallNotStarted {
		t.Errorf("期望整体状态 %s，实际=%s", model.OverallNotStarted, state.OverallStatus)
	}
	if state.StudentLifecycleStatus != model.LifecycleNotStarted {
		t.Errorf("期望生命周期 %s，实际=%s", model.LifecycleNotStarted, state.StudentLifecycleStatus)
	}
}

func TestComputeWorkflowState_TeamReadyDraft(t *testing.T) {
	project, leader := twoMemberProject(model.ProjectStatusDraft)
	state := ComputeWorkflowState(project, leader, metricsWith("s1", 0, 0))

	// 团队就绪但项目未进入实作：当前步骤停在 in-progress
	if state.CurrentStepKey != model.StepInProgress {
		t.Errorf("期望当前步骤 %s，实际=%s", model.StepInProgress, state.CurrentStepKey)
	}
	if state.OverallStatus != model.OverallInProgress {
		t.Errorf("期望整体状态 %s，实际=%s", model.OverallInProgress, state.OverallStatus)
	}
}

func TestComputeWorkflowState_InProgressNoLogs(t *testing.T) {
	project, leader := twoMemberProject(model.ProjectStatusInProgress)
	state := ComputeWorkflowState(project, leader, metricsWith("s1", 0, 0))

	if state.CurrentStepKey != model.StepProgressCheckIns {
		t.Errorf("期望当前步骤 %s，实际=%s", model.StepProgressCheckIns, state.CurrentStepKey)
	}
	if state.CurrentStepStatus != model.StepStatusInProgress {
		t.Errorf("期望步骤状态 %s，实际=%s", model.StepStatusInProgress, state.CurrentStepStatus)
	}
	if !state.IsEnrolled {
		t.Error("期望 IsEnrolled=true")
	}
}

func TestComputeWorkflowState_OrderedScanNoSkipping(t *testing.T) {
	// 记录数已达门槛但项目还在 draft：不能越过 in-progress 步骤
	project, leader := twoMemberProject(model.ProjectStatusDraft)
	state := ComputeWorkflowState(project, leader, metricsWith("s1", readinessLogThreshold, readinessLogThreshold))

	if state.CurrentStepKey != model.StepInProgress {
		t.Errorf("顺序扫描被跳过：期望 %s，实际=%s", model.StepInProgress, state.CurrentStepKey)
	}
}

func TestComputeWorkflowState_ReadinessThenDefenseRequest(t *testing.T) {
	project, leader := twoMemberProject(model.ProjectStatusInProgress)

	state := ComputeWorkflowState(project, leader, metricsWith("s1", readinessLogThreshold-1, 5))
	if state.CurrentStepKey != model.StepReadinessReview {
		t.Errorf("期望当前步骤 %s，实际=%s", model.StepReadinessReview, state.CurrentStepKey)
	}

	state = ComputeWorkflowState(project, leader, metricsWith("s1", readinessLogThreshold, 5))
	if state.CurrentStepKey != model.StepDefenseRequest {
		t.Errorf("期望当前步骤 %s，实际=%s", model.StepDefenseRequest, state.CurrentStepKey)
	}
	if state.CurrentStepStatus != model.StepStatusAwaitingStudent {
		t.Errorf("期望步骤状态 %s，实际=%s", model.StepStatusAwaitingStudent, state.CurrentStepStatus)
	}
}

func TestComputeWorkflowState_RejectedRequestAwaitsResubmit(t *testing.T) {
	project, leader := twoMemberProject(model.ProjectStatusInProgress)
	project.DefenseRequests = []model.DefenseRequest{
		{RequestID: "d1", ProjectID: "p1", DefenseType: model.DefenseTypeProject1, Status: model.DefenseStatusAdvisorRejected},
	}
	state := ComputeWorkflowState(project, leader, metricsWith("s1", readinessLogThreshold, 5))

	// 驳回的申请不算满足：回到等待学生重新提交
	if state.CurrentStepKey != model.StepDefenseRequest {
		t.Errorf("期望当前步骤 %s，实际=%s", model.StepDefenseRequest, state.CurrentStepKey)
	}
	if state.CurrentStepStatus != model.StepStatusAwaitingStudent {
		t.Errorf("期望步骤状态 %s，实际=%s", model.StepStatusAwaitingStudent, state.CurrentStepStatus)
	}
}

func TestComputeWorkflowState_ScheduledDefense(t *testing.T) {
	project, leader := twoMemberProject(model.ProjectStatusInProgress)
	project.DefenseRequests = []model.DefenseRequest{
		{RequestID: "d1", ProjectID: "p1", DefenseType: model.DefenseTypeProject1, Status: model.DefenseStatusScheduled},
	}
	state := ComputeWorkflowState(project, leader, metricsWith("s1", readinessLogThreshold, 5))

	if state.CurrentStepKey != model.StepDefenseResult {
		t.Errorf("期望当前步骤 %s，实际=%s", model.StepDefenseResult, state.CurrentStepKey)
	}
	if state.CurrentStepStatus != model.StepStatusPending {
		t.Errorf("期望步骤状态 %s，实际=%s", model.StepStatusPending, state.CurrentStepStatus)
	}
}

func TestComputeWorkflowState_FailedUnacknowledgedBlocks(t *testing.T) {
	project, leader := twoMemberProject(model.ProjectStatusInProgress)
	project.ExamResult = strPtr(model.ProjectExamFailed)
	project.ExamResultAt = timePtr(time.Now())
	state := ComputeWorkflowState(project, leader, metricsWith("s1", readinessLogThreshold, 5))

	if state.CurrentStepKey != model.StepDefenseResult {
		t.Errorf("期望当前步骤 %s，实际=%s", model.StepDefenseResult, state.CurrentStepKey)
	}
	if state.CurrentStepStatus != model.StepStatusBlocked {
		t.Errorf("期望步骤状态 %s，实际=%s", model.StepStatusBlocked, state.CurrentStepStatus)
	}
	if state.OverallStatus != model.OverallFailed {
		t.Errorf("期望整体状态 %s，实际=%s", model.OverallFailed, state.OverallStatus)
	}
	if state.StudentLifecycleStatus != model.LifecycleFailed {
		t.Errorf("期望生命周期 %s，实际=%s", model.LifecycleFailed, state.StudentLifecycleStatus)
	}
}

func TestComputeWorkflowState_PassedAllStepsCompleted(t *testing.T) {
	project, leader := twoMemberProject(model.ProjectStatusCompleted)
	project.ExamResult = strPtr(model.ProjectExamPassed)
	project.ExamResultAt = timePtr(time.Now())
	project.DefenseRequests = []model.DefenseRequest{
		{RequestID: "d1", ProjectID: "p1", DefenseType: model.DefenseTypeProject1, Status: model.DefenseStatusCompleted},
	}
	state := ComputeWorkflowState(project, leader, metricsWith("s1", readinessLogThreshold, 5))

	if state.CurrentStepKey != model.StepDefenseResult {
		t.Errorf("期望当前步骤 %s，实际=%s", model.StepDefenseResult, state.CurrentStepKey)
	}
	if state.CurrentStepStatus != model.StepStatusCompleted {
		t.Errorf("期望步骤状态 %s，实际=%s", model.StepStatusCompleted, state.CurrentStepStatus)
	}
	if state.OverallStatus != model.OverallCompleted {
		t.Errorf("期望整体状态 %s，实际=%s", model.OverallCompleted, state.OverallStatus)
	}
	if state.StudentLifecycleStatus != model.LifecycleCompleted {
		t.Errorf("期望生命周期 %s，实际=%s", model.LifecycleCompleted, state.StudentLifecycleStatus)
	}
}

func TestComputeWorkflowState_ArchivedAfterAcknowledgedFailure(t *testing.T) {
	project, leader := twoMemberProject(model.ProjectStatusArchived)
	project.ExamResult = strPtr(model.ProjectExamFailed)
	project.StudentAcknowledgedAt = timePtr(time.Now())
	project.ArchivedAt = timePtr(time.Now())
	state := ComputeWorkflowState(project, leader, metricsWith("s1", readinessLogThreshold, 5))

	// archived 优先级最高，但生命周期仍报告 failed
	if state.OverallStatus != model.OverallArchived {
		t.Errorf("期望整体状态 %s，实际=%s", model.OverallArchived, state.OverallStatus)
	}
	if state.StudentLifecycleStatus != model.LifecycleFailed {
		t.Errorf("期望生命周期 %s，实际=%s", model.LifecycleFailed, state.StudentLifecycleStatus)
	}
	if state.IsEnrolled {
		t.Error("归档项目的成员不应标记为 enrolled")
	}
}

func TestComputeWorkflowState_Deterministic(t *testing.T) {
	project, leader := twoMemberProject(model.ProjectStatusInProgress)
	metrics := metricsWith("s1", 2, 3)

	first := ComputeWorkflowState(project, leader, metrics)
	second := ComputeWorkflowState(project, leader, metrics)

	if first.CurrentStepKey != second.CurrentStepKey ||
		first.CurrentStepStatus != second.CurrentStepStatus ||
		first.OverallStatus != second.OverallStatus {
		t.Error("同输入两次计算结果不一致")
	}
	if len(first.DataPayload) != len(second.DataPayload) {
		t.Errorf("载荷字段数不一致：%d != %d", len(first.DataPayload), len(second.DataPayload))
	}
}

func TestComputeWorkflowState_PerMemberMetrics(t *testing.T) {
	project, _ := twoMemberProject(model.ProjectStatusInProgress)
	metrics := &MeetingMetrics{
		TotalMeetings:     5,
		TotalApprovedLogs: 5,
		PerStudent: map[string]StudentMeetingMetrics{
			"s1": {ApprovedLogs: readinessLogThreshold, AttendedMeetings: 5},
			"s2": {ApprovedLogs: 1, AttendedMeetings: 2},
		},
	}

	leaderState := ComputeWorkflowState(project, &project.Members[0], metrics)
	memberState := ComputeWorkflowState(project, &project.Members[1], metrics)

	// 同一项目内各成员按各自统计独立推进
	if leaderState.CurrentStepKey != model.StepDefenseRequest {
		t.Errorf("leader 期望 %s，实际=%s", model.StepDefenseRequest, leaderState.CurrentStepKey)
	}
	if memberState.CurrentStepKey != model.StepReadinessReview {
		t.Errorf("member 期望 %s，实际=%s", model.StepReadinessReview, memberState.CurrentStepKey)
	}
}
