package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

func TestSyncProject_LazyCreatesActivity(t *testing.T) {
	store := newMemStore()
	repo := newTestRepo(store)

	advisor := store.addUser("อ.สมชาย", "T001", model.RoleAdvisor)
	s1 := store.addUser("นักศึกษา A", "64001", model.RoleStudent)
	s2 := store.addUser("นักศึกษา B", "64002", model.RoleStudent)
	project := store.addProject(model.ProjectStatusInProgress, &advisor.UserID)
	store.addMember(project.ProjectID, s1.UserID, model.MemberRoleLeader)
	store.addMember(project.ProjectID, s2.UserID, model.MemberRoleMember)

	wf := NewWorkflowService(repo, testLogger())
	if err := wf.SyncProject(context.Background(), repo, project.ProjectID); err != nil {
		t.Fatalf("同步失败: %v", err)
	}

	if len(store.activities) != 2 {
		t.Fatalf("期望 2 条工作流活动，实际=%d", len(store.activities))
	}
	for _, a := range store.activities {
		if a.WorkflowType != model.WorkflowTypeProject1 {
			t.Errorf("期望工作流类型 %s，实际=%s", model.WorkflowTypeProject1, a.WorkflowType)
		}
		if a.CurrentStepKey != model.StepProgressCheckIns {
			t.Errorf("期望当前步骤 %s，实际=%s", model.StepProgressCheckIns, a.CurrentStepKey)
		}
	}

	// 冗余标记同步到学生
	student, _ := repo.User.GetByID(context.Background(), s1.UserID)
	if !student.ProjectEnrolled {
		t.Error("期望学生标记为 enrolled")
	}
	if student.ProjectLifecycleStatus != model.LifecycleInProgress {
		t.Errorf("期望生命周期 %s，实际=%s", model.LifecycleInProgress, student.ProjectLifecycleStatus)
	}
}

func TestSyncProject_Idempotent(t *testing.T) {
	store := newMemStore()
	repo := newTestRepo(store)

	advisor := store.addUser("อ.สมชาย", "T001", model.RoleAdvisor)
	s1 := store.addUser("นักศึกษา A", "64001", model.RoleStudent)
	project := store.addProject(model.ProjectStatusInProgress, &advisor.UserID)
	store.addMember(project.ProjectID, s1.UserID, model.MemberRoleLeader)
	store.addApprovedLogs(project.ProjectID, advisor.UserID, s1.UserID, model.PhaseOne, 2)

	wf := NewWorkflowService(repo, testLogger())
	if err := wf.SyncProject(context.Background(), repo, project.ProjectID); err != nil {
		t.Fatalf("首次同步失败: %v", err)
	}

	first := *store.activities[0]

	if err := wf.SyncProject(context.Background(), repo, project.ProjectID); err != nil {
		t.Fatalf("二次同步失败: %v", err)
	}

	if len(store.activities) != 1 {
		t.Fatalf("重复同步不应新增行，实际=%d", len(store.activities))
	}
	second := *store.activities[0]
	if first.CurrentStepKey != second.CurrentStepKey ||
		first.CurrentStepStatus != second.CurrentStepStatus ||
		first.OverallWorkflowStatus != second.OverallWorkflowStatus ||
		!bytes.Equal(first.DataPayload, second.DataPayload) {
		t.Error("无变更的重复同步改变了活动行内容")
	}
}

func TestSyncProject_UpdatesAfterStateChange(t *testing.T) {
	store := newMemStore()
	repo := newTestRepo(store)

	advisor := store.addUser("อ.สมชาย", "T001", model.RoleAdvisor)
	s1 := store.addUser("นักศึกษา A", "64001", model.RoleStudent)
	project := store.addProject(model.ProjectStatusInProgress, &advisor.UserID)
	store.addMember(project.ProjectID, s1.UserID, model.MemberRoleLeader)

	wf := NewWorkflowService(repo, testLogger())
	if err := wf.SyncProject(context.Background(), repo, project.ProjectID); err != nil {
		t.Fatalf("同步失败: %v", err)
	}
	if store.activities[0].CurrentStepKey != model.StepProgressCheckIns {
		t.Fatalf("前置状态不符: %s", store.activities[0].CurrentStepKey)
	}

	// 积累记录后重新同步，步骤应前移
	store.addApprovedLogs(project.ProjectID, advisor.UserID, s1.UserID, model.PhaseOne, readinessLogThreshold)
	if err := wf.SyncProject(context.Background(), repo, project.ProjectID); err != nil {
		t.Fatalf("同步失败: %v", err)
	}

	if store.activities[0].CurrentStepKey != model.StepDefenseRequest {
		t.Errorf("期望步骤前移到 %s，实际=%s", model.StepDefenseRequest, store.activities[0].CurrentStepKey)
	}
}

func TestGetStudentActivities(t *testing.T) {
	store := newMemStore()
	repo := newTestRepo(store)

	advisor := store.addUser("อ.สมชาย", "T001", model.RoleAdvisor)
	s1 := store.addUser("นักศึกษา A", "64001", model.RoleStudent)
	project := store.addProject(model.ProjectStatusInProgress, &advisor.UserID)
	store.addMember(project.ProjectID, s1.UserID, model.MemberRoleLeader)

	wf := NewWorkflowService(repo, testLogger())
	if err := wf.SyncProject(context.Background(), repo, project.ProjectID); err != nil {
		t.Fatalf("同步失败: %v", err)
	}

	activities, err := wf.GetStudentActivities(context.Background(), s1.UserID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("期望 1 条活动，实际=%d", len(activities))
	}
	if activities[0].DataPayload["project_id"] != project.ProjectID {
		t.Errorf("载荷缺少项目标识: %v", activities[0].DataPayload)
	}
}
