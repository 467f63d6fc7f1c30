package service

import (
	"time"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

// readinessLogThreshold 提交答辩申请前要求的已批准会议记录数（每阶段）
const readinessLogThreshold = 4

// WorkflowState 单个成员的规范工作流状态 — 状态计算器的输出
type WorkflowState struct {
	CurrentStepKey         string
	CurrentStepStatus      string
	OverallStatus          string
	IsEnrolled             bool
	StudentLifecycleStatus string
	DataPayload            map[string]interface{}
}

// stateInput 状态计算的全部输入，计算期间只读
type stateInput struct {
	project  *model.Project
	member   *model.ProjectMember
	student  StudentMeetingMetrics
	metrics  *MeetingMetrics
	request  *model.DefenseRequest // PROJECT1 活动申请，可能为 nil
}

// workflowStepSpec 单个步骤的定义：键、静态待办子状态、满足条件
// 待办子状态是按步骤键查表的设计决策（编码"下一步该谁行动"），不由数据推导
type workflowStepSpec struct {
	key           string
	pendingStatus string
	met           func(in *stateInput) bool
}

// workflowSteps 有序步骤表 — 首个未满足的步骤即当前步骤。
// 步骤严格顺序求值：后面的步骤即使条件成立，也不会越过前面未满足的步骤。
var workflowSteps = []workflowStepSpec{
	{
		key:           model.StepTeamReady,
		pendingStatus: model.StepStatusAwaitingStudent,
		met: func(in *stateInput) bool {
			return len(in.project.Members) >= 2 &&
				in.project.TitleTH != "" && in.project.TitleEN != ""
		},
	},
	{
		key:           model.StepInProgress,
		pendingStatus: model.StepStatusPending,
		met: func(in *stateInput) bool {
			switch in.project.Status {
			case model.ProjectStatusInProgress, model.ProjectStatusCompleted, model.ProjectStatusArchived:
				return true
			}
			return false
		},
	},
	{
		key:           model.StepProgressCheckIns,
		pendingStatus: model.StepStatusInProgress,
		met: func(in *stateInput) bool {
			return in.student.ApprovedLogs >= 1
		},
	},
	{
		key:           model.StepReadinessReview,
		pendingStatus: model.StepStatusInProgress,
		met: func(in *stateInput) bool {
			return in.student.ApprovedLogs >= readinessLogThreshold
		},
	},
	{
		key:           model.StepDefenseRequest,
		pendingStatus: model.StepStatusAwaitingStudent,
		met: func(in *stateInput) bool {
			if in.request == nil {
				return false
			}
			switch in.request.Status {
			case model.DefenseStatusSubmitted, model.DefenseStatusAdvisorApproved,
				model.DefenseStatusStaffVerified, model.DefenseStatusScheduled,
				model.DefenseStatusCompleted:
				return true
			}
			// advisor_rejected / staff_returned 回到"等待学生重新提交"
			return false
		},
	},
	{
		key:           model.StepDefenseScheduled,
		pendingStatus: model.StepStatusPending,
		met: func(in *stateInput) bool {
			if in.request == nil {
				return false
			}
			return in.request.Status == model.DefenseStatusScheduled ||
				in.request.Status == model.DefenseStatusCompleted
		},
	},
	{
		key:           model.StepDefenseResult,
		pendingStatus: model.StepStatusPending,
		met: func(in *stateInput) bool {
			if in.project.ExamResult == nil {
				return false
			}
			if *in.project.ExamResult == model.ProjectExamPassed {
				return true
			}
			return in.project.StudentAcknowledgedAt != nil
		},
	},
}

// ComputeWorkflowState 纯状态计算函数：
// (项目, 成员, 会议统计) → 规范工作流状态。无 I/O，完全确定。
func ComputeWorkflowState(project *model.Project, member *model.ProjectMember, metrics *MeetingMetrics) *WorkflowState {
	in := &stateInput{
		project: project,
		member:  member,
		student: metrics.PerStudent[member.StudentID],
		metrics: metrics,
		request: activeProject1Request(project),
	}

	stepKey, stepStatus, stepIndex := scanSteps(in)
	overall := resolveOverallStatus(in)

	state := &WorkflowState{
		CurrentStepKey:         stepKey,
		CurrentStepStatus:      stepStatus,
		OverallStatus:          overall,
		IsEnrolled:             project.Status != model.ProjectStatusArchived,
		StudentLifecycleStatus: resolveLifecycleStatus(in, overall),
	}
	state.DataPayload = buildDataPayload(in, state, stepIndex)

	return state
}

// scanSteps 顺序扫描步骤表，返回当前步骤键、状态与索引
func scanSteps(in *stateInput) (string, string, int) {
	// 考核未通过且学生未确认 → 短路为 blocked，不再继续扫描
	if in.project.ExamResult != nil &&
		*in.project.ExamResult == model.ProjectExamFailed &&
		in.project.StudentAcknowledgedAt == nil {
		return model.StepDefenseResult, model.StepStatusBlocked, len(workflowSteps) - 1
	}

	for i, step := range workflowSteps {
		if !step.met(in) {
			return step.key, step.pendingStatus, i
		}
	}

	// 所有步骤满足
	last := workflowSteps[len(workflowSteps)-1]
	return last.key, model.StepStatusCompleted, len(workflowSteps) - 1
}

// resolveOverallStatus 按优先级解析整体状态：
// archived（归档且已确认）> failed > completed > in_progress > not_started
func resolveOverallStatus(in *stateInput) string {
	p := in.project
	switch {
	case p.Status == model.ProjectStatusArchived && p.StudentAcknowledgedAt != nil:
		return model.OverallArchived
	case p.ExamResult != nil && *p.ExamResult == model.ProjectExamFailed:
		return model.OverallFailed
	case (p.ExamResult != nil && *p.ExamResult == model.ProjectExamPassed) ||
		p.Status == model.ProjectStatusCompleted:
		return model.OverallCompleted
	case p.Status == model.ProjectStatusInProgress ||
		p.Status == model.ProjectStatusAdvisorAssigned ||
		workflowSteps[0].met(in):
		return model.OverallInProgress
	default:
		return model.OverallNotStarted
	}
}

// resolveLifecycleStatus 折叠为学生生命周期状态。
// 考核未通过始终报告 failed（归档后亦然），供下游区分
// "未通过后归档"与"从未开始即归档"
func resolveLifecycleStatus(in *stateInput, overall string) string {
	if in.project.ExamResult != nil && *in.project.ExamResult == model.ProjectExamFailed {
		return model.LifecycleFailed
	}
	switch overall {
	case model.OverallCompleted:
		return model.LifecycleCompleted
	case model.OverallNotStarted:
		return model.LifecycleNotStarted
	default:
		return model.LifecycleInProgress
	}
}

// activeProject1Request 返回项目的 PROJECT1 活动申请（非 cancelled），须已预加载
func activeProject1Request(project *model.Project) *model.DefenseRequest {
	for i := range project.DefenseRequests {
		r := &project.DefenseRequests[i]
		if r.DefenseType == model.DefenseTypeProject1 && r.Status != model.DefenseStatusCancelled {
			return r
		}
	}
	return nil
}

// buildDataPayload 构造时间线渲染用的快照载荷
// 字段集合与取值必须确定（同输入同输出），以保证同步幂等
func buildDataPayload(in *stateInput, state *WorkflowState, stepIndex int) map[string]interface{} {
	payload := map[string]interface{}{
		"project_id":        in.project.ProjectID,
		"project_status":    in.project.Status,
		"title_th":          in.project.TitleTH,
		"title_en":          in.project.TitleEN,
		"member_role":       in.member.Role,
		"member_count":      len(in.project.Members),
		"approved_logs":     in.student.ApprovedLogs,
		"attended_meetings": in.student.AttendedMeetings,
		"total_meetings":    in.metrics.TotalMeetings,
		"required_logs":     readinessLogThreshold,
		"step_index":        stepIndex,
	}
	if in.metrics.LastApprovedLogAt != nil {
		payload["last_approved_log_at"] = in.metrics.LastApprovedLogAt.UTC().Format(time.RFC3339)
	}
	if in.request != nil {
		payload["defense_status"] = in.request.Status
	}
	if in.project.ExamResult != nil {
		payload["exam_result"] = *in.project.ExamResult
		payload["acknowledged"] = in.project.StudentAcknowledgedAt != nil
	}
	return payload
}
