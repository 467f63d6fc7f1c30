package service

import (
	"encoding/json"
	"time"

	"github.com/Manchinn/CSLogbook-sub002/internal/dto"
	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

// ── 模型 → 响应转换 ──

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmtTime(*t)
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toMemberResponse(m *model.ProjectMember) dto.MemberResponse {
	resp := dto.MemberResponse{
		MemberID:  m.MemberID,
		StudentID: m.StudentID,
		Role:      m.Role,
	}
	if m.Student != nil {
		resp.StudentCode = m.Student.StudentCode
		resp.Name = m.Student.Name
	}
	return resp
}

func toExamResultResponse(r *model.ExamResult) dto.ExamResultResponse {
	return dto.ExamResultResponse{
		ResultID:              r.ResultID,
		ExamType:              r.ExamType,
		Result:                r.Result,
		Score:                 r.Score,
		Notes:                 r.Notes,
		RequireScopeRevision:  r.RequireScopeRevision,
		StudentAcknowledgedAt: fmtTimePtr(r.StudentAcknowledgedAt),
	}
}

func toDefenseRequestResponse(r *model.DefenseRequest) dto.DefenseRequestResponse {
	var payload map[string]interface{}
	if len(r.FormPayload) > 0 {
		_ = json.Unmarshal(r.FormPayload, &payload)
	}
	return dto.DefenseRequestResponse{
		RequestID:        r.RequestID,
		ProjectID:        r.ProjectID,
		DefenseType:      r.DefenseType,
		Status:           r.Status,
		FormPayload:      payload,
		AttachmentPath:   derefStr(r.AttachmentPath),
		ScheduledAt:      fmtTimePtr(r.ScheduledAt),
		Location:         r.Location,
		AdvisorComment:   r.AdvisorComment,
		StaffComment:     r.StaffComment,
		SubmittedBy:      r.SubmittedBy,
		AdvisorDecidedAt: fmtTimePtr(r.AdvisorDecidedAt),
		StaffVerifiedAt:  fmtTimePtr(r.StaffVerifiedAt),
		CompletedAt:      fmtTimePtr(r.CompletedAt),
		CancelledAt:      fmtTimePtr(r.CancelledAt),
		CreatedAt:        fmtTime(r.CreatedAt),
		UpdatedAt:        fmtTime(r.UpdatedAt),
	}
}

func toMetricsResponse(m *MeetingMetrics) dto.MeetingMetricsResponse {
	resp := dto.MeetingMetricsResponse{
		TotalMeetings:     m.TotalMeetings,
		TotalApprovedLogs: m.TotalApprovedLogs,
		PerStudent:        make(map[string]dto.StudentMetricsResponse, len(m.PerStudent)),
	}
	if m.LastApprovedLogAt != nil {
		resp.LastApprovedLogAt = fmtTime(*m.LastApprovedLogAt)
	}
	for studentID, sm := range m.PerStudent {
		resp.PerStudent[studentID] = dto.StudentMetricsResponse{
			ApprovedLogs:     sm.ApprovedLogs,
			AttendedMeetings: sm.AttendedMeetings,
		}
	}
	return resp
}

// toProjectResponse 组装项目完整视图（每次变更操作返回同步后的状态）
func toProjectResponse(p *model.Project, metrics *MeetingMetrics) *dto.ProjectResponse {
	resp := &dto.ProjectResponse{
		ProjectID:             p.ProjectID,
		TitleTH:               p.TitleTH,
		TitleEN:               p.TitleEN,
		Status:                p.Status,
		ExamResult:            derefStr(p.ExamResult),
		ExamResultAt:          fmtTimePtr(p.ExamResultAt),
		StudentAcknowledgedAt: fmtTimePtr(p.StudentAcknowledgedAt),
		AdvisorID:             derefStr(p.AdvisorID),
		CoAdvisorID:           derefStr(p.CoAdvisorID),
		AcademicYear:          p.AcademicYear,
		Semester:              p.Semester,
		ArchivedAt:            fmtTimePtr(p.ArchivedAt),
		Members:               make([]dto.MemberResponse, 0, len(p.Members)),
		DefenseRequests:       make([]dto.DefenseRequestResponse, 0, len(p.DefenseRequests)),
		ExamResults:           make([]dto.ExamResultResponse, 0, len(p.ExamResults)),
		MeetingMetrics:        toMetricsResponse(metrics),
		CreatedAt:             fmtTime(p.CreatedAt),
		UpdatedAt:             fmtTime(p.UpdatedAt),
	}
	for i := range p.Members {
		resp.Members = append(resp.Members, toMemberResponse(&p.Members[i]))
	}
	for i := range p.DefenseRequests {
		resp.DefenseRequests = append(resp.DefenseRequests, toDefenseRequestResponse(&p.DefenseRequests[i]))
	}
	for i := range p.ExamResults {
		resp.ExamResults = append(resp.ExamResults, toExamResultResponse(&p.ExamResults[i]))
	}
	return resp
}

func toMeetingResponse(m *model.Meeting) *dto.MeetingResponse {
	resp := &dto.MeetingResponse{
		MeetingID: m.MeetingID,
		ProjectID: m.ProjectID,
		Phase:     m.Phase,
		Topic:     m.Topic,
		MeetingAt: fmtTime(m.MeetingAt),
		AdvisorID: m.AdvisorID,
	}
	for i := range m.Participants {
		resp.Participants = append(resp.Participants, dto.ParticipantResponse{
			UserID:           m.Participants[i].UserID,
			AttendanceStatus: m.Participants[i].AttendanceStatus,
		})
	}
	for i := range m.Logs {
		resp.Logs = append(resp.Logs, toMeetingLogResponse(&m.Logs[i]))
	}
	return resp
}

func toMeetingLogResponse(l *model.MeetingLog) dto.MeetingLogResponse {
	return dto.MeetingLogResponse{
		LogID:          l.LogID,
		MeetingID:      l.MeetingID,
		Content:        l.Content,
		ApprovalStatus: l.ApprovalStatus,
		ApprovedAt:     fmtTimePtr(l.ApprovedAt),
		SubmittedBy:    l.SubmittedBy,
	}
}
