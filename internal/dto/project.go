package dto

// ── 项目模块请求 ──

// CreateProjectRequest 创建项目请求（创建者自动成为 leader）
type CreateProjectRequest struct {
	TitleTH      string `json:"title_th"      binding:"omitempty,max=500"`
	TitleEN      string `json:"title_en"      binding:"omitempty,max=500"`
	AcademicYear int    `json:"academic_year" binding:"required,min=2500,max=2700"` // 佛历年份
	Semester     int    `json:"semester"      binding:"required,oneof=1 2 3"`
}

// AddMemberRequest 添加项目成员请求
type AddMemberRequest struct {
	StudentCode string `json:"student_code" binding:"required,min=4,max=20"`
}

// UpdateProjectRequest 更新项目元数据请求（进入 in_progress 后锁定）
type UpdateProjectRequest struct {
	TitleTH     *string `json:"title_th"      binding:"omitempty,max=500"`
	TitleEN     *string `json:"title_en"      binding:"omitempty,max=500"`
	AdvisorID   *string `json:"advisor_id"    binding:"omitempty,uuid"`
	CoAdvisorID *string `json:"co_advisor_id" binding:"omitempty,uuid"`
}

// RecordExamResultRequest 记录考核结果请求
type RecordExamResultRequest struct {
	ExamType             string   `json:"exam_type"              binding:"required,oneof=PROJECT1 THESIS"`
	Result               string   `json:"result"                 binding:"required,oneof=PASS FAIL"`
	Score                *float64 `json:"score"                  binding:"omitempty,min=0,max=100"`
	Notes                string   `json:"notes"                  binding:"omitempty,max=1000"`
	RequireScopeRevision bool     `json:"require_scope_revision"`
}

// ── 项目模块响应 ──

// MemberResponse 项目成员响应
type MemberResponse struct {
	MemberID    string `json:"member_id"`
	StudentID   string `json:"student_id"`
	StudentCode string `json:"student_code,omitempty"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role"`
}

// ExamResultResponse 考核结果响应
type ExamResultResponse struct {
	ResultID              string   `json:"result_id"`
	ExamType              string   `json:"exam_type"`
	Result                string   `json:"result"`
	Score                 *float64 `json:"score,omitempty"`
	Notes                 string   `json:"notes,omitempty"`
	RequireScopeRevision  bool     `json:"require_scope_revision"`
	StudentAcknowledgedAt string   `json:"student_acknowledged_at,omitempty"`
}

// MeetingMetricsResponse 会议统计响应
type MeetingMetricsResponse struct {
	TotalMeetings     int                               `json:"total_meetings"`
	TotalApprovedLogs int                               `json:"total_approved_logs"`
	LastApprovedLogAt string                            `json:"last_approved_log_at,omitempty"`
	PerStudent        map[string]StudentMetricsResponse `json:"per_student"`
}

// StudentMetricsResponse 单个学生的会议统计
type StudentMetricsResponse struct {
	ApprovedLogs     int `json:"approved_logs"`
	AttendedMeetings int `json:"attended_meetings"`
}

// ProjectResponse 项目完整视图（每次变更操作后返回同步后的状态）
type ProjectResponse struct {
	ProjectID             string                   `json:"project_id"`
	TitleTH               string                   `json:"title_th"`
	TitleEN               string                   `json:"title_en"`
	Status                string                   `json:"status"`
	ExamResult            string                   `json:"exam_result,omitempty"`
	ExamResultAt          string                   `json:"exam_result_at,omitempty"`
	StudentAcknowledgedAt string                   `json:"student_acknowledged_at,omitempty"`
	AdvisorID             string                   `json:"advisor_id,omitempty"`
	CoAdvisorID           string                   `json:"co_advisor_id,omitempty"`
	AcademicYear          int                      `json:"academic_year"`
	Semester              int                      `json:"semester"`
	ArchivedAt            string                   `json:"archived_at,omitempty"`
	Members               []MemberResponse         `json:"members"`
	DefenseRequests       []DefenseRequestResponse `json:"defense_requests"`
	ExamResults           []ExamResultResponse     `json:"exam_results"`
	MeetingMetrics        MeetingMetricsResponse   `json:"meeting_metrics"`
	CreatedAt             string                   `json:"created_at"`
	UpdatedAt             string                   `json:"updated_at"`
}
