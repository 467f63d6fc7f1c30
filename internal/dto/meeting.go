package dto

// ── 会议模块请求 ──

// CreateMeetingRequest 创建指导会议请求（导师操作）
type CreateMeetingRequest struct {
	ProjectID      string   `json:"project_id"      binding:"required,uuid"`
	Phase          string   `json:"phase"           binding:"required,oneof=phase1 phase2"`
	Topic          string   `json:"topic"           binding:"required,max=500"`
	MeetingAt      string   `json:"meeting_at"      binding:"required"` // RFC 3339
	ParticipantIDs []string `json:"participant_ids" binding:"omitempty,dive,uuid"`
}

// RecordAttendanceRequest 记录出席请求
type RecordAttendanceRequest struct {
	Attendances []AttendanceInput `json:"attendances" binding:"required,min=1,dive"`
}

// AttendanceInput 单条出席记录
type AttendanceInput struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Status string `json:"status"  binding:"required,oneof=present late absent"`
}

// SubmitMeetingLogRequest 提交会议记录请求（学生操作）
type SubmitMeetingLogRequest struct {
	Content string `json:"content" binding:"required,min=10"`
}

// ── 会议模块响应 ──

// MeetingResponse 会议响应
type MeetingResponse struct {
	MeetingID    string                `json:"meeting_id"`
	ProjectID    string                `json:"project_id"`
	Phase        string                `json:"phase"`
	Topic        string                `json:"topic"`
	MeetingAt    string                `json:"meeting_at"`
	AdvisorID    string                `json:"advisor_id"`
	Participants []ParticipantResponse `json:"participants,omitempty"`
	Logs         []MeetingLogResponse  `json:"logs,omitempty"`
}

// ParticipantResponse 会议出席响应
type ParticipantResponse struct {
	UserID           string `json:"user_id"`
	AttendanceStatus string `json:"attendance_status"`
}

// MeetingLogResponse 会议记录响应
type MeetingLogResponse struct {
	LogID          string `json:"log_id"`
	MeetingID      string `json:"meeting_id"`
	Content        string `json:"content"`
	ApprovalStatus string `json:"approval_status"`
	ApprovedAt     string `json:"approved_at,omitempty"`
	SubmittedBy    string `json:"submitted_by"`
}
