package dto

// ── 答辩申请模块请求 ──

// SubmitDefenseRequest 提交答辩申请请求
// 表单载荷采用显式字段建模并在服务层归一化，未知形状在绑定阶段即被拒绝
type SubmitDefenseRequest struct {
	DefenseType  string                `json:"defense_type"  binding:"required,oneof=PROJECT1 THESIS"`
	ContactPhone string                `json:"contact_phone" binding:"required,min=9,max=20"`
	ContactEmail string                `json:"contact_email" binding:"required,email"`
	Attachment   *AttachmentMetaInput  `json:"attachment"    binding:"omitempty"`
}

// AttachmentMetaInput 已验证的上传文件元数据（由上传协作方提供，本服务不解析文件内容）
type AttachmentMetaInput struct {
	Path string `json:"path" binding:"required,max=500"`
	Mime string `json:"mime" binding:"required,max=100"`
	Size int64  `json:"size" binding:"required,min=1"`
}

// AdvisorDecisionRequest 导师审批请求
type AdvisorDecisionRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment" binding:"omitempty,max=1000"`
}

// StaffVerifyRequest 系办核验请求
type StaffVerifyRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment" binding:"omitempty,max=1000"`
}

// ScheduleDefenseRequest 答辩排期请求
type ScheduleDefenseRequest struct {
	ScheduledAt string `json:"scheduled_at" binding:"required"` // RFC 3339
	Location    string `json:"location"     binding:"required,min=1,max=200"`
}

// ── 答辩申请模块响应 ──

// DefenseRequestResponse 答辩申请响应
type DefenseRequestResponse struct {
	RequestID        string                 `json:"request_id"`
	ProjectID        string                 `json:"project_id"`
	DefenseType      string                 `json:"defense_type"`
	Status           string                 `json:"status"`
	FormPayload      map[string]interface{} `json:"form_payload,omitempty"`
	AttachmentPath   string                 `json:"attachment_path,omitempty"`
	ScheduledAt      string                 `json:"scheduled_at,omitempty"`
	Location         string                 `json:"location,omitempty"`
	AdvisorComment   string                 `json:"advisor_comment,omitempty"`
	StaffComment     string                 `json:"staff_comment,omitempty"`
	SubmittedBy      string                 `json:"submitted_by"`
	AdvisorDecidedAt string                 `json:"advisor_decided_at,omitempty"`
	StaffVerifiedAt  string                 `json:"staff_verified_at,omitempty"`
	CompletedAt      string                 `json:"completed_at,omitempty"`
	CancelledAt      string                 `json:"cancelled_at,omitempty"`
	CreatedAt        string                 `json:"created_at"`
	UpdatedAt        string                 `json:"updated_at"`
}
