package dto

// WorkflowActivityResponse 学生工作流活动响应（进度时间线）
type WorkflowActivityResponse struct {
	ActivityID            string                 `json:"activity_id"`
	StudentID             string                 `json:"student_id"`
	WorkflowType          string                 `json:"workflow_type"`
	CurrentStepKey        string                 `json:"current_step_key"`
	CurrentStepStatus     string                 `json:"current_step_status"`
	OverallWorkflowStatus string                 `json:"overall_workflow_status"`
	DataPayload           map[string]interface{} `json:"data_payload,omitempty"`
	UpdatedAt             string                 `json:"updated_at"`
}
