package dto

// ── 认证模块请求 ──

// LoginRequest 登录请求（学号 + 密码）
type LoginRequest struct {
	StudentCode string `json:"student_code" binding:"required,min=4,max=20"`
	Password    string `json:"password"     binding:"required,min=6"`
	RememberMe  bool   `json:"remember_me"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
