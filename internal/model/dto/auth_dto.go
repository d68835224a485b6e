package dto

// RegisterRequest 注册请求，字段规则在 service 层校验以便返回具体字段
type RegisterRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Birthday  string `json:"birthday"` // YYYY-MM-DD
	Password  string `json:"password"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	Email string `json:"email"`
}

// ResendVerificationRequest 重发验证邮件
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse 登录/验证成功后返回的会话信息
type LoginResponse struct {
	Token string    `json:"token,omitempty"`
	Stage string    `json:"stage"`
	User  *UserInfo `json:"user"`
}

// ForgetPasswordRequest 忘记密码
type ForgetPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest 重置密码，token 也可以放在 query 中
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ChangePasswordRequest 修改密码
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// OnboardingRequest 补充身体数据与训练偏好
// workout_days 与 workout_mask 二选一，后者为旧客户端的 7 位掩码
type OnboardingRequest struct {
	Weight       *float64 `json:"weight"`
	Height       *float64 `json:"height"`
	WorkoutDays  []int    `json:"workout_days"`
	WorkoutMask  *uint8   `json:"workout_mask,omitempty"`
	Goal         string   `json:"goal"`
	FitnessLevel string   `json:"fitness_level"`
}
