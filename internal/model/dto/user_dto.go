package dto

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID                 int64   `json:"id"`
	Username           string  `json:"username"`
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	Email              string  `json:"email"`
	Birthday           string  `json:"birthday,omitempty"`
	Height             float64 `json:"height"`
	Weight             float64 `json:"weight"`
	Goal               string  `json:"goal"`
	FitnessLevel       string  `json:"fitness_level"`
	WorkoutDays        []int   `json:"workout_days"`
	AvatarURL          string  `json:"avatar_url"`
	IsVerified         bool    `json:"is_verified"`
	OnboardingComplete bool    `json:"onboarding_complete"`
	CreatedAt          string  `json:"created_at,omitempty"`
}

// UpdateProfileRequest 更新个人信息，未出现的字段保持原值
type UpdateProfileRequest struct {
	FirstName *string  `json:"first_name,omitempty"`
	LastName  *string  `json:"last_name,omitempty"`
	Email     *string  `json:"email,omitempty"`
	Birthday  *string  `json:"birthday,omitempty"`
	Height    *float64 `json:"height,omitempty"`
	Weight    *float64 `json:"weight,omitempty"`
}

// UpdateWorkoutSettingsRequest 更新训练设置，未出现的字段保持原值
type UpdateWorkoutSettingsRequest struct {
	Goal         *string `json:"goal,omitempty"`
	FitnessLevel *string `json:"fitness_level,omitempty"`
	WorkoutDays  *[]int  `json:"workout_days,omitempty"`
	WorkoutMask  *uint8  `json:"workout_mask,omitempty"`
}

// ChangeUsernameRequest 修改用户名
type ChangeUsernameRequest struct {
	Username string `json:"username"`
}

// AvatarResponse 头像上传结果
type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}
