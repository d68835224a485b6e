package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeSuccess            = 0
	CodeValidationError    = 1000
	CodeUnauthenticated    = 1001
	CodeOnboardingRequired = 1002
	CodeResourceNotFound   = 1003
	CodeConflict           = 1005
	CodeInvalidCredentials = 1006
	CodeInvalidToken       = 1007
	CodeGenerationFailed   = 1008
	CodeServerError        = 5000
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:            "success",
	CodeValidationError:    "Invalid request",
	CodeUnauthenticated:    "Please log in first",
	CodeOnboardingRequired: "Please complete your fitness profile first",
	CodeResourceNotFound:   "Resource not found",
	CodeConflict:           "Resource already exists",
	CodeInvalidCredentials: "Invalid email or password",
	CodeInvalidToken:       "Invalid or expired link",
	CodeGenerationFailed:   "Failed to generate workout plan, please try again later",
	CodeServerError:        "Internal server error",
}

// 错误码对应的 HTTP 状态
var codeStatus = map[int]int{
	CodeSuccess:            http.StatusOK,
	CodeValidationError:    http.StatusBadRequest,
	CodeUnauthenticated:    http.StatusUnauthorized,
	CodeOnboardingRequired: http.StatusForbidden,
	CodeResourceNotFound:   http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeInvalidCredentials: http.StatusBadRequest,
	CodeInvalidToken:       http.StatusBadRequest,
	CodeGenerationFailed:   http.StatusBadGateway,
	CodeServerError:        http.StatusInternalServerError,
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// FieldError 字段校验失败时的 data
type FieldError struct {
	Field string `json:"field"`
}

// Status 错误码对应的 HTTP 状态
func Status(code int) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 带 data 的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(Status(code), Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Abort 中间件中终止请求
func Abort(c *gin.Context, code int, message string) {
	Error(c, code, message)
	c.Abort()
}

// ValidationError 参数错误，field 为空表示请求体整体无效
func ValidationError(c *gin.Context, field, message string) {
	var data interface{}
	if field != "" {
		data = FieldError{Field: field}
	}
	ErrorWithData(c, CodeValidationError, message, data)
}

// AuthError 未登录或会话失效
func AuthError(c *gin.Context, message string) {
	Error(c, CodeUnauthenticated, message)
}

// OnboardingError 会话尚在引导阶段
func OnboardingError(c *gin.Context, message string) {
	Error(c, CodeOnboardingRequired, message)
}

// NotFoundError 资源不存在
func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

// ConflictError 唯一性冲突
func ConflictError(c *gin.Context, message string) {
	Error(c, CodeConflict, message)
}

// CredentialsError 登录凭据错误
func CredentialsError(c *gin.Context, message string) {
	Error(c, CodeInvalidCredentials, message)
}

// TokenError 验证或重置链接无效
func TokenError(c *gin.Context, message string) {
	Error(c, CodeInvalidToken, message)
}

// GenerationError 计划生成失败
func GenerationError(c *gin.Context, message string) {
	Error(c, CodeGenerationFailed, message)
}

// ServerError 服务器错误，message 不应包含内部细节
func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}
