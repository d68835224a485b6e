package service

import (
	"errors"

	"github.com/qs3c/fit_go_server/internal/repository"
)

// ErrConflict 所有唯一性冲突的公共父错误
var ErrConflict = errors.New("resource already exists")

type conflictError struct {
	msg string
}

func (e *conflictError) Error() string { return e.msg }

func (e *conflictError) Is(target error) bool { return target == ErrConflict }

func newConflict(msg string) error {
	return &conflictError{msg: msg}
}

var (
	ErrEmailExists           = newConflict("Email is already registered")
	ErrUsernameExists        = newConflict("Username is already taken")
	ErrAccountExists         = newConflict("Email or username is already taken")
	ErrUserNotFound          = errors.New("User not found")
	ErrInvalidCredentials    = errors.New("Invalid email or password")
	ErrInvalidToken          = errors.New("Invalid or expired link")
	ErrUnauthenticated       = errors.New("Please log in first")
	ErrUsernameChangeTooSoon = errors.New("Username can only be changed once every 30 days")
	ErrPlanNotFound          = repository.ErrPlanNotFound
)

// ValidationError 字段级校验错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AsValidationError 取出校验错误
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
