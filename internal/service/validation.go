package service

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/qs3c/fit_go_server/internal/model"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]{3,30}$`)
	namePattern     = regexp.MustCompile(`^[A-Za-z0-9]{1,30}$`)
	passwordCharset = regexp.MustCompile(`^[A-Za-z0-9@#*_]{5,25}$`)
	hasLetter       = regexp.MustCompile(`[A-Za-z]`)
	hasDigit        = regexp.MustCompile(`[0-9]`)

	validate = validator.New()
)

const passwordRuleMessage = "Password must be 5-25 characters long, including at least 1 letter and 1 number. Only @#*_ are allowed as special characters."

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return invalid("username", "Username must be 3-30 letters or numbers")
	}
	return nil
}

func validateName(field, label, value string) error {
	if !namePattern.MatchString(value) {
		return invalid(field, label+" must be 1-30 letters or numbers")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" || validate.Var(email, "email") != nil {
		return invalid("email", "Please enter a valid email address")
	}
	return nil
}

// validatePassword 5-25 位，至少一个字母和一个数字，特殊字符只允许 @#*_
func validatePassword(field, password string) error {
	if !passwordCharset.MatchString(password) || !hasLetter.MatchString(password) || !hasDigit.MatchString(password) {
		return invalid(field, passwordRuleMessage)
	}
	return nil
}

// parseBirthday 空字符串表示未填写
func parseBirthday(value string, now time.Time) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(model.DateLayout, value, time.UTC)
	if err != nil {
		return nil, invalid("birthday", "Birthday must be a date in the format YYYY-MM-DD")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if t.After(today) {
		return nil, invalid("birthday", "Birthday cannot be in the future")
	}
	return &t, nil
}

func validatePositive(field, label string, v *float64) error {
	if v == nil || *v <= 0 {
		return invalid(field, label+" must be greater than 0")
	}
	return nil
}

func validateGoal(goal string) (string, error) {
	goal = strings.TrimSpace(goal)
	if n := utf8.RuneCountInString(goal); n < 3 || n > 200 {
		return "", invalid("goal", "Goal must be 3-200 characters")
	}
	return goal, nil
}

func validateFitnessLevel(level string) (string, error) {
	parsed, ok := model.ParseFitnessLevel(level)
	if !ok {
		return "", invalid("fitness_level", "Fitness level must be one of beginner, intermediate, advanced")
	}
	return parsed, nil
}

// resolveWorkoutDays 掩码优先，结果必须非空
func resolveWorkoutDays(days []int, mask *uint8) (model.WorkoutDays, error) {
	var resolved model.WorkoutDays
	if mask != nil {
		if *mask > 0x7f {
			return nil, invalid("workout_mask", "Workout mask must only use the lowest 7 bits")
		}
		resolved = model.WorkoutDaysFromMask(*mask)
	} else {
		normalized, err := model.WorkoutDays(days).Normalize()
		if err != nil {
			return nil, invalid("workout_days", "Workout days must be between 0 (Sunday) and 6 (Saturday)")
		}
		resolved = normalized
	}
	if len(resolved) == 0 {
		return nil, invalid("workout_days", "Please select at least one workout day")
	}
	return resolved, nil
}
