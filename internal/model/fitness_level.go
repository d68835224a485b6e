package model

import "strings"

const (
	FitnessBeginner     = "beginner"
	FitnessIntermediate = "intermediate"
	FitnessAdvanced     = "advanced"
)

// ParseFitnessLevel 大小写不敏感，未知值返回 false
func ParseFitnessLevel(s string) (string, bool) {
	switch level := strings.ToLower(strings.TrimSpace(s)); level {
	case FitnessBeginner, FitnessIntermediate, FitnessAdvanced:
		return level, true
	default:
		return "", false
	}
}
