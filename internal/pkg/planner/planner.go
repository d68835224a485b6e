package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qs3c/fit_go_server/internal/model"
)

// ErrGeneration 计划生成失败，包括模型调用失败和输出无法解析
var ErrGeneration = errors.New("workout plan generation failed")

// Params 生成计划所需的用户参数
type Params struct {
	WorkoutDays  model.WorkoutDays
	FitnessLevel string
	Height       float64
	Weight       float64
	Goal         string
	StartDate    time.Time
	EndDate      time.Time
}

// Generator 训练计划生成器
type Generator interface {
	Generate(ctx context.Context, params Params) ([]model.WorkoutItem, error)
}

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// BuildPrompt 构造发给模型的提示词
func BuildPrompt(p Params) string {
	days := make([]string, 0, len(p.WorkoutDays))
	for _, d := range p.WorkoutDays {
		if d >= 0 && d <= 6 {
			days = append(days, weekdayNames[d])
		}
	}
	start := p.StartDate.Format(model.DateLayout)
	end := p.EndDate.Format(model.DateLayout)

	var b strings.Builder
	fmt.Fprintf(&b, "Create a fitness plan from %s to %s (inclusive).\n", start, end)
	fmt.Fprintf(&b, "Workout days: %s\n", strings.Join(days, ", "))
	fmt.Fprintf(&b, "Fitness level: %s\n", p.FitnessLevel)
	if p.Height > 0 {
		fmt.Fprintf(&b, "Height: %.1f cm\n", p.Height)
	}
	if p.Weight > 0 {
		fmt.Fprintf(&b, "Weight: %.1f kg\n", p.Weight)
	}
	fmt.Fprintf(&b, "Goal: %s\n\n", p.Goal)
	b.WriteString("Respond with a JSON array only. Each element is one exercise of one session:\n")
	fmt.Fprintf(&b, `{"title": "Push-Ups", "duration": 30, "repetitions": 10, "sets": 3, "start_date": "%s"}`+"\n", start)
	b.WriteString("Use specific exercise names, not categories like \"Cardio\" or \"Strength\". ")
	b.WriteString("Several exercises on the same day are separate elements. ")
	b.WriteString("Dates use the format YYYY-MM-DD, only fall on the workout days, and stay inside the date range.")
	return b.String()
}

// flexInt 兼容模型把数字写成字符串的情况
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*f = flexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", s)
	}
	*f = flexInt(int(v))
	return nil
}

// rawItem 兼容两套字段名：title/time/Reps/Sets/start 与 duration/repetitions/sets/start_date
type rawItem struct {
	Title       string  `json:"title"`
	Time        flexInt `json:"time"`
	Duration    flexInt `json:"duration"`
	Reps        flexInt `json:"Reps"`
	Repetitions flexInt `json:"repetitions"`
	Sets        flexInt `json:"sets"`
	Start       string  `json:"start"`
	StartDate   string  `json:"start_date"`
	End         string  `json:"end"`
	EndDate     string  `json:"end_date"`
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-1-2", strings.TrimSpace(s), time.UTC)
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// stripFence 去掉 ```json ... ``` 包裹
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeArray 模型偶尔会把数组包在一个对象里，例如 {"plan": [...]}
func decodeArray(data []byte) ([]rawItem, error) {
	var raws []rawItem
	err := json.Unmarshal(data, &raws)
	if err == nil {
		return raws, nil
	}

	var wrapper map[string]json.RawMessage
	if json.Unmarshal(data, &wrapper) != nil {
		return nil, err
	}
	for _, v := range wrapper {
		if json.Unmarshal(v, &raws) == nil {
			return raws, nil
		}
	}
	return nil, err
}

// ParseItems 解析模型输出，任何一项落在 [start, end] 之外都视为失败
func ParseItems(output string, start, end time.Time) ([]model.WorkoutItem, error) {
	raws, err := decodeArray([]byte(stripFence(output)))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid output: %v", ErrGeneration, err)
	}

	lo, hi := dayOf(start), dayOf(end)
	items := make([]model.WorkoutItem, 0, len(raws))
	for i, r := range raws {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: item %d has no title", ErrGeneration, i)
		}

		startStr := r.StartDate
		if startStr == "" {
			startStr = r.Start
		}
		itemStart, err := parseDate(startStr)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d has invalid start date %q", ErrGeneration, i, startStr)
		}

		itemEnd := itemStart
		endStr := r.EndDate
		if endStr == "" {
			endStr = r.End
		}
		if endStr != "" {
			if itemEnd, err = parseDate(endStr); err != nil {
				return nil, fmt.Errorf("%w: item %d has invalid end date %q", ErrGeneration, i, endStr)
			}
		}

		if itemStart.Before(lo) || itemEnd.After(hi) || itemEnd.Before(itemStart) {
			return nil, fmt.Errorf("%w: item %d (%s) is outside %s..%s", ErrGeneration, i,
				itemStart.Format(model.DateLayout), lo.Format(model.DateLayout), hi.Format(model.DateLayout))
		}

		duration := r.Duration
		if duration == 0 {
			duration = r.Time
		}
		reps := r.Repetitions
		if reps == 0 {
			reps = r.Reps
		}

		items = append(items, model.WorkoutItem{
			Title:       title,
			Duration:    int(duration),
			Repetitions: int(reps),
			Sets:        int(r.Sets),
			StartDate:   itemStart.Format(model.DateLayout),
			EndDate:     itemEnd.Format(model.DateLayout),
		})
	}
	return items, nil
}
