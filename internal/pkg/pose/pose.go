package pose

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// MinScore 置信度不高于该值的关键点视为缺失
const MinScore = 0.5

const (
	ExerciseSquat       = "squat"
	ExerciseJumpingJack = "jumping_jack"
)

// ErrUnknownExercise 不支持的动作
var ErrUnknownExercise = errors.New("unknown exercise")

// Keypoint MoveNet 风格的关键点
type Keypoint struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Result 单帧分析结果
type Result struct {
	Exercise string             `json:"exercise"`
	Detected bool               `json:"detected"`
	Correct  bool               `json:"correct"`
	Message  string             `json:"message"`
	Missing  []string           `json:"missing,omitempty"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

type keypointSet map[string]Keypoint

// collect 返回所需关键点以及缺失的名称
func collect(points []Keypoint, names ...string) (keypointSet, []string) {
	set := make(keypointSet, len(names))
	for _, p := range points {
		if p.Score > MinScore {
			set[p.Name] = p
		}
	}
	var missing []string
	for _, n := range names {
		if _, ok := set[n]; !ok {
			missing = append(missing, n)
		}
	}
	return set, missing
}

// angle 以 b 为顶点的夹角，单位度，范围 [0, 180]
func angle(a, b, c Keypoint) float64 {
	rad := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(rad * 180 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}

func distance(a, b Keypoint) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// AnalyzeSquat 两侧膝关节角都小于 160 度视为下蹲到位
func AnalyzeSquat(points []Keypoint) Result {
	set, missing := collect(points,
		"left_hip", "left_knee", "left_ankle",
		"right_hip", "right_knee", "right_ankle")
	res := Result{Exercise: ExerciseSquat}
	if len(missing) > 0 {
		res.Missing = missing
		res.Message = "Not all required keypoints for squat analysis are detected or confident enough."
		return res
	}

	left := angle(set["left_hip"], set["left_knee"], set["left_ankle"])
	right := angle(set["right_hip"], set["right_knee"], set["right_ankle"])

	res.Detected = true
	res.Metrics = map[string]float64{"left_knee_angle": left, "right_knee_angle": right}
	if left < 160 && right < 160 {
		res.Correct = true
		res.Message = "Good squat depth"
	} else {
		res.Message = "Improve squat depth"
	}
	return res
}

// AnalyzeJumpingJack 手臂展开超过两倍肩宽且双脚分开超过 1.5 倍肩宽
func AnalyzeJumpingJack(points []Keypoint) Result {
	set, missing := collect(points,
		"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
		"left_wrist", "right_wrist", "left_hip", "right_hip",
		"left_ankle", "right_ankle")
	res := Result{Exercise: ExerciseJumpingJack}
	if len(missing) > 0 {
		res.Missing = missing
		res.Message = "Not all required keypoints for jumping jack analysis are detected or confident enough."
		return res
	}

	armSpan := distance(set["left_wrist"], set["right_wrist"])
	legSpan := distance(set["left_ankle"], set["right_ankle"])
	shoulderWidth := distance(set["left_shoulder"], set["right_shoulder"])

	res.Detected = true
	res.Metrics = map[string]float64{"arm_span": armSpan, "leg_span": legSpan, "shoulder_width": shoulderWidth}
	if armSpan > shoulderWidth*2 && legSpan > shoulderWidth*1.5 {
		res.Correct = true
		res.Message = "Correct position for a jumping jack"
	} else {
		res.Message = "Not in correct position for a jumping jack"
	}
	return res
}

// Analyze 按动作名分发
func Analyze(exercise string, points []Keypoint) (Result, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(exercise), "-", "_")) {
	case ExerciseSquat:
		return AnalyzeSquat(points), nil
	case ExerciseJumpingJack, "jumpingjack":
		return AnalyzeJumpingJack(points), nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownExercise, exercise)
	}
}
