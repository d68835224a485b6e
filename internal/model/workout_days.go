package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// WorkoutDays 每周训练日，0 表示周日，6 表示周六
// 存储与传输都使用升序去重的整数数组，旧客户端的 7 位掩码在边界处转换
type WorkoutDays []int

// WorkoutDaysFromMask 由 7 位掩码构造，第 i 位对应星期 i
func WorkoutDaysFromMask(mask uint8) WorkoutDays {
	days := make(WorkoutDays, 0, 7)
	for i := 0; i < 7; i++ {
		if mask&(1<<i) != 0 {
			days = append(days, i)
		}
	}
	return days
}

// Mask 转回 7 位掩码
func (d WorkoutDays) Mask() uint8 {
	var mask uint8
	for _, day := range d {
		if day >= 0 && day <= 6 {
			mask |= 1 << day
		}
	}
	return mask
}

// Normalize 排序去重，遇到 0-6 以外的值返回错误
func (d WorkoutDays) Normalize() (WorkoutDays, error) {
	seen := make(map[int]bool, len(d))
	out := make(WorkoutDays, 0, len(d))
	for _, day := range d {
		if day < 0 || day > 6 {
			return nil, fmt.Errorf("invalid weekday %d", day)
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, day)
	}
	sort.Ints(out)
	return out, nil
}

// Contains 是否包含某个星期
func (d WorkoutDays) Contains(day int) bool {
	for _, v := range d {
		if v == day {
			return true
		}
	}
	return false
}

func (d WorkoutDays) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int(d))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *WorkoutDays) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported workout days type %T", value)
	}
	if len(raw) == 0 {
		*d = nil
		return nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return err
	}
	*d = days
	return nil
}
