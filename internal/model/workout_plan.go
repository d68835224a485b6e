package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout 训练计划中日期的统一格式
const DateLayout = "2006-01-02"

type WorkoutItem struct {
	Title       string `json:"title" bson:"title"`
	Duration    int    `json:"duration" bson:"duration"` // 分钟
	Repetitions int    `json:"repetitions" bson:"repetitions"`
	Sets        int    `json:"sets" bson:"sets"`
	StartDate   string `json:"start_date" bson:"start_date"`
	EndDate     string `json:"end_date" bson:"end_date"`
}

type WorkoutItems []WorkoutItem

func (w WorkoutItems) Value() (driver.Value, error) {
	if w == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]WorkoutItem(w))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (w *WorkoutItems) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*w = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported workout items type %T", value)
	}
	var items []WorkoutItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	*w = items
	return nil
}

// WorkoutPlan 每个用户只保留最近一次生成的计划
type WorkoutPlan struct {
	ID        int64        `gorm:"primaryKey" json:"id" bson:"-"`
	UserID    int64        `gorm:"uniqueIndex;not null" json:"user_id" bson:"user_id"`
	Items     WorkoutItems `gorm:"type:text" json:"items" bson:"items"`
	StartDate time.Time    `gorm:"type:date" json:"start_date" bson:"start_date"`
	EndDate   time.Time    `gorm:"type:date" json:"end_date" bson:"end_date"`
	CreatedAt time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" bson:"updated_at"`
}

func (WorkoutPlan) TableName() string {
	return "workout_plans"
}
