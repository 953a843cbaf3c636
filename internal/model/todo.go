package model

import "time"

// Todo is a sub-item attached to a task. Position keeps the relative order
// within the task.
type Todo struct {
	ID        uint `gorm:"primaryKey"`
	TaskID    uint `gorm:"index"`
	Title     string
	Done      bool `gorm:"default:false"`
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
}
