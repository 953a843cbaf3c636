package model

import "time"

// Group is the watch group registered by an owner via "watch here".
// At most one row exists per owner; re-registering supersedes the old one.
type Group struct {
	ID        uint   `gorm:"primaryKey"`
	OwnerID   string `gorm:"uniqueIndex"`
	ChatID    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
