package model

import "time"

// Project groups tasks for one owner.
type Project struct {
	ID        uint   `gorm:"primaryKey"`
	OwnerID   string `gorm:"index:idx_owner_project_name,unique"`
	Name      string `gorm:"index:idx_owner_project_name,unique"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Tasks     []Task `gorm:"foreignKey:ProjectID"`
}
