package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskbot/internal/model"
)

// GroupRepository manages per-owner watch group registrations.
type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Register stores chatID as the owner's watch group, superseding any prior
// registration for that owner.
func (r *GroupRepository) Register(ctx context.Context, ownerID string, chatID int64) (*model.Group, error) {
	var group model.Group
	db := r.db.WithContext(ctx)
	err := db.Where("owner_id = ?", ownerID).First(&group).Error
	switch {
	case err == nil:
		if err := db.Model(&group).Update("chat_id", chatID).Error; err != nil {
			return nil, fmt.Errorf("update group: %w", err)
		}
		group.ChatID = chatID
		return &group, nil
	case err == gorm.ErrRecordNotFound:
		group = model.Group{OwnerID: ownerID, ChatID: chatID}
		if err := db.Create(&group).Error; err != nil {
			return nil, fmt.Errorf("create group: %w", err)
		}
		return &group, nil
	default:
		return nil, fmt.Errorf("find group: %w", err)
	}
}

// FindByOwner returns the owner's watch group, or nil if none is registered.
func (r *GroupRepository) FindByOwner(ctx context.Context, ownerID string) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&group).Error
	switch {
	case err == nil:
		return &group, nil
	case err == gorm.ErrRecordNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("find group: %w", err)
	}
}
