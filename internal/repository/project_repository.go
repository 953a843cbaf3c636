package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskbot/internal/model"
)

// ProjectRepository manages task projects.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, ownerID, name string) (*model.Project, error) {
	project := model.Project{OwnerID: ownerID, Name: name}
	if err := r.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &project, nil
}

func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("name ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, ownerID string, projectID uint) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, projectID).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}
