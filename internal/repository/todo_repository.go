package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskbot/internal/model"
)

// TodoRepository manages sub-items attached to tasks.
type TodoRepository struct {
	db *gorm.DB
}

func NewTodoRepository(db *gorm.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

func (r *TodoRepository) Create(ctx context.Context, todo *model.Todo) error {
	if err := r.db.WithContext(ctx).Create(todo).Error; err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

func (r *TodoRepository) ListByTask(ctx context.Context, taskID uint) ([]model.Todo, error) {
	var todos []model.Todo
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("position ASC, id ASC").Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}

// ListOpenByTask returns the not-done sub-items of a task in position order.
func (r *TodoRepository) ListOpenByTask(ctx context.Context, taskID uint) ([]model.Todo, error) {
	var todos []model.Todo
	if err := r.db.WithContext(ctx).Where("task_id = ? AND done = ?", taskID, false).
		Order("position ASC, id ASC").Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}

// CopyOpenToTask copies the open sub-items of fromTaskID onto toTaskID,
// preserving relative order. The copy is a single transaction: either every
// open item is copied or none is.
func (r *TodoRepository) CopyOpenToTask(ctx context.Context, fromTaskID, toTaskID uint) (int, error) {
	todos, err := r.ListOpenByTask(ctx, fromTaskID)
	if err != nil {
		return 0, fmt.Errorf("list todos: %w", err)
	}
	if len(todos) == 0 {
		return 0, nil
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, todo := range todos {
			copied := model.Todo{
				TaskID:   toTaskID,
				Title:    todo.Title,
				Position: i,
			}
			if err := tx.Create(&copied).Error; err != nil {
				return fmt.Errorf("copy todo: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(todos), nil
}
