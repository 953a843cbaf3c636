package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskbot/internal/model"
)

// TaskRepository handles persistence for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, ownerID string, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListPendingByType returns an owner's pending tasks of the given type,
// closest deadline first, tasks without a deadline last.
func (r *TaskRepository) ListPendingByType(ctx context.Context, ownerID, taskType string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ? AND type = ?", ownerID, model.StatusPending, taskType).
		Order("deadline IS NULL, deadline ASC, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) ListPendingByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, model.StatusPending).
		Order("deadline IS NULL, deadline ASC, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) ListByProject(ctx context.Context, ownerID string, projectID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND project_id = ? AND status = ?", ownerID, projectID, model.StatusPending).
		Order("deadline IS NULL, deadline ASC, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) MarkDone(ctx context.Context, task *model.Task, doneAt time.Time) error {
	task.Status = model.StatusDone
	task.DoneAt = &doneAt
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("mark task done: %w", err)
	}
	return nil
}

func (r *TaskRepository) SetProgress(ctx context.Context, task *model.Task, progress int, at time.Time) error {
	task.Progress = progress
	task.LastProgressAt = &at
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// ReopenFailed puts a failed task back into the pending pool with a fresh
// deadline. Used by the triage postpone actions.
func (r *TaskRepository) ReopenFailed(ctx context.Context, task *model.Task, deadline time.Time) error {
	updates := map[string]interface{}{
		"status":    model.StatusPending,
		"failed_at": nil,
		"deadline":  deadline,
	}
	if err := r.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return fmt.Errorf("reopen task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID string, taskID uint) error {
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).
		Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListPendingDueBy returns all pending tasks whose deadline has passed the
// cutoff. Used by the overdue sweep.
func (r *TaskRepository) ListPendingDueBy(ctx context.Context, cutoff time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("status = ? AND deadline IS NOT NULL AND deadline <= ?", model.StatusPending, cutoff).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListPendingDueAtMinute returns pending tasks whose deadline falls inside
// the given minute. Used by the T-30/T-5 reminders.
func (r *TaskRepository) ListPendingDueAtMinute(ctx context.Context, minute time.Time) ([]model.Task, error) {
	start := minute.Truncate(time.Minute)
	end := start.Add(time.Minute)
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("status = ? AND deadline >= ? AND deadline < ?", model.StatusPending, start, end).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// FailAll transitions the given tasks to failed in a single statement, so
// the whole batch leaves the pending pool atomically. It returns the rows
// the update actually transitioned: a task completed between selection and
// this call stays done and is not reported back.
func (r *TaskRepository) FailAll(ctx context.Context, ids []uint, failedAt time.Time) ([]model.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	updates := map[string]interface{}{
		"status":     model.StatusFailed,
		"failed_at":  failedAt,
		"updated_at": failedAt,
	}
	var failed []model.Task
	if err := r.db.WithContext(ctx).Model(&failed).
		Clauses(clause.Returning{}).
		Where("id IN ? AND status = ?", ids, model.StatusPending).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("fail tasks: %w", err)
	}
	return failed, nil
}

// ListOwnersWithPendingDue returns owners holding pending tasks that are
// overdue, due before dayEnd, or soft-due within [dayStart, dayEnd).
func (r *TaskRepository) ListOwnersWithPendingDue(ctx context.Context, dayStart, dayEnd time.Time, limit int) ([]string, error) {
	var owners []string
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("status = ? AND ((deadline IS NOT NULL AND deadline < ?) OR (soft_deadline IS NOT NULL AND soft_deadline >= ? AND soft_deadline < ?))",
			model.StatusPending, dayEnd, dayStart, dayEnd).
		Distinct("owner_id").
		Limit(limit).
		Pluck("owner_id", &owners).Error; err != nil {
		return nil, err
	}
	return owners, nil
}

func (r *TaskRepository) ListOwnersWithPending(ctx context.Context, limit int) ([]string, error) {
	var owners []string
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("status = ?", model.StatusPending).
		Distinct("owner_id").
		Limit(limit).
		Pluck("owner_id", &owners).Error; err != nil {
		return nil, err
	}
	return owners, nil
}

// ListOwnersFailedBetween returns owners with tasks that failed inside
// [from, to). Used by the morning triage job.
func (r *TaskRepository) ListOwnersFailedBetween(ctx context.Context, from, to time.Time, limit int) ([]string, error) {
	var owners []string
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("status = ? AND failed_at >= ? AND failed_at < ?", model.StatusFailed, from, to).
		Distinct("owner_id").
		Limit(limit).
		Pluck("owner_id", &owners).Error; err != nil {
		return nil, err
	}
	return owners, nil
}

func (r *TaskRepository) ListFailedBetween(ctx context.Context, ownerID string, from, to time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ? AND failed_at >= ? AND failed_at < ?", ownerID, model.StatusFailed, from, to).
		Order("failed_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListGroupsFinishedBetween returns the recurrence groups that had an
// occurrence reach a terminal state inside [from, to).
func (r *TaskRepository) ListGroupsFinishedBetween(ctx context.Context, from, to time.Time, limit int) ([]string, error) {
	var groups []string
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("recurrence_group_id <> '' AND ((done_at >= ? AND done_at < ?) OR (failed_at >= ? AND failed_at < ?))",
			from, to, from, to).
		Distinct("recurrence_group_id").
		Limit(limit).
		Pluck("recurrence_group_id", &groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// LatestInGroup returns the most recent occurrence of a recurrence group,
// by deadline. It serves as the template for backfilling.
func (r *TaskRepository) LatestInGroup(ctx context.Context, groupID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).
		Where("recurrence_group_id = ?", groupID).
		Order("deadline DESC").
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// HasPendingSuccessor reports whether the group already has a pending
// occurrence with a deadline at or after the given instant.
func (r *TaskRepository) HasPendingSuccessor(ctx context.Context, groupID string, since time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("recurrence_group_id = ? AND status = ? AND deadline >= ?", groupID, model.StatusPending, since).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
