package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskbot/internal/model"
	"taskbot/internal/repository"
)

// Reasons reported by RecurrenceService when no successor is created.
const (
	ReasonNoNextTask   = "no_next_task"
	ReasonInsertFailed = "insert_failed"
)

// NextOptions selects how the successor deadline is derived. The two
// fields are mutually exclusive.
type NextOptions struct {
	// SkipDays, when positive, ignores the recurrence rule and pushes the
	// successor out by this many calendar days from the original deadline.
	// The overdue sweep uses it as a grace period after a failure.
	SkipDays int
	// SkipToNextInterval forces the normal rule regardless of the current
	// time. The daily reconciliation job sets it when backfilling an
	// occurrence that a missed tick never created.
	SkipToNextInterval bool
}

// NextResult reports the outcome of a regeneration attempt.
type NextResult struct {
	Created     bool
	TaskID      uint
	Deadline    time.Time
	CopiedTodos int
	Reason      string
	Err         error
}

// RecurrenceService creates the next occurrence of a recurring task.
type RecurrenceService struct {
	tasks *repository.TaskRepository
	todos *repository.TodoRepository
	log   *zap.Logger
}

func NewRecurrenceService(tasks *repository.TaskRepository, todos *repository.TodoRepository, log *zap.Logger) *RecurrenceService {
	return &RecurrenceService{tasks: tasks, todos: todos, log: log}
}

// CreateNext produces exactly one successor for a finished recurring task,
// or reports why none was created. Open sub-items of the original are
// copied onto the successor; a failed copy degrades to zero copied items
// and does not undo the successor itself.
func (s *RecurrenceService) CreateNext(ctx context.Context, task *model.Task, opts NextOptions) NextResult {
	if task.Repeat == "" || task.Deadline == nil {
		return NextResult{Reason: ReasonNoNextTask}
	}

	var next time.Time
	if opts.SkipDays > 0 {
		next = task.Deadline.AddDate(0, 0, opts.SkipDays)
	} else {
		computed, ok := nextByRule(*task.Deadline, task.Repeat)
		if !ok {
			return NextResult{Reason: ReasonNoNextTask}
		}
		next = computed
	}

	successor := model.Task{
		OwnerID:           task.OwnerID,
		Title:             task.Title,
		Deadline:          &next,
		SoftDeadline:      task.SoftDeadline,
		Status:            model.StatusPending,
		Type:              task.Type,
		ProjectID:         task.ProjectID,
		Repeat:            task.Repeat,
		RecurrenceGroupID: task.RecurrenceGroupID,
		Importance:        task.Importance,
		EstimatedMinutes:  task.EstimatedMinutes,
		URL:               task.URL,
		Details:           task.Details,
	}
	if err := s.tasks.Create(ctx, &successor); err != nil {
		return NextResult{Reason: ReasonInsertFailed, Err: err}
	}

	copied, err := s.todos.CopyOpenToTask(ctx, task.ID, successor.ID)
	if err != nil {
		// The occurrence itself is scheduled; losing the sub-items is
		// acceptable and only logged.
		s.log.Warn("copy todos to successor failed",
			zap.Uint("task_id", task.ID),
			zap.Uint("successor_id", successor.ID),
			zap.Error(err))
		copied = 0
	}

	return NextResult{
		Created:     true,
		TaskID:      successor.ID,
		Deadline:    next,
		CopiedTodos: copied,
	}
}

// nextByRule computes the deadline strictly after prev for the given
// recurrence rule, keeping the time of day.
func nextByRule(prev time.Time, repeat string) (time.Time, bool) {
	switch repeat {
	case model.RepeatDaily:
		return prev.AddDate(0, 0, 1), true
	case model.RepeatWeekdays:
		next := prev.AddDate(0, 0, 1)
		for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
			next = next.AddDate(0, 0, 1)
		}
		return next, true
	case model.RepeatWeekly:
		return prev.AddDate(0, 0, 7), true
	case model.RepeatMonthly:
		return addMonthClamped(prev), true
	}
	return time.Time{}, false
}

// addMonthClamped advances one calendar month, clamping the day to the
// target month's last day (Jan 31 becomes Feb 28/29, never Mar 2).
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	targetMonth := month + 1
	if last := daysInMonth(targetMonth, year); day > last {
		day = last
	}
	return time.Date(year, targetMonth, day, t.Hour(), t.Minute(), 0, 0, t.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Move to the month after the target, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lastOfMonth := firstOfMonth.AddDate(0, 1, -1)
	return lastOfMonth.Day()
}
