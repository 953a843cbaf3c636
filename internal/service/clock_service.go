package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskbot/internal/model"
	"taskbot/internal/repository"
)

// Reminder offsets checked on every tick.
var reminderOffsets = []time.Duration{30 * time.Minute, 5 * time.Minute}

// ClockService is the per-minute deadline clock. Each tick runs three
// independent scans: the T-30 reminder, the T-5 reminder, and the overdue
// sweep. Every scan is idempotent for a given minute.
type ClockService struct {
	tasks    *repository.TaskRepository
	groups   *repository.GroupRepository
	recur    *RecurrenceService
	notifier Notifier
	log      *zap.Logger
}

func NewClockService(tasks *repository.TaskRepository, groups *repository.GroupRepository, recur *RecurrenceService, notifier Notifier, log *zap.Logger) *ClockService {
	return &ClockService{tasks: tasks, groups: groups, recur: recur, notifier: notifier, log: log}
}

// Tick runs one clock pass against the given wall-clock instant.
func (s *ClockService) Tick(ctx context.Context, now time.Time) {
	now = now.Truncate(time.Minute)
	for _, offset := range reminderOffsets {
		s.remindUpcoming(ctx, now, offset)
	}
	s.sweepOverdue(ctx, now)
}

// remindUpcoming sends one reminder per pending task whose deadline falls
// exactly offset ahead of now, with a button to close the task right away.
// Delivery is fire-and-forget.
func (s *ClockService) remindUpcoming(ctx context.Context, now time.Time, offset time.Duration) {
	due, err := s.tasks.ListPendingDueAtMinute(ctx, now.Add(offset))
	if err != nil {
		s.log.Error("list upcoming tasks", zap.Duration("offset", offset), zap.Error(err))
		return
	}
	for _, task := range due {
		text := fmt.Sprintf("⏳ Due in %d min: %s (%s)",
			int(offset.Minutes()), task.Title, task.Deadline.Format("15:04"))
		buttons := []PromptButton{
			doneButton(task.ID),
			cancelButton(task.ID),
		}
		if err := s.notifier.SendPrompt(ctx, task.OwnerID, text, buttons); err != nil {
			s.log.Warn("send upcoming reminder",
				zap.Uint("task_id", task.ID),
				zap.String("owner", task.OwnerID),
				zap.Error(err))
		}
	}
}

// sweepOverdue fails every pending task whose deadline has passed, then
// fans out notifications and recurrence regeneration per task. The batch
// transition happens first and alone; no side-effect failure can roll it
// back or starve the remaining tasks.
func (s *ClockService) sweepOverdue(ctx context.Context, now time.Time) {
	overdue, err := s.tasks.ListPendingDueBy(ctx, now)
	if err != nil {
		s.log.Error("list overdue tasks", zap.Error(err))
		return
	}
	if len(overdue) == 0 {
		return
	}

	ids := make([]uint, len(overdue))
	for i, task := range overdue {
		ids[i] = task.ID
	}
	// Fan out only over the rows the update really transitioned: a task
	// the owner completed between the select and the update stays done
	// and must not trigger a failure notice.
	failed, err := s.tasks.FailAll(ctx, ids, now)
	if err != nil {
		s.log.Error("fail overdue batch", zap.Int("count", len(ids)), zap.Error(err))
		return
	}
	s.log.Info("overdue sweep", zap.Int("failed", len(failed)))

	for _, task := range failed {
		s.fanOutFailure(ctx, task, now)
	}
}

func (s *ClockService) fanOutFailure(ctx context.Context, task model.Task, now time.Time) {
	text := fmt.Sprintf("⚠️ Task failed: %s (was due %s)",
		task.Title, task.Deadline.Format("2006-01-02 15:04"))
	if err := s.notifier.SendToUser(ctx, task.OwnerID, text); err != nil {
		s.log.Warn("notify owner of failure", zap.Uint("task_id", task.ID), zap.Error(err))
	}

	group, err := s.groups.FindByOwner(ctx, task.OwnerID)
	if err != nil {
		s.log.Warn("look up watch group", zap.String("owner", task.OwnerID), zap.Error(err))
	} else if group != nil {
		if err := s.notifier.SendToGroup(ctx, group.ChatID, text); err != nil {
			s.log.Warn("notify watch group", zap.Uint("task_id", task.ID), zap.Error(err))
		}
	}

	if !task.Recurring() {
		return
	}
	// One-day grace after a failure instead of the rule's own step.
	result := s.recur.CreateNext(ctx, &task, NextOptions{SkipDays: 1})
	if !result.Created {
		s.log.Warn("regenerate recurring task",
			zap.Uint("task_id", task.ID),
			zap.String("reason", result.Reason),
			zap.Error(result.Err))
		return
	}
	next := fmt.Sprintf("♻️ Rescheduled: %s → %s",
		task.Title, result.Deadline.Format("2006-01-02 15:04"))
	if err := s.notifier.SendToUser(ctx, task.OwnerID, next); err != nil {
		s.log.Warn("notify owner of reschedule", zap.Uint("task_id", result.TaskID), zap.Error(err))
	}
}
