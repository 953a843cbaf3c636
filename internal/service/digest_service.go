package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskbot/internal/command"
	"taskbot/internal/model"
	"taskbot/internal/repository"
)

// triagePromptCap bounds the number of per-task prompts sent to one owner
// in a single morning run.
const triagePromptCap = 5

// DigestService runs the once-daily jobs: morning summary, evening plan,
// failed-task triage, and recurring-task reconciliation. Every job walks a
// bounded set of owners and never lets one owner's failure stop the rest.
type DigestService struct {
	tasks      *repository.TaskRepository
	recur      *RecurrenceService
	notifier   Notifier
	log        *zap.Logger
	ownerLimit int
}

func NewDigestService(tasks *repository.TaskRepository, recur *RecurrenceService, notifier Notifier, ownerLimit int, log *zap.Logger) *DigestService {
	if ownerLimit <= 0 {
		ownerLimit = 1000
	}
	return &DigestService{tasks: tasks, recur: recur, notifier: notifier, log: log, ownerLimit: ownerLimit}
}

// MorningSummary sends each relevant owner one digest of today's and
// overdue work, followed by up to five delete prompts for overdue tasks.
func (s *DigestService) MorningSummary(ctx context.Context, now time.Time) {
	dayStart := startOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)

	owners, err := s.tasks.ListOwnersWithPendingDue(ctx, dayStart, dayEnd, s.ownerLimit)
	if err != nil {
		s.log.Error("morning summary: list owners", zap.Error(err))
		return
	}
	for _, owner := range owners {
		if err := s.morningSummaryFor(ctx, owner, now, dayEnd); err != nil {
			s.log.Warn("morning summary: owner skipped", zap.String("owner", owner), zap.Error(err))
		}
	}
}

func (s *DigestService) morningSummaryFor(ctx context.Context, owner string, now, dayEnd time.Time) error {
	pending, err := s.tasks.ListPendingByOwner(ctx, owner)
	if err != nil {
		return err
	}

	var overdue, dueToday, softToday []model.Task
	for _, task := range pending {
		if task.Deadline != nil {
			switch {
			case task.Deadline.Before(now):
				overdue = append(overdue, task)
			case task.Deadline.Before(dayEnd):
				dueToday = append(dueToday, task)
			}
		}
		if task.SoftDeadline != nil && !task.SoftDeadline.Before(startOfDay(now)) && task.SoftDeadline.Before(dayEnd) {
			softToday = append(softToday, task)
		}
	}
	if len(overdue)+len(dueToday)+len(softToday) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("🌅 Morning summary\n")
	b.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("2006-01-02")))
	writeSection(&b, "⚠️ Overdue", overdue)
	writeSection(&b, "🔥 Due today", dueToday)
	writeSection(&b, "💡 Soft deadline today", softToday)

	if err := s.notifier.SendToUser(ctx, owner, strings.TrimSpace(b.String())); err != nil {
		return err
	}

	for i, task := range overdue {
		if i == triagePromptCap {
			break
		}
		text := fmt.Sprintf("Delete overdue task \"%s\"?", task.Title)
		buttons := []PromptButton{
			deleteButton(task.ID),
			cancelButton(task.ID),
		}
		if err := s.notifier.SendPrompt(ctx, owner, text, buttons); err != nil {
			s.log.Warn("morning summary: delete prompt", zap.Uint("task_id", task.ID), zap.Error(err))
		}
	}
	return nil
}

// EveningPlan reminds each owner with open work about today's remaining
// and tomorrow's due tasks, prompting next-day planning.
func (s *DigestService) EveningPlan(ctx context.Context, now time.Time) {
	dayEnd := startOfDay(now).AddDate(0, 0, 1)
	nextDayEnd := dayEnd.AddDate(0, 0, 1)

	owners, err := s.tasks.ListOwnersWithPending(ctx, s.ownerLimit)
	if err != nil {
		s.log.Error("evening plan: list owners", zap.Error(err))
		return
	}
	for _, owner := range owners {
		pending, err := s.tasks.ListPendingByOwner(ctx, owner)
		if err != nil {
			s.log.Warn("evening plan: owner skipped", zap.String("owner", owner), zap.Error(err))
			continue
		}

		var remaining, tomorrow []model.Task
		for _, task := range pending {
			if task.Deadline == nil {
				continue
			}
			switch {
			case !task.Deadline.Before(now) && task.Deadline.Before(dayEnd):
				remaining = append(remaining, task)
			case !task.Deadline.Before(dayEnd) && task.Deadline.Before(nextDayEnd):
				tomorrow = append(tomorrow, task)
			}
		}

		var b strings.Builder
		b.WriteString("🌙 Evening check-in\n")
		writeSection(&b, "⏰ Still due today", remaining)
		writeSection(&b, "📅 Due tomorrow", tomorrow)
		b.WriteString("\nTake a minute to plan tomorrow.")

		if err := s.notifier.SendToUser(ctx, owner, strings.TrimSpace(b.String())); err != nil {
			s.log.Warn("evening plan: send", zap.String("owner", owner), zap.Error(err))
		}
	}
}

// MorningTriage walks owners whose tasks failed yesterday and offers a
// structured prompt per task: postpone to tomorrow 9am, postpone to the
// next weekday 9am, delete, or cancel. At most five prompts per owner.
func (s *DigestService) MorningTriage(ctx context.Context, now time.Time) {
	dayStart := startOfDay(now)
	yesterday := dayStart.AddDate(0, 0, -1)

	owners, err := s.tasks.ListOwnersFailedBetween(ctx, yesterday, dayStart, s.ownerLimit)
	if err != nil {
		s.log.Error("triage: list owners", zap.Error(err))
		return
	}
	for _, owner := range owners {
		failed, err := s.tasks.ListFailedBetween(ctx, owner, yesterday, dayStart)
		if err != nil {
			s.log.Warn("triage: owner skipped", zap.String("owner", owner), zap.Error(err))
			continue
		}
		for i, task := range failed {
			if i == triagePromptCap {
				break
			}
			text := fmt.Sprintf("\"%s\" failed yesterday. What should happen to it?", task.Title)
			buttons := []PromptButton{
				{Label: "⏭ Tomorrow 9:00", Prompt: prompt(command.PromptPostponeTomorrow, task.ID)},
				{Label: "📆 Next weekday 9:00", Prompt: prompt(command.PromptPostponeWeekday, task.ID)},
				deleteButton(task.ID),
				cancelButton(task.ID),
			}
			if err := s.notifier.SendPrompt(ctx, owner, text, buttons); err != nil {
				s.log.Warn("triage: prompt", zap.Uint("task_id", task.ID), zap.Error(err))
			}
		}
	}
}

// ReconcileRecurring backfills recurrence chains that a missed clock tick
// left broken: groups whose latest occurrence finished yesterday and which
// have no pending occurrence dated today or later get their next
// occurrence scheduled from the latest one as a template.
func (s *DigestService) ReconcileRecurring(ctx context.Context, now time.Time) {
	dayStart := startOfDay(now)
	yesterday := dayStart.AddDate(0, 0, -1)

	groups, err := s.tasks.ListGroupsFinishedBetween(ctx, yesterday, dayStart, s.ownerLimit)
	if err != nil {
		s.log.Error("reconcile: list groups", zap.Error(err))
		return
	}
	for _, groupID := range groups {
		has, err := s.tasks.HasPendingSuccessor(ctx, groupID, dayStart)
		if err != nil {
			s.log.Warn("reconcile: successor check", zap.String("group", groupID), zap.Error(err))
			continue
		}
		if has {
			continue
		}
		template, err := s.tasks.LatestInGroup(ctx, groupID)
		if err != nil {
			s.log.Warn("reconcile: load template", zap.String("group", groupID), zap.Error(err))
			continue
		}
		result := s.recur.CreateNext(ctx, template, NextOptions{SkipToNextInterval: true})
		if !result.Created {
			s.log.Warn("reconcile: no successor",
				zap.String("group", groupID),
				zap.String("reason", result.Reason),
				zap.Error(result.Err))
			continue
		}
		s.log.Info("reconcile: occurrence backfilled",
			zap.String("group", groupID),
			zap.Uint("task_id", result.TaskID),
			zap.Time("deadline", result.Deadline))
	}
}

func writeSection(b *strings.Builder, header string, tasks []model.Task) {
	b.WriteString("\n" + header + "\n")
	if len(tasks) == 0 {
		b.WriteString("— none\n")
		return
	}
	for _, task := range tasks {
		b.WriteString(fmt.Sprintf("• [%d] %s", task.ID, task.Title))
		if task.Deadline != nil {
			b.WriteString(" (" + task.Deadline.Format("15:04") + ")")
		}
		b.WriteByte('\n')
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
