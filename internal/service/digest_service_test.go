package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbot/internal/command"
	"taskbot/internal/model"
	"taskbot/internal/repository"
)

func newDigest(t *testing.T) (*DigestService, *repository.TaskRepository, *repository.TodoRepository, *fakeNotifier) {
	t.Helper()
	_, tasks, todos, _ := newRepos(t)
	notifier := newFakeNotifier()
	recur := NewRecurrenceService(tasks, todos, testLogger())
	return NewDigestService(tasks, recur, notifier, 1000, testLogger()), tasks, todos, notifier
}

func pendingTask(owner, title string, deadline *time.Time) *model.Task {
	return &model.Task{OwnerID: owner, Title: title, Deadline: deadline, Status: model.StatusPending, Type: model.TypeShort}
}

func TestMorningSummary(t *testing.T) {
	digest, tasks, _, notifier := newDigest(t)
	ctx := context.Background()
	now := mustTime(t, "2025-01-10 08:00")

	overdue := mustTime(t, "2025-01-09 18:00")
	today := mustTime(t, "2025-01-10 15:00")
	soft := mustTime(t, "2025-01-10 12:00")
	later := mustTime(t, "2025-02-01 09:00")

	require.NoError(t, tasks.Create(ctx, pendingTask("owner-1", "send invoice", &overdue)))
	require.NoError(t, tasks.Create(ctx, pendingTask("owner-1", "review slides", &today)))
	softTask := pendingTask("owner-1", "stretch break", nil)
	softTask.SoftDeadline = &soft
	require.NoError(t, tasks.Create(ctx, softTask))
	// An owner with only far-future work gets no digest.
	require.NoError(t, tasks.Create(ctx, pendingTask("owner-2", "plan trip", &later)))

	digest.MorningSummary(ctx, now)

	messages := notifier.userMessages("owner-1")
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Text, "send invoice")
	assert.Contains(t, messages[0].Text, "review slides")
	assert.Contains(t, messages[0].Text, "stretch break")
	assert.Empty(t, notifier.userMessages("owner-2"))

	// One delete prompt per overdue task.
	prompts := notifier.promptsFor("owner-1")
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "send invoice")
	require.Len(t, prompts[0].Buttons, 2)
	assert.Equal(t, command.PromptDeleteTask, prompts[0].Buttons[0].Prompt.Action)
}

func TestMorningSummaryCapsDeletePrompts(t *testing.T) {
	digest, tasks, _, notifier := newDigest(t)
	ctx := context.Background()
	now := mustTime(t, "2025-01-10 08:00")

	for i := 0; i < 8; i++ {
		overdue := mustTime(t, "2025-01-09 18:00")
		require.NoError(t, tasks.Create(ctx, pendingTask("owner-1", fmt.Sprintf("chore %d", i), &overdue)))
	}

	digest.MorningSummary(ctx, now)
	assert.Len(t, notifier.promptsFor("owner-1"), 5)
}

func TestEveningPlan(t *testing.T) {
	digest, tasks, _, notifier := newDigest(t)
	ctx := context.Background()
	now := mustTime(t, "2025-01-10 21:00")

	tonight := mustTime(t, "2025-01-10 23:00")
	tomorrow := mustTime(t, "2025-01-11 10:00")
	require.NoError(t, tasks.Create(ctx, pendingTask("owner-1", "late workout", &tonight)))
	require.NoError(t, tasks.Create(ctx, pendingTask("owner-1", "dentist", &tomorrow)))

	digest.EveningPlan(ctx, now)

	messages := notifier.userMessages("owner-1")
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Text, "late workout")
	assert.Contains(t, messages[0].Text, "dentist")
	assert.Contains(t, messages[0].Text, "plan tomorrow")
}

func TestMorningTriage(t *testing.T) {
	digest, tasks, _, notifier := newDigest(t)
	ctx := context.Background()
	now := mustTime(t, "2025-01-10 08:30")

	failedAt := mustTime(t, "2025-01-09 12:00")
	for i := 0; i < 7; i++ {
		deadline := mustTime(t, "2025-01-09 11:00")
		task := pendingTask("owner-1", fmt.Sprintf("missed %d", i), &deadline)
		task.Status = model.StatusFailed
		task.FailedAt = &failedAt
		require.NoError(t, tasks.Create(ctx, task))
	}
	// A task failed two days ago is not triaged today.
	old := mustTime(t, "2025-01-08 12:00")
	stale := pendingTask("owner-1", "stale", &old)
	stale.Status = model.StatusFailed
	stale.FailedAt = &old
	require.NoError(t, tasks.Create(ctx, stale))

	digest.MorningTriage(ctx, now)

	prompts := notifier.promptsFor("owner-1")
	require.Len(t, prompts, 5)
	for _, p := range prompts {
		require.Len(t, p.Buttons, 4)
		assert.Equal(t, command.PromptPostponeTomorrow, p.Buttons[0].Prompt.Action)
		assert.Equal(t, command.PromptPostponeWeekday, p.Buttons[1].Prompt.Action)
		assert.Equal(t, command.PromptDeleteTask, p.Buttons[2].Prompt.Action)
		assert.Equal(t, command.PromptCancel, p.Buttons[3].Prompt.Action)
	}
}

func TestReconcileRecurringBackfills(t *testing.T) {
	digest, tasks, _, _ := newDigest(t)
	ctx := context.Background()
	now := mustTime(t, "2025-01-11 07:50")

	deadline := mustTime(t, "2025-01-10 09:00")
	failedAt := mustTime(t, "2025-01-10 09:01")
	broken := &model.Task{
		OwnerID:           "owner-1",
		Title:             "journal",
		Deadline:          &deadline,
		Status:            model.StatusFailed,
		FailedAt:          &failedAt,
		Type:              model.TypeShort,
		Repeat:            model.RepeatDaily,
		RecurrenceGroupID: "group-journal",
	}
	require.NoError(t, tasks.Create(ctx, broken))

	digest.ReconcileRecurring(ctx, now)

	pending, err := tasks.ListPendingByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "journal", pending[0].Title)
	assert.True(t, pending[0].Deadline.Equal(mustTime(t, "2025-01-11 09:00")))
	assert.Equal(t, "group-journal", pending[0].RecurrenceGroupID)

	// Running again must not duplicate the backfilled occurrence.
	digest.ReconcileRecurring(ctx, now)
	pending, err = tasks.ListPendingByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestReconcileRecurringSkipsHealthyChains(t *testing.T) {
	digest, tasks, _, _ := newDigest(t)
	ctx := context.Background()
	now := mustTime(t, "2025-01-11 07:50")

	deadline := mustTime(t, "2025-01-10 09:00")
	doneAt := mustTime(t, "2025-01-10 08:30")
	finished := &model.Task{
		OwnerID:           "owner-1",
		Title:             "journal",
		Deadline:          &deadline,
		Status:            model.StatusDone,
		DoneAt:            &doneAt,
		Type:              model.TypeShort,
		Repeat:            model.RepeatDaily,
		RecurrenceGroupID: "group-journal",
	}
	require.NoError(t, tasks.Create(ctx, finished))

	nextDeadline := mustTime(t, "2025-01-11 09:00")
	successor := &model.Task{
		OwnerID:           "owner-1",
		Title:             "journal",
		Deadline:          &nextDeadline,
		Status:            model.StatusPending,
		Type:              model.TypeShort,
		Repeat:            model.RepeatDaily,
		RecurrenceGroupID: "group-journal",
	}
	require.NoError(t, tasks.Create(ctx, successor))

	digest.ReconcileRecurring(ctx, now)

	pending, err := tasks.ListPendingByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
