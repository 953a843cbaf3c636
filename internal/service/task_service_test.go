package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbot/internal/model"
	"taskbot/internal/repository"
)

func newTaskService(t *testing.T) (*TaskService, *repository.TaskRepository) {
	t.Helper()
	db := newTestDB(t)
	tasks := repository.NewTaskRepository(db)
	projects := repository.NewProjectRepository(db)
	return NewTaskService(tasks, projects, testLogger()), tasks
}

func TestParseWireTime(t *testing.T) {
	parsed, err := ParseWireTime("2025-09-01 09:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC), parsed)

	// The parser lets this shape through; the boundary rejects it.
	_, err = ParseWireTime("2099-99-99 99:99", time.UTC)
	assert.Error(t, err)
}

func TestCreateTaskAssignsRecurrenceGroup(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()

	recurring, err := svc.CreateTask(ctx, "owner-1", TaskInput{Title: "journal", Repeat: model.RepeatDaily})
	require.NoError(t, err)
	assert.NotEmpty(t, recurring.RecurrenceGroupID)

	oneOff, err := svc.CreateTask(ctx, "owner-1", TaskInput{Title: "errand"})
	require.NoError(t, err)
	assert.Empty(t, oneOff.RecurrenceGroupID)
	assert.Equal(t, model.TypeShort, oneOff.Type)

	_, err = svc.CreateTask(ctx, "owner-1", TaskInput{Title: "bad", Repeat: "fortnightly"})
	assert.Error(t, err)

	_, err = svc.CreateTask(ctx, "owner-1", TaskInput{})
	assert.Error(t, err)
}

func TestCompleteTask(t *testing.T) {
	svc, tasks := newTaskService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, "owner-1", TaskInput{Title: "errand"})
	require.NoError(t, err)

	doneAt := mustTime(t, "2025-01-10 12:00")
	done, err := svc.CompleteTask(ctx, "owner-1", created.ID, doneAt)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, done.Status)
	require.NotNil(t, done.DoneAt)
	assert.Nil(t, done.FailedAt)

	// Terminal tasks stay terminal.
	_, err = svc.CompleteTask(ctx, "owner-1", created.ID, doneAt)
	assert.Error(t, err)

	// Other owners cannot touch the task.
	_, err = svc.CompleteTask(ctx, "owner-2", created.ID, doneAt)
	assert.Error(t, err)

	stored, err := tasks.FindByID(ctx, "owner-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, stored.Status)
}

func TestSetProgress(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()
	at := mustTime(t, "2025-01-10 12:00")

	long, err := svc.CreateTask(ctx, "owner-1", TaskInput{Title: "thesis", Type: model.TypeLong})
	require.NoError(t, err)

	updated, err := svc.SetProgress(ctx, "owner-1", long.ID, 150, at)
	require.NoError(t, err)
	assert.Equal(t, 100, updated.Progress)
	require.NotNil(t, updated.LastProgressAt)

	updated, err = svc.SetProgress(ctx, "owner-1", long.ID, -10, at)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Progress)

	short, err := svc.CreateTask(ctx, "owner-1", TaskInput{Title: "errand"})
	require.NoError(t, err)
	_, err = svc.SetProgress(ctx, "owner-1", short.ID, 50, at)
	assert.Error(t, err)
}

func TestPostponeFailed(t *testing.T) {
	svc, tasks := newTaskService(t)
	ctx := context.Background()

	deadline := mustTime(t, "2025-01-09 09:00")
	failedAt := mustTime(t, "2025-01-09 09:01")
	task := &model.Task{OwnerID: "owner-1", Title: "missed", Deadline: &deadline, Status: model.StatusFailed, FailedAt: &failedAt, Type: model.TypeShort}
	require.NoError(t, tasks.Create(ctx, task))

	next := mustTime(t, "2025-01-10 09:00")
	reopened, err := svc.PostponeFailed(ctx, "owner-1", task.ID, next)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, reopened.Status)
	assert.Nil(t, reopened.FailedAt)

	stored, err := tasks.FindByID(ctx, "owner-1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Nil(t, stored.FailedAt)
	assert.True(t, stored.Deadline.Equal(next))

	// Pending tasks cannot be postponed through the triage path.
	_, err = svc.PostponeFailed(ctx, "owner-1", task.ID, next)
	assert.Error(t, err)
}

func TestPostponeHelpers(t *testing.T) {
	// 2025-01-10 is a Friday.
	friday := mustTime(t, "2025-01-10 21:00")
	assert.Equal(t, mustTime(t, "2025-01-11 09:00"), TomorrowAt(friday, 9))
	assert.Equal(t, mustTime(t, "2025-01-13 09:00"), NextWeekdayAt(friday, 9))

	sunday := mustTime(t, "2025-01-12 10:00")
	assert.Equal(t, mustTime(t, "2025-01-13 09:00"), TomorrowAt(sunday, 9))
	assert.Equal(t, mustTime(t, "2025-01-13 09:00"), NextWeekdayAt(sunday, 9))
}
