package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskbot/internal/model"
	"taskbot/internal/repository"
)

// WireTimeLayout is the fixed-width deadline format used on the chat wire.
// It is parsed to a real time.Time at this boundary; nothing downstream
// compares strings.
const WireTimeLayout = "2006-01-02 15:04"

// ParseWireTime validates and parses a "YYYY-MM-DD HH:mm" wire string.
// Calendar correctness is enforced here, not in the command parser.
func ParseWireTime(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(WireTimeLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad deadline %q: expected YYYY-MM-DD HH:mm", s)
	}
	return t, nil
}

// TaskInput carries everything needed to create a task.
type TaskInput struct {
	Title        string
	Deadline     *time.Time
	SoftDeadline *time.Time
	Type         string
	ProjectID    *uint
	Repeat       string
	Importance   int
	Details      string
}

// TaskService wraps the command-side task operations.
type TaskService struct {
	tasks    *repository.TaskRepository
	projects *repository.ProjectRepository
	log      *zap.Logger
}

func NewTaskService(tasks *repository.TaskRepository, projects *repository.ProjectRepository, log *zap.Logger) *TaskService {
	return &TaskService{tasks: tasks, projects: projects, log: log}
}

func (s *TaskService) CreateTask(ctx context.Context, ownerID string, input TaskInput) (*model.Task, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if ownerID == "" {
		return nil, fmt.Errorf("owner is required")
	}
	taskType := input.Type
	if taskType == "" {
		taskType = model.TypeShort
	}
	if input.Repeat != "" && !model.ValidRepeat(input.Repeat) {
		return nil, fmt.Errorf("unknown repeat rule %q", input.Repeat)
	}

	if input.ProjectID != nil {
		if _, err := s.projects.FindByID(ctx, ownerID, *input.ProjectID); err != nil {
			return nil, fmt.Errorf("project %d: %w", *input.ProjectID, err)
		}
	}

	task := model.Task{
		OwnerID:      ownerID,
		Title:        input.Title,
		Deadline:     input.Deadline,
		SoftDeadline: input.SoftDeadline,
		Status:       model.StatusPending,
		Type:         taskType,
		ProjectID:    input.ProjectID,
		Repeat:       input.Repeat,
		Importance:   input.Importance,
		Details:      input.Details,
	}
	if task.Repeat != "" {
		task.RecurrenceGroupID = uuid.NewString()
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, ownerID, taskType string) ([]model.Task, error) {
	return s.tasks.ListPendingByType(ctx, ownerID, taskType)
}

func (s *TaskService) ListProjectTasks(ctx context.Context, ownerID string, projectID uint) ([]model.Task, error) {
	return s.tasks.ListByProject(ctx, ownerID, projectID)
}

func (s *TaskService) CreateProject(ctx context.Context, ownerID, name string) (*model.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	return s.projects.Create(ctx, ownerID, name)
}

func (s *TaskService) ListProjects(ctx context.Context, ownerID string) ([]model.Project, error) {
	return s.projects.ListByOwner(ctx, ownerID)
}

// CompleteTask moves a pending task to done. Terminal tasks stay put.
func (s *TaskService) CompleteTask(ctx context.Context, ownerID string, taskID uint, doneAt time.Time) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != model.StatusPending {
		return nil, fmt.Errorf("task %d is already %s", taskID, task.Status)
	}
	if err := s.tasks.MarkDone(ctx, task, doneAt); err != nil {
		return nil, err
	}
	return task, nil
}

// SetProgress records progress on a long task, clamped into [0,100].
func (s *TaskService) SetProgress(ctx context.Context, ownerID string, taskID uint, progress int, at time.Time) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Type != model.TypeLong {
		return nil, fmt.Errorf("task %d does not track progress", taskID)
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	if err := s.tasks.SetProgress(ctx, task, progress, at); err != nil {
		return nil, err
	}
	return task, nil
}

// PostponeFailed reopens a failed task with a new deadline. Used by the
// triage prompt actions.
func (s *TaskService) PostponeFailed(ctx context.Context, ownerID string, taskID uint, deadline time.Time) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != model.StatusFailed {
		return nil, fmt.Errorf("task %d is not failed", taskID)
	}
	if err := s.tasks.ReopenFailed(ctx, task, deadline); err != nil {
		return nil, err
	}
	task.Status = model.StatusPending
	task.FailedAt = nil
	task.Deadline = &deadline
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, ownerID string, taskID uint) error {
	return s.tasks.Delete(ctx, ownerID, taskID)
}

// TomorrowAt returns tomorrow at the given hour in now's location.
func TomorrowAt(now time.Time, hour int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, hour, 0, 0, 0, now.Location())
}

// NextWeekdayAt returns the next Monday-to-Friday day strictly after now,
// at the given hour.
func NextWeekdayAt(now time.Time, hour int) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d+1, hour, 0, 0, 0, now.Location())
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
