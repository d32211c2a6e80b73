package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/mindgarden/internal/apperror"
	"github.com/sakif/mindgarden/internal/model"
	"github.com/sakif/mindgarden/internal/repository"
)

// TaskService manages daily wellness tasks. Completing a task is the
// canonical server-internal flow that credits user points — clients never set
// a balance directly.
type TaskService struct {
	tasks  repository.TaskRepository
	auth   *AuthService
	logger *slog.Logger
}

func NewTaskService(tasks repository.TaskRepository, auth *AuthService, logger *slog.Logger) *TaskService {
	return &TaskService{tasks: tasks, auth: auth, logger: logger}
}

// Create adds a task for today. points nil means the default award (10).
func (s *TaskService) Create(ctx context.Context, userID, name string, points *int) (*model.Task, error) {
	if userID == "" || name == "" {
		return nil, apperror.ValidationFailed("taskName", "Missing required fields")
	}

	award := model.DefaultTaskPoints
	if points != nil {
		if *points < 0 {
			return nil, apperror.ValidationFailed("completionPoints", "Points must not be negative")
		}
		award = *points
	}

	task := &model.Task{
		ID:               uuid.NewString(),
		UserID:           userID,
		Name:             name,
		CompletionPoints: award,
		Date:             time.Now().UTC().Format("2006-01-02"),
	}

	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: %w", err)
	}
	return task, nil
}

// SetCompleted toggles completion. Points are awarded only on the transition
// into the completed state; re-completing or un-completing a task never
// touches the balance, so toggling cannot be farmed for points.
func (s *TaskService) SetCompleted(ctx context.Context, taskID string, completed bool) (*model.Task, error) {
	if taskID == "" {
		return nil, apperror.ValidationFailed("taskId", "Task ID is required")
	}

	current, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("service/task: %w", err)
	}

	var completedAt *time.Time
	if completed {
		now := time.Now().UTC()
		completedAt = &now
	}

	task, err := s.tasks.SetTaskCompleted(ctx, taskID, completed, completedAt)
	if err != nil {
		return nil, fmt.Errorf("service/task: %w", err)
	}

	if completed && !current.IsCompleted && task.CompletionPoints > 0 {
		if _, err := s.auth.AwardPoints(ctx, task.UserID, task.CompletionPoints); err != nil {
			return nil, fmt.Errorf("service/task: crediting completion: %w", err)
		}
	}

	return task, nil
}

// TodayTasks lists the user's tasks for the current day.
func (s *TaskService) TodayTasks(ctx context.Context, userID string) ([]model.Task, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "Missing userId")
	}
	today := time.Now().UTC().Format("2006-01-02")
	tasks, err := s.tasks.ListTasksByDate(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("service/task: %w", err)
	}
	return tasks, nil
}
