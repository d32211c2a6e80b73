package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/mindgarden/internal/apperror"
	"github.com/sakif/mindgarden/internal/model"
)

func newTestTaskService(store *fakeStore) (*TaskService, *AuthService) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	authSvc := newTestAuthService(store)
	return NewTaskService(store, authSvc, logger), authSvc
}

func TestTaskCreate_Defaults(t *testing.T) {
	store := newFakeStore()
	svc, authSvc := newTestTaskService(store)
	user := register(t, authSvc, "a@x.com", "pw")

	task, err := svc.Create(context.Background(), user.ID, "Evening walk", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if task.CompletionPoints != model.DefaultTaskPoints {
		t.Errorf("CompletionPoints = %d, want %d", task.CompletionPoints, model.DefaultTaskPoints)
	}
	if task.IsCompleted {
		t.Error("new tasks start incomplete")
	}
	if task.ID == "" || task.Date == "" {
		t.Errorf("ID/Date not populated: %+v", task)
	}
}

func TestTaskCreate_Validation(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestTaskService(store)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "", "walk", nil); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("missing user: err = %v, want validation error", err)
	}
	if _, err := svc.Create(ctx, "u1", "", nil); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("missing name: err = %v, want validation error", err)
	}
	negative := -5
	if _, err := svc.Create(ctx, "u1", "walk", &negative); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("negative points: err = %v, want validation error", err)
	}
}

func TestSetCompleted_AwardsPointsExactlyOnce(t *testing.T) {
	store := newFakeStore()
	svc, authSvc := newTestTaskService(store)
	user := register(t, authSvc, "a@x.com", "pw") // 15 points
	ctx := context.Background()

	points := 10
	task, err := svc.Create(ctx, user.ID, "Meditate", &points)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Completing credits the award.
	if _, err := svc.SetCompleted(ctx, task.ID, true); err != nil {
		t.Fatalf("SetCompleted(true) error = %v", err)
	}
	got, _ := authSvc.GetUserByID(ctx, user.ID)
	if got.Points != 25 {
		t.Errorf("balance after completion = %d, want 25", got.Points)
	}

	// Re-completing an already-complete task must not credit again.
	if _, err := svc.SetCompleted(ctx, task.ID, true); err != nil {
		t.Fatalf("SetCompleted(true) again error = %v", err)
	}
	got, _ = authSvc.GetUserByID(ctx, user.ID)
	if got.Points != 25 {
		t.Errorf("balance after re-completion = %d, want 25 (no double award)", got.Points)
	}

	// Un-completing keeps the points, and completing once more re-awards —
	// that is a fresh transition into the completed state.
	if _, err := svc.SetCompleted(ctx, task.ID, false); err != nil {
		t.Fatalf("SetCompleted(false) error = %v", err)
	}
	got, _ = authSvc.GetUserByID(ctx, user.ID)
	if got.Points != 25 {
		t.Errorf("balance after un-completion = %d, want 25 (no clawback)", got.Points)
	}
}

func TestSetCompleted_UnknownTask(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestTaskService(store)

	_, err := svc.SetCompleted(context.Background(), "ghost", true)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestTodayTasks(t *testing.T) {
	store := newFakeStore()
	svc, authSvc := newTestTaskService(store)
	user := register(t, authSvc, "a@x.com", "pw")
	ctx := context.Background()

	if _, err := svc.Create(ctx, user.ID, "Journal", nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, user.ID, "Stretch", nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tasks, err := svc.TodayTasks(ctx, user.ID)
	if err != nil {
		t.Fatalf("TodayTasks() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("len(tasks) = %d, want 2", len(tasks))
	}

	// Another user sees an empty list, not an error.
	other := register(t, authSvc, "b@x.com", "pw")
	tasks, err = svc.TodayTasks(ctx, other.ID)
	if err != nil {
		t.Fatalf("TodayTasks() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("len(tasks) for other user = %d, want 0", len(tasks))
	}
}
