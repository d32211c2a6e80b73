package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/mindgarden/internal/model"
	"github.com/sakif/mindgarden/internal/service"
)

// TaskHandler exposes the daily-task endpoints. Completion is the route
// through which user points actually change.
type TaskHandler struct {
	tasks  *service.TaskService
	logger *slog.Logger
}

func NewTaskHandler(tasks *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// HandleCreate adds a task for today.
//
// HTTP: POST /v1/tasks/create
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID           string `json:"userId"`
		TaskName         string `json:"taskName"`
		CompletionPoints *int   `json:"completion_points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.TaskName == "" {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	task, err := h.tasks.Create(r.Context(), req.UserID, req.TaskName, req.CompletionPoints)
	if err != nil {
		writeError(w, h.logger, err, "Failed to create task")
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Message string      `json:"message"`
		Task    *model.Task `json:"task"`
	}{
		Message: "Task created successfully",
		Task:    task,
	})
}

// HandleComplete marks a task complete (or not). Completing awards the task's
// points to its owner; the award happens server-side only.
//
// HTTP: PATCH /v1/tasks/complete/{taskId}
func (h *TaskHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")

	var req struct {
		IsCompleted bool `json:"isCompleted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.tasks.SetCompleted(r.Context(), taskID, req.IsCompleted)
	if err != nil {
		writeError(w, h.logger, err, "Failed to update task")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message     string     `json:"message"`
		TaskID      string     `json:"taskId"`
		IsCompleted bool       `json:"is_completed"`
		CompletedAt *time.Time `json:"completed_at"`
	}{
		Message:     "Task updated successfully",
		TaskID:      task.ID,
		IsCompleted: task.IsCompleted,
		CompletedAt: task.CompletedAt,
	})
}

// HandleTodayTasks lists today's tasks for a user.
//
// HTTP: POST /v1/tasks/today-tasks
func (h *TaskHandler) HandleTodayTasks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		writeMessage(w, http.StatusBadRequest, "Missing userId")
		return
	}

	tasks, err := h.tasks.TodayTasks(r.Context(), req.UserID)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get tasks")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Tasks []model.Task `json:"tasks"`
	}{Tasks: tasks})
}
