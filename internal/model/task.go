package model

import "time"

// Task is a daily wellness task. Completing a task credits CompletionPoints
// to the owning user's balance — the only client-reachable flow that mutates
// points.
type Task struct {
	ID               string     `json:"task_id"`
	UserID           string     `json:"user_id"`
	Name             string     `json:"task_name"`
	IsCompleted      bool       `json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at"`
	CompletionPoints int        `json:"completion_points"`
	Date             string     `json:"date"` // YYYY-MM-DD, the day the task belongs to
	CreatedAt        time.Time  `json:"-"`
}

// DefaultTaskPoints is awarded when a task is created without an explicit
// point value.
const DefaultTaskPoints = 10
