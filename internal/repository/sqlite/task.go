package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/mindgarden/internal/apperror"
	"github.com/sakif/mindgarden/internal/model"
	"github.com/sakif/mindgarden/internal/repository"
)

var _ repository.TaskRepository = (*DB)(nil)

const taskColumns = `task_id, user_id, task_name, is_completed, completed_at,
	completion_points, date, created_at`

func (db *DB) CreateTask(ctx context.Context, task *model.Task) error {
	task.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tasks (task_id, user_id, task_name, is_completed,
			completed_at, completion_points, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.UserID,
		task.Name,
		boolToInt(task.IsCompleted),
		task.CompletedAt,
		task.CompletionPoints,
		task.Date,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting task for user %s: %w", task.UserID, err)
	}
	return nil
}

func (db *DB) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, id)

	t, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("task", id)
		}
		return nil, fmt.Errorf("sqlite: getting task %s: %w", id, err)
	}
	return t, nil
}

func (db *DB) ListTasksByDate(ctx context.Context, userID, date string) ([]model.Task, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE user_id = ? AND date = ?
		 ORDER BY created_at DESC`,
		userID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks for user %s: %w", userID, err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks for user %s: %w", userID, err)
	}
	return tasks, nil
}

// SetTaskCompleted flips completion state and returns the stored task.
func (db *DB) SetTaskCompleted(ctx context.Context, id string, completed bool, completedAt *time.Time) (*model.Task, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE tasks SET is_completed = ?, completed_at = ? WHERE task_id = ?`,
		boolToInt(completed), completedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: completing task %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("sqlite: completing task %s: %w", id, err)
	} else if affected == 0 {
		return nil, apperror.NotFound("task", id)
	}

	return db.GetTaskByID(ctx, id)
}

func scanTask(row rowScanner) (*model.Task, error) {
	var t model.Task
	var completed int
	var completedAt sql.NullTime

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&completed,
		&completedAt,
		&t.CompletionPoints,
		&t.Date,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.IsCompleted = completed != 0
	if completedAt.Valid {
		at := completedAt.Time
		t.CompletedAt = &at
	}
	return &t, nil
}
