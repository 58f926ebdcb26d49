package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tasktracker/internal/models"
	"tasktracker/internal/workflow"
)

const taskColumns = `id, project_id, title, description, status, priority, blocker,
        assigned_date, start_date, end_date, created_at, updated_at`

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t                models.Task
		description      sql.NullString
		blocker          sql.NullString
		priority         sql.NullString
		status           string
		created, updated sql.NullString
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &description, &status, &priority, &blocker,
		&t.AssignedDate, &t.StartDate, &t.EndDate, &created, &updated); err != nil {
		return models.Task{}, err
	}
	t.Description = description.String
	t.Blocker = blocker.String
	t.Status = models.Status(status)
	t.Priority = models.Priority(priority.String)
	if !t.Priority.Valid() {
		t.Priority = models.PriorityMedium
	}

	var err error
	if t.CreatedAt, err = scanTime(created); err != nil {
		return models.Task{}, err
	}
	if t.UpdatedAt, err = scanTime(updated); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// ListTasksByProject returns the tasks of a project, newest first.
func (s *Store) ListTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+`
        FROM tasks WHERE project_id = ? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, wrapErr("list tasks", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, wrapErr("scan task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list tasks", err)
	}
	return tasks, nil
}

// CreateTask inserts a new task for a project. A task created directly in
// an advanced status gets its start and end dates stamped as if it had
// moved there from Not Started.
func (s *Store) CreateTask(ctx context.Context, projectID int64, f models.TaskFields) (models.Task, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return models.Task{}, fmt.Errorf("%w: task title must not be empty", models.ErrValidation)
	}

	status := f.Status
	if status == "" {
		status = models.StatusNotStarted
	}
	if !status.Valid() {
		return models.Task{}, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
	}
	priority := f.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return models.Task{}, fmt.Errorf("%w: unknown priority %q", models.ErrValidation, priority)
	}

	now := s.now()
	dates := workflow.StampNew(status, now)
	ts := models.FormatTime(now)

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(project_id, title, description, status, priority, blocker,
            assigned_date, start_date, end_date, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		projectID, title, nullString(f.Description), string(status), string(priority), nullString(f.Blocker),
		ts, dates.Start, dates.End, ts, ts)
	if err != nil {
		return models.Task{}, wrapErr("insert task", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, wrapErr("task id", err)
	}
	s.logger.Debug("task created", slog.Int64("id", id), slog.Int64("project_id", projectID), slog.String("status", string(status)))
	return s.GetTask(ctx, id)
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, wrapErr("get task", err)
	}
	return t, nil
}

// UpdateTask applies an edit. Explicitly supplied dates are written as
// given; a status change otherwise stamps start and end dates the same way
// a drag does. updated_at is always refreshed.
func (s *Store) UpdateTask(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}

	next := current
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return models.Task{}, fmt.Errorf("%w: task title must not be empty", models.ErrValidation)
		}
		next.Title = title
	}
	if u.Description != nil {
		next.Description = strings.TrimSpace(*u.Description)
	}
	if u.Blocker != nil {
		next.Blocker = strings.TrimSpace(*u.Blocker)
	}
	if u.Priority != nil {
		if !u.Priority.Valid() {
			return models.Task{}, fmt.Errorf("%w: unknown priority %q", models.ErrValidation, *u.Priority)
		}
		next.Priority = *u.Priority
	}
	if u.Status != nil {
		if !u.Status.Valid() {
			return models.Task{}, fmt.Errorf("%w: unknown status %q", models.ErrValidation, *u.Status)
		}
		next.Status = *u.Status
	}
	if u.AssignedDate != nil {
		next.AssignedDate = *u.AssignedDate
	}
	if u.StartDate != nil {
		next.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		next.EndDate = *u.EndDate
	}

	now := s.now()
	if next.Status != current.Status {
		stamped := workflow.Stamp(next.Status, workflow.Dates{Start: next.StartDate, End: next.EndDate}, now)
		if u.StartDate == nil {
			next.StartDate = stamped.Start
		}
		if u.EndDate == nil {
			next.EndDate = stamped.End
		}
	}

	if err := s.writeTask(ctx, next, now); err != nil {
		return models.Task{}, err
	}
	return s.GetTask(ctx, id)
}

// UpdateTaskStatus is the drag-to-reclassify path: only the status changes,
// plus whichever workflow dates the new status stamps.
func (s *Store) UpdateTaskStatus(ctx context.Context, id int64, status models.Status) (models.Task, error) {
	if !status.Valid() {
		return models.Task{}, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
	}
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}

	now := s.now()
	dates := workflow.Stamp(status, workflow.Dates{Start: current.StartDate, End: current.EndDate}, now)

	_, err = s.db.ExecContext(ctx, `UPDATE tasks SET status = ?, start_date = ?, end_date = ?, updated_at = ? WHERE id = ?`,
		string(status), dates.Start, dates.End, models.FormatTime(now), id)
	if err != nil {
		return models.Task{}, wrapErr("update task status", err)
	}
	if status != current.Status {
		s.logger.Debug("task moved", slog.Int64("id", id),
			slog.String("from", string(current.Status)), slog.String("to", string(status)))
	}
	return s.GetTask(ctx, id)
}

func (s *Store) writeTask(ctx context.Context, t models.Task, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET
            title = ?, description = ?, status = ?, priority = ?, blocker = ?,
            assigned_date = ?, start_date = ?, end_date = ?, updated_at = ?
        WHERE id = ?`,
		t.Title, nullString(t.Description), string(t.Status), string(t.Priority), nullString(t.Blocker),
		t.AssignedDate, t.StartDate, t.EndDate, models.FormatTime(now), t.ID)
	if err != nil {
		return wrapErr("update task", err)
	}
	return nil
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return wrapErr("delete task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("delete task", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %d: %w", id, models.ErrNotFound)
	}
	return nil
}
