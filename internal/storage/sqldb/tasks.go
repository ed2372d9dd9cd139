package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"piktram/internal/models"
	"piktram/internal/reconcile"
	"piktram/internal/status"
)

const taskColumns = `id, user_id, project_id, title, description, status, priority, due_date, position, created_at, updated_at`

// TaskFilter narrows ListTasks. Status matches the normalized value, so a
// filter on done also returns rows stored as a legacy alias.
type TaskFilter struct {
	ProjectID      *int64
	WithoutProject bool
	Status         *status.Status
	Priority       *models.Priority
	Limit          int
	Offset         int
}

// TaskPatch lists task fields that do not affect progress.
type TaskPatch struct {
	Title        *string
	Description  *string
	Priority     *models.Priority
	DueDate      *time.Time
	ClearDueDate bool
}

// ListTasks returns tasks ordered by board column position.
func (s *Store) ListTasks(ctx context.Context, caller models.Caller, f TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if f.ProjectID != nil {
		query += ` AND project_id = ?`
		args = append(args, *f.ProjectID)
	} else if f.WithoutProject {
		query += ` AND project_id IS NULL`
	}
	if f.Priority != nil {
		query += ` AND priority = ?`
		args = append(args, string(*f.Priority))
	}
	query, args = scope(query, caller, args...)

	var rows []models.Task
	if err := s.selectAll(ctx, &rows, query+` ORDER BY position, id`, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(rows))
	for _, t := range rows {
		if f.Status != nil && t.Canonical() != *f.Status {
			continue
		}
		tasks = append(tasks, t)
	}

	if f.Offset > 0 {
		if f.Offset >= len(tasks) {
			return []models.Task{}, nil
		}
		tasks = tasks[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(tasks) {
		tasks = tasks[:f.Limit]
	}
	return tasks, nil
}

// ListProjectTasks returns every task of a project, the sibling set used
// for progress.
func (s *Store) ListProjectTasks(ctx context.Context, caller models.Caller, projectID int64) ([]models.Task, error) {
	q, args := scope(`SELECT `+taskColumns+` FROM tasks WHERE project_id = ?`, caller, projectID)
	tasks := []models.Task{}
	if err := s.selectAll(ctx, &tasks, q+` ORDER BY id`, args...); err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	return tasks, nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, caller models.Caller, id int64) (models.Task, error) {
	q, args := scope(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, caller, id)
	var t models.Task
	err := s.get(ctx, &t, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, reconcile.ErrTaskNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// CreateTask inserts a task at the end of its board column.
func (s *Store) CreateTask(ctx context.Context, caller models.Caller, t models.Task) (models.Task, error) {
	t.Title = trim(t.Title)
	if t.Title == "" || t.OwnerID == "" || !caller.Scope(t.OwnerID) {
		return models.Task{}, reconcile.ErrInvalidTask
	}
	if t.Status == "" {
		t.Status = string(status.Todo)
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}

	pos, err := s.nextPosition(ctx, t.OwnerID)
	if err != nil {
		return models.Task{}, err
	}

	var id int64
	err = s.get(ctx, &id,
		`INSERT INTO tasks(user_id, project_id, title, description, status, priority, due_date, position)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		t.OwnerID, t.ProjectID, t.Title, trim(t.Description), t.Status, string(t.Priority), t.DueDate, pos)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Task{}, reconcile.ErrProjectNotFound
		}
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, caller, id)
}

// UpdateTaskStatus stores raw exactly as given and moves the task to the
// end of its new column when the canonical status changed.
func (s *Store) UpdateTaskStatus(ctx context.Context, caller models.Caller, id int64, raw string) (models.Task, error) {
	cur, err := s.GetTask(ctx, caller, id)
	if err != nil {
		return models.Task{}, err
	}

	position := cur.Position
	if status.Parse(raw) != cur.Canonical() {
		if position, err = s.nextPosition(ctx, cur.OwnerID); err != nil {
			return models.Task{}, err
		}
	}

	_, err = s.exec(ctx, `UPDATE tasks SET status = ?, position = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, raw, position, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task status: %w", err)
	}
	return s.GetTask(ctx, caller, id)
}

// UpdateTaskProject changes the project a task belongs to.
func (s *Store) UpdateTaskProject(ctx context.Context, caller models.Caller, id int64, projectID *int64) (models.Task, error) {
	q, args := scope(`UPDATE tasks SET project_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, caller, projectID, id)
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Task{}, reconcile.ErrProjectNotFound
		}
		return models.Task{}, fmt.Errorf("update task project: %w", err)
	}
	if err := affectedOne(res, reconcile.ErrTaskNotFound); err != nil {
		return models.Task{}, err
	}
	return s.GetTask(ctx, caller, id)
}

// UpdateTaskFields edits title, description, priority or due date.
func (s *Store) UpdateTaskFields(ctx context.Context, caller models.Caller, id int64, patch TaskPatch) (models.Task, error) {
	cur, err := s.GetTask(ctx, caller, id)
	if err != nil {
		return models.Task{}, err
	}

	if patch.Title != nil {
		if trim(*patch.Title) == "" {
			return models.Task{}, reconcile.ErrInvalidTask
		}
		cur.Title = trim(*patch.Title)
	}
	if patch.Description != nil {
		cur.Description = trim(*patch.Description)
	}
	if patch.Priority != nil {
		cur.Priority = models.ParsePriority(string(*patch.Priority))
	}
	if patch.DueDate != nil {
		cur.DueDate = patch.DueDate
	}
	if patch.ClearDueDate {
		cur.DueDate = nil
	}

	_, err = s.exec(ctx, `UPDATE tasks SET title = ?, description = ?, priority = ?, due_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		cur.Title, cur.Description, string(cur.Priority), cur.DueDate, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	return s.GetTask(ctx, caller, id)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, caller models.Caller, id int64) error {
	q, args := scope(`DELETE FROM tasks WHERE id = ?`, caller, id)
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affectedOne(res, reconcile.ErrTaskNotFound)
}

// nextPosition returns the slot after the owner's last task, which puts a
// new or moved card at the bottom of its column.
func (s *Store) nextPosition(ctx context.Context, owner string) (int64, error) {
	var position sql.NullInt64
	err := s.get(ctx, &position, `SELECT MAX(position) FROM tasks WHERE user_id = ?`, owner)
	if err != nil {
		return 0, fmt.Errorf("select position: %w", err)
	}
	if position.Valid {
		return position.Int64 + 1, nil
	}
	return 0, nil
}
