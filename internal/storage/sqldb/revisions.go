package sqldb

import (
	"context"
	"fmt"

	"piktram/internal/models"
	"piktram/internal/reconcile"
)

// AppendAudit records a status change on a task's revision trail.
func (s *Store) AppendAudit(ctx context.Context, e models.AuditEntry) (models.AuditEntry, error) {
	err := s.get(ctx, &e.ID,
		`INSERT INTO task_revisions(task_id, user_id, old_status, new_status, description) VALUES(?, ?, ?, ?, ?) RETURNING id`,
		e.TaskID, e.OwnerID, e.OldStatus, e.NewStatus, e.Description)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.AuditEntry{}, reconcile.ErrTaskNotFound
		}
		return models.AuditEntry{}, fmt.Errorf("insert revision: %w", err)
	}
	return e, nil
}

// ListAudit returns a task's revision trail, oldest first.
func (s *Store) ListAudit(ctx context.Context, caller models.Caller, taskID int64) ([]models.AuditEntry, error) {
	if _, err := s.GetTask(ctx, caller, taskID); err != nil {
		return nil, err
	}
	entries := []models.AuditEntry{}
	err := s.selectAll(ctx, &entries,
		`SELECT id, task_id, user_id, old_status, new_status, description, created_at
        FROM task_revisions WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return entries, nil
}
