package sqldb

import (
	"context"
	"fmt"

	"piktram/internal/models"
)

// CreateNotification stores an in-app notification.
func (s *Store) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	err := s.get(ctx, &n.ID,
		`INSERT INTO notifications(user_id, kind, title, body, task_id, project_id) VALUES(?, ?, ?, ?, ?, ?) RETURNING id`,
		n.OwnerID, n.Kind, n.Title, n.Body, n.TaskID, n.ProjectID)
	if err != nil {
		return models.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns the caller's newest notifications first.
func (s *Store) ListNotifications(ctx context.Context, caller models.Caller, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, user_id, kind, title, body, task_id, project_id, is_read, created_at FROM notifications WHERE 1=1`
	var args []any
	if unreadOnly {
		query += ` AND is_read = ?`
		args = append(args, false)
	}
	query, args = scope(query, caller, args...)

	out := []models.Notification{}
	if err := s.selectAll(ctx, &out, query+` ORDER BY id DESC LIMIT ?`, append(args, limit)...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead flags one notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, caller models.Caller, id int64) error {
	q, args := scope(`UPDATE notifications SET is_read = ? WHERE id = ?`, caller, true, id)
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("mark notification: %w", err)
	}
	return affectedOne(res, ErrNotificationNotFound)
}
