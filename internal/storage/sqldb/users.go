package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"piktram/internal/models"
)

// UserRole returns the stored role of a user. Unknown users are clients.
func (s *Store) UserRole(ctx context.Context, id string) (string, error) {
	var role string
	err := s.get(ctx, &role, `SELECT role FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RoleClient, nil
	}
	if err != nil {
		return "", fmt.Errorf("get user role: %w", err)
	}
	return role, nil
}

// UpsertUser creates a user or updates its email and role.
func (s *Store) UpsertUser(ctx context.Context, u models.User) error {
	if u.ID == "" {
		return fmt.Errorf("user id must not be empty")
	}
	if u.Role == "" {
		u.Role = models.RoleClient
	}
	_, err := s.exec(ctx,
		`INSERT INTO users(id, email, role) VALUES(?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET email = excluded.email, role = excluded.role`,
		u.ID, u.Email, u.Role)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
