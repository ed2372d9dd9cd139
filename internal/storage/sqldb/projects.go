package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"piktram/internal/models"
	"piktram/internal/reconcile"
)

const projectColumns = `id, user_id, name, color, progress, due_date, created_at, updated_at`

// ProjectPatch lists project fields to change. Progress is not editable.
type ProjectPatch struct {
	Name         *string
	Color        *string
	DueDate      *time.Time
	ClearDueDate bool
}

// ListProjects retrieves the caller's projects ordered by creation date.
func (s *Store) ListProjects(ctx context.Context, caller models.Caller) ([]models.Project, error) {
	q, args := scope(`SELECT `+projectColumns+` FROM projects WHERE 1=1`, caller)
	projects := []models.Project{}
	if err := s.selectAll(ctx, &projects, q+` ORDER BY created_at ASC, id ASC`, args...); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// ListProjectIDs returns the ids of every project visible to caller.
func (s *Store) ListProjectIDs(ctx context.Context, caller models.Caller) ([]int64, error) {
	q, args := scope(`SELECT id FROM projects WHERE 1=1`, caller)
	var ids []int64
	if err := s.selectAll(ctx, &ids, q+` ORDER BY id`, args...); err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	return ids, nil
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, caller models.Caller, id int64) (models.Project, error) {
	q, args := scope(`SELECT `+projectColumns+` FROM projects WHERE id = ?`, caller, id)
	var p models.Project
	err := s.get(ctx, &p, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, reconcile.ErrProjectNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// CreateProject persists a new project for its owner. Progress starts at
// zero and an empty color picks one from the palette.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	p.Name = trim(p.Name)
	if p.Name == "" || p.OwnerID == "" {
		return models.Project{}, reconcile.ErrInvalidProject
	}
	if p.Color == "" {
		p.Color = randomPaletteColor()
	}

	var id int64
	err := s.get(ctx, &id,
		`INSERT INTO projects(user_id, name, color, progress, due_date) VALUES(?, ?, ?, 0, ?) RETURNING id`,
		p.OwnerID, p.Name, p.Color, p.DueDate)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Project{}, ErrProjectExists
		}
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return s.GetProject(ctx, models.As(p.OwnerID), id)
}

// UpdateProject renames, recolors or reschedules a project.
func (s *Store) UpdateProject(ctx context.Context, caller models.Caller, id int64, patch ProjectPatch) (models.Project, error) {
	cur, err := s.GetProject(ctx, caller, id)
	if err != nil {
		return models.Project{}, err
	}

	if patch.Name != nil {
		if trim(*patch.Name) == "" {
			return models.Project{}, reconcile.ErrInvalidProject
		}
		cur.Name = trim(*patch.Name)
	}
	if patch.Color != nil && *patch.Color != "" {
		cur.Color = *patch.Color
	}
	if patch.DueDate != nil {
		cur.DueDate = patch.DueDate
	}
	if patch.ClearDueDate {
		cur.DueDate = nil
	}

	_, err = s.exec(ctx, `UPDATE projects SET name = ?, color = ?, due_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		cur.Name, cur.Color, cur.DueDate, id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Project{}, ErrProjectExists
		}
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	return s.GetProject(ctx, caller, id)
}

// SetProjectProgress stores a recomputed progress value.
func (s *Store) SetProjectProgress(ctx context.Context, caller models.Caller, id int64, progress int) error {
	q, args := scope(`UPDATE projects SET progress = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, caller, progress, id)
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("set project progress: %w", err)
	}
	return affectedOne(res, reconcile.ErrProjectNotFound)
}

// DeleteProject removes a project. Its tasks stay and lose their project.
func (s *Store) DeleteProject(ctx context.Context, caller models.Caller, id int64) error {
	q, args := scope(`DELETE FROM projects WHERE id = ?`, caller, id)
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return affectedOne(res, reconcile.ErrProjectNotFound)
}

func randomPaletteColor() string {
	palette := []string{
		"#2563eb", // blue-600
		"#7c3aed", // violet-600
		"#dc2626", // red-600
		"#059669", // green-600
		"#ea580c", // orange-600
		"#d97706", // amber-600
		"#0ea5e9", // sky-500
	}
	return palette[rand.Intn(len(palette))]
}
