// Package seed loads demo fixtures from YAML into the record store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"piktram/internal/models"
	"piktram/internal/reconcile"
	"piktram/internal/storage/sqldb"
)

// Fixture is the YAML document layout.
type Fixture struct {
	Users    []User    `yaml:"users"`
	Projects []Project `yaml:"projects"`
	// Tasks lists tasks outside any project, or tasks that reference a
	// project by name.
	Tasks []Task `yaml:"tasks"`
}

type User struct {
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

type Project struct {
	Owner   string     `yaml:"owner"`
	Name    string     `yaml:"name"`
	Color   string     `yaml:"color"`
	DueDate *time.Time `yaml:"due_date"`
	Tasks   []Task     `yaml:"tasks"`
}

type Task struct {
	Owner       string     `yaml:"owner"`
	Project     string     `yaml:"project"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Status      string     `yaml:"status"`
	Priority    string     `yaml:"priority"`
	DueDate     *time.Time `yaml:"due_date"`
}

// Store is the record store surface the loader writes through.
type Store interface {
	UpsertUser(ctx context.Context, u models.User) error
	CreateProject(ctx context.Context, p models.Project) (models.Project, error)
	ListProjects(ctx context.Context, caller models.Caller) ([]models.Project, error)
}

// TaskCreator creates tasks and keeps project progress in step.
type TaskCreator interface {
	Create(ctx context.Context, caller models.Caller, in reconcile.NewTask) (reconcile.Outcome, error)
}

// Result counts what Apply wrote.
type Result struct {
	Users           int
	Projects        int
	SkippedProjects int
	Tasks           int
}

// Parse decodes a fixture and checks required fields.
func Parse(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return f, f.validate()
}

// ParseFile is Parse over a file on disk.
func ParseFile(path string) (Fixture, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Fixture{}, err
	}
	defer fh.Close()
	return Parse(fh)
}

func (f Fixture) validate() error {
	var errs []error
	for i, u := range f.Users {
		if u.ID == "" {
			errs = append(errs, fmt.Errorf("users[%d]: id is required", i))
		}
	}
	for i, p := range f.Projects {
		if p.Owner == "" || p.Name == "" {
			errs = append(errs, fmt.Errorf("projects[%d]: owner and name are required", i))
		}
		for j, t := range p.Tasks {
			if t.Title == "" {
				errs = append(errs, fmt.Errorf("projects[%d].tasks[%d]: title is required", i, j))
			}
		}
	}
	for i, t := range f.Tasks {
		if t.Owner == "" || t.Title == "" {
			errs = append(errs, fmt.Errorf("tasks[%d]: owner and title are required", i))
		}
	}
	return errors.Join(errs...)
}

// Apply writes the fixture. A project that already exists for its owner is
// left alone together with its nested tasks.
func Apply(ctx context.Context, store Store, tasks TaskCreator, f Fixture, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var res Result
	admin := models.Admin()

	for _, u := range f.Users {
		if err := store.UpsertUser(ctx, models.User{ID: u.ID, Email: u.Email, Role: u.Role}); err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		res.Users++
	}

	ids := map[string]map[string]int64{}
	remember := func(owner, name string, id int64) {
		if ids[owner] == nil {
			ids[owner] = map[string]int64{}
		}
		ids[owner][name] = id
	}

	for _, p := range f.Projects {
		created, err := store.CreateProject(ctx, models.Project{OwnerID: p.Owner, Name: p.Name, Color: p.Color, DueDate: p.DueDate})
		if errors.Is(err, sqldb.ErrProjectExists) {
			id, lookupErr := findProject(ctx, store, p.Owner, p.Name)
			if lookupErr != nil {
				return res, lookupErr
			}
			remember(p.Owner, p.Name, id)
			res.SkippedProjects++
			logger.Info("project already seeded", slog.String("owner", p.Owner), slog.String("name", p.Name))
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed project %q: %w", p.Name, err)
		}
		remember(p.Owner, p.Name, created.ID)
		res.Projects++

		for _, t := range p.Tasks {
			t.Owner = p.Owner
			if err := createTask(ctx, tasks, admin, t, &created.ID); err != nil {
				return res, err
			}
			res.Tasks++
		}
	}

	for _, t := range f.Tasks {
		var projectID *int64
		if t.Project != "" {
			id, ok := ids[t.Owner][t.Project]
			if !ok {
				found, err := findProject(ctx, store, t.Owner, t.Project)
				if err != nil {
					return res, err
				}
				id = found
			}
			projectID = &id
		}
		if err := createTask(ctx, tasks, admin, t, projectID); err != nil {
			return res, err
		}
		res.Tasks++
	}
	return res, nil
}

func createTask(ctx context.Context, tasks TaskCreator, caller models.Caller, t Task, projectID *int64) error {
	out, err := tasks.Create(ctx, caller, reconcile.NewTask{
		OwnerID:     t.Owner,
		ProjectID:   projectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
	})
	if err != nil {
		return fmt.Errorf("seed task %q: %w", t.Title, err)
	}
	if out.Stale() {
		return fmt.Errorf("seed task %q: %w", t.Title, errors.Join(out.Warnings...))
	}
	return nil
}

func findProject(ctx context.Context, store Store, owner, name string) (int64, error) {
	projects, err := store.ListProjects(ctx, models.As(owner))
	if err != nil {
		return 0, err
	}
	for _, p := range projects {
		if p.Name == name {
			return p.ID, nil
		}
	}
	return 0, fmt.Errorf("project %q of %s: %w", name, owner, reconcile.ErrProjectNotFound)
}
