package seed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"piktram/internal/models"
	"piktram/internal/reconcile"
	"piktram/internal/storage/sqldb"
)

const (
	owner = "3f1c2a9e-0000-4000-8000-000000000001"
	staff = "3f1c2a9e-0000-4000-8000-0000000000aa"
)

const fixtureYAML = `
users:
  - id: 3f1c2a9e-0000-4000-8000-0000000000aa
    email: staff@piktram.id
    role: admin
  - id: 3f1c2a9e-0000-4000-8000-000000000001
    email: client@brand.id

projects:
  - owner: 3f1c2a9e-0000-4000-8000-000000000001
    name: Rebrand
    color: "#7c3aed"
    due_date: 2026-12-01
    tasks:
      - title: Logo concepts
        status: completed
      - title: Palette
        status: approved
      - title: Brand book
        status: in_progress
        priority: high

tasks:
  - owner: 3f1c2a9e-0000-4000-8000-000000000001
    project: Rebrand
    title: Launch post
    status: todo
  - owner: 3f1c2a9e-0000-4000-8000-000000000001
    title: Invoice
`

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*sqldb.Store, *reconcile.Reconciler) {
	t.Helper()
	s, err := sqldb.OpenMemory(context.Background(), quiet())
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, reconcile.New(s, reconcile.Options{Logger: quiet()})
}

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(fixtureYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Users) != 2 || len(f.Projects) != 1 || len(f.Tasks) != 2 {
		t.Fatalf("fixture = %+v", f)
	}
	p := f.Projects[0]
	if p.DueDate == nil || p.DueDate.Year() != 2026 {
		t.Errorf("due date = %v", p.DueDate)
	}
	if len(p.Tasks) != 3 || p.Tasks[2].Priority != "high" {
		t.Errorf("tasks = %+v", p.Tasks)
	}
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Projects) != 0 {
		t.Errorf("projects = %d", len(f.Projects))
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", "projects:\n  - owner: a\n    name: b\n    colour: red\n", "colour"},
		{"missing name", "projects:\n  - owner: a\n", "projects[0]"},
		{"missing title", "tasks:\n  - owner: a\n", "tasks[0]"},
		{"missing user id", "users:\n  - email: x@y.z\n", "users[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	store, r := newTestStore(t)
	ctx := context.Background()
	f, err := Parse(strings.NewReader(fixtureYAML))
	if err != nil {
		t.Fatal(err)
	}

	res, err := Apply(ctx, store, r, f, quiet())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Users != 2 || res.Projects != 1 || res.Tasks != 5 {
		t.Errorf("result = %+v", res)
	}

	if role, _ := store.UserRole(ctx, staff); role != models.RoleAdmin {
		t.Errorf("staff role = %q", role)
	}
	projects, _ := store.ListProjects(ctx, models.As(owner))
	if len(projects) != 1 {
		t.Fatalf("projects = %d", len(projects))
	}
	// completed + approved out of four tasks.
	if projects[0].Progress != 50 {
		t.Errorf("progress = %d, want 50", projects[0].Progress)
	}
	all, _ := store.ListTasks(ctx, models.As(owner), sqldb.TaskFilter{})
	if len(all) != 5 {
		t.Errorf("tasks = %d, want 5", len(all))
	}
}

func TestApply_ExistingProjectSkipped(t *testing.T) {
	store, r := newTestStore(t)
	ctx := context.Background()
	f, _ := Parse(strings.NewReader(fixtureYAML))

	if _, err := Apply(ctx, store, r, f, quiet()); err != nil {
		t.Fatal(err)
	}
	res, err := Apply(ctx, store, r, f, quiet())
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if res.Projects != 0 || res.SkippedProjects != 1 {
		t.Errorf("result = %+v", res)
	}
	// Only the top-level tasks are created again.
	if res.Tasks != 2 {
		t.Errorf("tasks = %d, want 2", res.Tasks)
	}
}

func TestApply_UnknownProjectReference(t *testing.T) {
	store, r := newTestStore(t)
	f := Fixture{Tasks: []Task{{Owner: owner, Project: "Missing", Title: "x"}}}

	_, err := Apply(context.Background(), store, r, f, quiet())
	if !errors.Is(err, reconcile.ErrProjectNotFound) {
		t.Fatalf("err = %v, want ErrProjectNotFound", err)
	}
}
