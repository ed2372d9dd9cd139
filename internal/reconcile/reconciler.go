// Package reconcile keeps project progress consistent with the status of
// the project's tasks.
//
// Every task mutation follows the same order: write the task row, re-read
// the sibling tasks, write the project row. Recompute failures never fail
// the mutation; they are returned as warnings on the Outcome.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"piktram/internal/models"
	"piktram/internal/status"
)

// Options configures a Reconciler.
type Options struct {
	Logger *slog.Logger
	// Transactional wraps the task write and the recompute in one store
	// transaction. Recompute and audit failures are rolled back to a
	// savepoint when the store supports it, so the task write still commits.
	Transactional bool
	Notifier      Notifier
}

// Reconciler applies task mutations and keeps project progress derived.
type Reconciler struct {
	store  Store
	logger *slog.Logger
	opts   Options
}

// New constructs a Reconciler over store.
func New(store Store, opts Options) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, logger: logger, opts: opts}
}

// Outcome describes a completed task mutation.
type Outcome struct {
	Task     models.Task `json:"task"`
	Projects []Progress  `json:"projects,omitempty"`
	Warnings []error     `json:"-"`

	notices []models.Notification
}

// Stale reports whether any affected project may hold an outdated progress.
func (o Outcome) Stale() bool {
	return len(o.Warnings) > 0
}

// WarningMessages returns the warnings as strings for API responses.
func (o Outcome) WarningMessages() []string {
	if len(o.Warnings) == 0 {
		return nil
	}
	out := make([]string, len(o.Warnings))
	for i, w := range o.Warnings {
		out[i] = w.Error()
	}
	return out
}

// NewTask holds the fields accepted when creating a task.
type NewTask struct {
	OwnerID     string
	ProjectID   *int64
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
}

// Create inserts a task and recomputes its project when it has one.
// Admin callers must name the owner; other callers always own the task.
func (r *Reconciler) Create(ctx context.Context, caller models.Caller, in NewTask) (Outcome, error) {
	owner := caller.OwnerID
	if caller.IsAdmin && in.OwnerID != "" {
		owner = in.OwnerID
	}
	title := strings.TrimSpace(in.Title)
	if owner == "" || title == "" {
		return Outcome{}, ErrInvalidTask
	}
	if in.ProjectID != nil && *in.ProjectID <= 0 {
		return Outcome{}, ErrInvalidTask
	}

	raw := in.Status
	if raw == "" {
		raw = string(status.Todo)
	}
	row := models.Task{
		OwnerID:     owner,
		ProjectID:   in.ProjectID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      raw,
		Priority:    models.ParsePriority(in.Priority),
		DueDate:     in.DueDate,
	}

	scope := models.As(owner)
	var out Outcome
	err := r.run(ctx, func(s Store) error {
		if row.ProjectID != nil {
			if _, err := s.GetProject(ctx, scope, *row.ProjectID); err != nil {
				return err
			}
		}
		task, err := s.CreateTask(ctx, scope, row)
		if err != nil {
			return err
		}
		out.Task = task
		r.recomputeInto(ctx, s, &out, scope, task.ProjectID)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	r.finish(ctx, &out)
	return out, nil
}

// SetStatus stores raw as the task's status exactly as given, appends an
// audit entry when the canonical status changed and recomputes the task's
// project.
func (r *Reconciler) SetStatus(ctx context.Context, caller models.Caller, taskID int64, raw string) (Outcome, error) {
	if taskID <= 0 {
		return Outcome{}, ErrInvalidTask
	}

	var out Outcome
	err := r.run(ctx, func(s Store) error {
		cur, err := s.GetTask(ctx, caller, taskID)
		if err != nil {
			return err
		}
		task, err := s.UpdateTaskStatus(ctx, caller, taskID, raw)
		if err != nil {
			return err
		}
		out.Task = task

		if desc, changed := AuditDescription(cur.Status, raw); changed {
			entry := models.AuditEntry{
				TaskID:      task.ID,
				OwnerID:     task.OwnerID,
				OldStatus:   cur.Status,
				NewStatus:   raw,
				Description: desc,
			}
			err := savepoint(ctx, s, "audit", func() error {
				_, err := s.AppendAudit(ctx, entry)
				return err
			})
			if err != nil {
				out.warn(r.logger, fmt.Errorf("append audit for task %d: %w", task.ID, err))
			}
			tid := task.ID
			out.notices = append(out.notices, models.Notification{
				OwnerID:   task.OwnerID,
				Kind:      models.KindTaskStatus,
				Title:     task.Title,
				Body:      desc,
				TaskID:    &tid,
				ProjectID: task.ProjectID,
			})
		}

		r.recomputeInto(ctx, s, &out, models.As(task.OwnerID), task.ProjectID)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	r.finish(ctx, &out)
	return out, nil
}

// Reassign moves a task to another project, or out of any project when
// projectID is nil. Both the former and the new project are recomputed.
func (r *Reconciler) Reassign(ctx context.Context, caller models.Caller, taskID int64, projectID *int64) (Outcome, error) {
	if taskID <= 0 || (projectID != nil && *projectID <= 0) {
		return Outcome{}, ErrInvalidTask
	}

	var out Outcome
	err := r.run(ctx, func(s Store) error {
		cur, err := s.GetTask(ctx, caller, taskID)
		if err != nil {
			return err
		}
		scope := models.As(cur.OwnerID)
		if projectID != nil {
			if _, err := s.GetProject(ctx, scope, *projectID); err != nil {
				return err
			}
		}

		task, err := s.UpdateTaskProject(ctx, caller, taskID, projectID)
		if err != nil {
			return err
		}
		out.Task = task

		r.recomputeInto(ctx, s, &out, scope, cur.ProjectID)
		if !sameProject(cur.ProjectID, task.ProjectID) {
			r.recomputeInto(ctx, s, &out, scope, task.ProjectID)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	r.finish(ctx, &out)
	return out, nil
}

// Delete removes a task and recomputes the project it belonged to.
func (r *Reconciler) Delete(ctx context.Context, caller models.Caller, taskID int64) (Outcome, error) {
	if taskID <= 0 {
		return Outcome{}, ErrInvalidTask
	}

	var out Outcome
	err := r.run(ctx, func(s Store) error {
		cur, err := s.GetTask(ctx, caller, taskID)
		if err != nil {
			return err
		}
		if err := s.DeleteTask(ctx, caller, taskID); err != nil {
			return err
		}
		out.Task = cur
		r.recomputeInto(ctx, s, &out, models.As(cur.OwnerID), cur.ProjectID)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	r.finish(ctx, &out)
	return out, nil
}

func (r *Reconciler) run(ctx context.Context, fn func(Store) error) error {
	if r.opts.Transactional {
		return r.store.WithinTx(ctx, fn)
	}
	return fn(r.store)
}

func (r *Reconciler) recomputeInto(ctx context.Context, s Store, out *Outcome, caller models.Caller, projectID *int64) {
	if projectID == nil {
		return
	}
	var p Progress
	err := savepoint(ctx, s, "recompute", func() error {
		var err error
		p, err = r.recompute(ctx, s, caller, *projectID)
		return err
	})
	if err != nil {
		out.warn(r.logger, err)
		return
	}
	out.Projects = append(out.Projects, p)
}

// savepoint isolates a warning-only step when s supports it.
func savepoint(ctx context.Context, s Store, name string, fn func() error) error {
	if sp, ok := s.(Savepointer); ok {
		return sp.Savepoint(ctx, name, fn)
	}
	return fn()
}

// finish sends notifications once the store work is done, outside any
// transaction.
func (r *Reconciler) finish(ctx context.Context, out *Outcome) {
	notices := append(out.notices, completionNotices(out.Projects)...)
	out.notices = nil
	r.dispatch(ctx, out, notices)
}

func (r *Reconciler) dispatch(ctx context.Context, out *Outcome, notices []models.Notification) {
	if r.opts.Notifier == nil {
		return
	}
	for _, n := range notices {
		if err := r.opts.Notifier.Notify(ctx, n); err != nil {
			err = fmt.Errorf("notify %s: %w", n.Kind, err)
			if out != nil {
				out.warn(r.logger, err)
			} else {
				r.logger.Warn("notification failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (o *Outcome) warn(logger *slog.Logger, err error) {
	logger.Warn("task saved with warning", slog.String("error", err.Error()))
	o.Warnings = append(o.Warnings, err)
}

func sameProject(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
