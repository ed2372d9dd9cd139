package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"piktram/internal/models"
	"piktram/internal/status"
)

// Progress is the result of recomputing one project.
type Progress struct {
	ProjectID int64  `json:"project_id"`
	OwnerID   string `json:"-"`
	Previous  int    `json:"previous"`
	Progress  int    `json:"progress"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Written   bool   `json:"written"`
}

// Finished reports whether this recompute moved the project to 100%.
func (p Progress) Finished() bool {
	return p.Written && p.Progress == 100 && p.Previous != 100
}

// Percent returns round-half-up(100*completed/total), or 0 for an empty
// project. The result is clamped to [0,100].
func Percent(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return (200*completed + total) / (2 * total)
}

// CountComplete returns how many tasks count as complete after
// normalizing their raw status.
func CountComplete(tasks []models.Task) int {
	n := 0
	for _, t := range tasks {
		if status.IsCompleteRaw(t.Status) {
			n++
		}
	}
	return n
}

// RecomputeProgress recalculates a project's progress from its current
// task set and persists it when it changed. A nil projectID is a no-op.
// The owner is notified when the project reaches 100%.
//
// Failures to read the task set or to write the result wrap
// ErrProgressStale and leave the stored value as it was.
func (r *Reconciler) RecomputeProgress(ctx context.Context, caller models.Caller, projectID *int64) (Progress, error) {
	if projectID == nil {
		return Progress{}, nil
	}
	p, err := r.recompute(ctx, r.store, caller, *projectID)
	if err != nil {
		return Progress{}, err
	}
	r.dispatch(ctx, nil, completionNotices([]Progress{p}))
	return p, nil
}

// RecomputeAll recomputes every project visible to caller.
func (r *Reconciler) RecomputeAll(ctx context.Context, caller models.Caller) ([]Progress, error) {
	ids, err := r.store.ListProjectIDs(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var (
		out  []Progress
		errs []error
	)
	for _, id := range ids {
		p, err := r.recompute(ctx, r.store, caller, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	r.dispatch(ctx, nil, completionNotices(out))
	return out, errors.Join(errs...)
}

func (r *Reconciler) recompute(ctx context.Context, s Store, caller models.Caller, projectID int64) (Progress, error) {
	project, err := s.GetProject(ctx, caller, projectID)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return Progress{}, fmt.Errorf("recompute project %d: %w", projectID, err)
		}
		return Progress{}, fmt.Errorf("recompute project %d: read project: %w: %w", projectID, ErrProgressStale, err)
	}

	// Siblings are read with the project owner's scope so an admin caller
	// never counts tasks of another owner.
	owner := models.As(project.OwnerID)
	tasks, err := s.ListProjectTasks(ctx, owner, projectID)
	if err != nil {
		return Progress{}, fmt.Errorf("recompute project %d: read tasks: %w: %w", projectID, ErrProgressStale, err)
	}

	p := Progress{
		ProjectID: projectID,
		OwnerID:   project.OwnerID,
		Previous:  project.Progress,
		Completed: CountComplete(tasks),
		Total:     len(tasks),
	}
	p.Progress = Percent(p.Completed, p.Total)

	if p.Progress == project.Progress {
		return p, nil
	}
	if err := s.SetProjectProgress(ctx, owner, projectID, p.Progress); err != nil {
		return Progress{}, fmt.Errorf("recompute project %d: write progress: %w: %w", projectID, ErrProgressStale, err)
	}
	p.Written = true

	r.logger.Debug("project progress updated",
		slog.Int64("project_id", projectID),
		slog.Int("from", p.Previous),
		slog.Int("to", p.Progress),
		slog.Int("completed", p.Completed),
		slog.Int("total", p.Total),
	)
	return p, nil
}

func completionNotices(ps []Progress) []models.Notification {
	var out []models.Notification
	for _, p := range ps {
		if !p.Finished() {
			continue
		}
		id := p.ProjectID
		out = append(out, models.Notification{
			OwnerID:   p.OwnerID,
			Kind:      models.KindProjectComplete,
			Title:     "Project completed",
			Body:      fmt.Sprintf("All %d tasks in project #%d are complete.", p.Total, p.ProjectID),
			ProjectID: &id,
		})
	}
	return out
}
