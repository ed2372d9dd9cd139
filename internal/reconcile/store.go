package reconcile

import (
	"context"

	"piktram/internal/models"
)

// Store is the record store the reconciler reads from and writes to.
// Implementations apply owner scoping from the caller; the reconciler does
// not re-check permissions. Missing rows are reported as ErrTaskNotFound or
// ErrProjectNotFound.
type Store interface {
	GetTask(ctx context.Context, caller models.Caller, id int64) (models.Task, error)
	CreateTask(ctx context.Context, caller models.Caller, t models.Task) (models.Task, error)
	UpdateTaskStatus(ctx context.Context, caller models.Caller, id int64, raw string) (models.Task, error)
	UpdateTaskProject(ctx context.Context, caller models.Caller, id int64, projectID *int64) (models.Task, error)
	DeleteTask(ctx context.Context, caller models.Caller, id int64) error

	GetProject(ctx context.Context, caller models.Caller, id int64) (models.Project, error)
	ListProjectIDs(ctx context.Context, caller models.Caller) ([]int64, error)
	ListProjectTasks(ctx context.Context, caller models.Caller, projectID int64) ([]models.Task, error)
	SetProjectProgress(ctx context.Context, caller models.Caller, projectID int64, progress int) error

	AppendAudit(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error)

	// WithinTx runs fn against a store bound to a single transaction. The
	// transaction commits when fn returns nil.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// Savepointer is implemented by stores that can undo part of an open
// transaction. Steps whose failure is only a warning run through it, so a
// failed statement does not abort the task write around it.
type Savepointer interface {
	// Savepoint runs fn after SAVEPOINT name and rolls back to it when fn
	// fails. Outside a transaction it just runs fn. name must be a plain
	// SQL identifier.
	Savepoint(ctx context.Context, name string, fn func() error) error
}

// Notifier delivers user notifications produced by status changes.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}
