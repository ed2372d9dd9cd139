package reconcile

import "errors"

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrInvalidTask     = errors.New("task invalid args")
	ErrInvalidProject  = errors.New("project invalid args")
)

// ErrProgressStale marks a recompute that could not finish. The stored
// progress was left untouched and may lag behind the task set.
var ErrProgressStale = errors.New("project progress may be stale")
