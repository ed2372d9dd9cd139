package models

import (
	"time"

	"piktram/internal/status"
)

// Priority ranks a task on the board.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps unknown input to PriorityMedium.
func ParsePriority(raw string) Priority {
	switch Priority(raw) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(raw)
	default:
		return PriorityMedium
	}
}

// Project groups tasks of a single owner. Progress is derived from the
// project's tasks and is never edited directly.
type Project struct {
	ID        int64      `json:"id" db:"id"`
	OwnerID   string     `json:"user_id" db:"user_id"`
	Name      string     `json:"name" db:"name"`
	Color     string     `json:"color" db:"color"`
	Progress  int        `json:"progress" db:"progress"`
	DueDate   *time.Time `json:"due_date" db:"due_date"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Task represents a single card on the board. Status holds the raw stored
// value, which may be a legacy spelling.
type Task struct {
	ID          int64      `json:"id" db:"id"`
	OwnerID     string     `json:"user_id" db:"user_id"`
	ProjectID   *int64     `json:"project_id" db:"project_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      string     `json:"status" db:"status"`
	Priority    Priority   `json:"priority" db:"priority"`
	DueDate     *time.Time `json:"due_date" db:"due_date"`
	Position    int64      `json:"position" db:"position"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Canonical returns the normalized status of the task.
func (t Task) Canonical() status.Status {
	return status.Parse(t.Status)
}

// AuditEntry is one line of a task's revision trail. Old and new values are
// kept raw so legacy spellings survive.
type AuditEntry struct {
	ID          int64     `json:"id" db:"id"`
	TaskID      int64     `json:"task_id" db:"task_id"`
	OwnerID     string    `json:"user_id" db:"user_id"`
	OldStatus   string    `json:"old_status" db:"old_status"`
	NewStatus   string    `json:"new_status" db:"new_status"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Notification kinds.
const (
	KindTaskStatus      = "task_status"
	KindProjectComplete = "project_complete"
)

// Notification is an in-app message for a user.
type Notification struct {
	ID        int64     `json:"id" db:"id"`
	OwnerID   string    `json:"user_id" db:"user_id"`
	Kind      string    `json:"kind" db:"kind"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	TaskID    *int64    `json:"task_id" db:"task_id"`
	ProjectID *int64    `json:"project_id" db:"project_id"`
	Read      bool      `json:"read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Roles stored in the users table.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// User is a dashboard account. Authentication happens upstream; only the
// role is kept here.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Caller identifies who performs an operation. Non-admin callers only see
// and mutate their own rows.
type Caller struct {
	OwnerID string
	IsAdmin bool
}

// Admin returns a caller that may act across all owners.
func Admin() Caller {
	return Caller{IsAdmin: true}
}

// Scope reports whether the caller may touch rows owned by owner.
func (c Caller) Scope(owner string) bool {
	return c.IsAdmin || c.OwnerID == owner
}

// As returns a non-admin caller scoped to owner.
func As(owner string) Caller {
	return Caller{OwnerID: owner}
}
