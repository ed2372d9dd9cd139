package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"piktram/internal/models"
	"piktram/internal/reconcile"
	"piktram/internal/status"
	"piktram/internal/storage/sqldb"
)

type taskRequest struct {
	OwnerID      string     `json:"user_id"`
	ProjectID    *int64     `json:"project_id"`
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status"`
	Priority     *string    `json:"priority"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

type statusRequest struct {
	Status *string `json:"status"`
}

type projectAssignRequest struct {
	ProjectID *int64 `json:"project_id"`
}

// taskFilter reads the list query: project_id, no_project, status,
// priority, limit and offset.
func (s *Server) taskFilter(c *gin.Context) (sqldb.TaskFilter, bool) {
	var f sqldb.TaskFilter

	if raw := c.Query("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			s.badRequest(c, errors.New("invalid project_id"))
			return f, false
		}
		f.ProjectID = &id
	}
	if raw := c.Query("no_project"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.badRequest(c, errors.New("invalid no_project"))
			return f, false
		}
		f.WithoutProject = v
	}
	if raw := c.Query("status"); raw != "" {
		if !status.Status(raw).Valid() && !status.IsAlias(raw) {
			s.badRequest(c, fmt.Errorf("unknown status %q", raw))
			return f, false
		}
		st := status.Parse(raw)
		f.Status = &st
	}
	if raw := c.Query("priority"); raw != "" {
		p := models.ParsePriority(raw)
		if string(p) != raw {
			s.badRequest(c, fmt.Errorf("unknown priority %q", raw))
			return f, false
		}
		f.Priority = &p
	}

	var ok bool
	if f.Limit, ok = queryInt(c, "limit"); !ok {
		return f, false
	}
	if f.Offset, ok = queryInt(c, "offset"); !ok {
		return f, false
	}
	return f, true
}

// handleListTasks returns the caller's tasks across projects.
func (s *Server) handleListTasks(c *gin.Context) {
	filter, ok := s.taskFilter(c)
	if !ok {
		return
	}
	tasks, err := s.store.ListTasks(c.Request.Context(), callerOf(c), filter)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": viewTasks(tasks)})
}

// handleGetTask returns one task.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := s.store.GetTask(c.Request.Context(), callerOf(c), id)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": viewTask(task)})
}

// handleCreateTask inserts a task, optionally inside a project.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	s.createTask(c, req)
}

func (s *Server) createTask(c *gin.Context, req taskRequest) {
	if req.Title == nil || *req.Title == "" {
		s.badRequest(c, errors.New("title is required"))
		return
	}
	caller := callerOf(c)
	owner, ok := ownerFor(caller, req.OwnerID)
	if !ok {
		s.badRequest(c, errors.New("invalid user_id"))
		return
	}

	out, err := s.reconciler.Create(c.Request.Context(), caller, reconcile.NewTask{
		OwnerID:     owner,
		ProjectID:   req.ProjectID,
		Title:       *req.Title,
		Description: getString(req.Description),
		Status:      getString(req.Status),
		Priority:    getString(req.Priority),
		DueDate:     req.DueDate,
	})
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondOutcome(c, http.StatusCreated, out)
}

// handleUpdateTask edits task fields. A status in the body goes through
// the same path as PUT /tasks/:id/status.
//
// The field edit and the status change are separate writes: the status
// must go through the reconciler so progress, audit and notices follow it.
// The whole body is validated before either write. If the status change
// fails after the fields were saved, the error is returned and the fields
// stay saved.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if req.ProjectID != nil {
		s.badRequest(c, errors.New("use PUT /api/tasks/:id/project to move a task"))
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		s.writeErr(c, reconcile.ErrInvalidTask)
		return
	}

	ctx := c.Request.Context()
	caller := callerOf(c)
	patch := sqldb.TaskPatch{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	}
	if req.Priority != nil {
		p := models.ParsePriority(*req.Priority)
		patch.Priority = &p
	}

	task, err := s.store.UpdateTaskFields(ctx, caller, id, patch)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	if req.Status == nil {
		respondOutcome(c, http.StatusOK, reconcile.Outcome{Task: task})
		return
	}

	out, err := s.reconciler.SetStatus(ctx, caller, id, *req.Status)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondOutcome(c, http.StatusOK, out)
}

// handleSetStatus moves a task to another board column.
func (s *Server) handleSetStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if req.Status == nil {
		s.badRequest(c, errors.New("status is required"))
		return
	}

	out, err := s.reconciler.SetStatus(c.Request.Context(), callerOf(c), id, *req.Status)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondOutcome(c, http.StatusOK, out)
}

// handleReassign moves a task to another project; a null project_id
// detaches it.
func (s *Server) handleReassign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req projectAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	out, err := s.reconciler.Reassign(c.Request.Context(), callerOf(c), id, req.ProjectID)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondOutcome(c, http.StatusOK, out)
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	out, err := s.reconciler.Delete(c.Request.Context(), callerOf(c), id)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondOutcome(c, http.StatusOK, out)
}

// handleListRevisions returns a task's status history.
func (s *Server) handleListRevisions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entries, err := s.store.ListAudit(c.Request.Context(), callerOf(c), id)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"revisions": viewRevisions(entries)})
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
