package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"piktram/internal/models"
	"piktram/internal/reconcile"
	"piktram/internal/storage/sqldb"
)

type projectRequest struct {
	OwnerID      string     `json:"user_id"`
	Name         *string    `json:"name"`
	Color        *string    `json:"color"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

// handleListProjects returns the caller's projects.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context(), callerOf(c))
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleGetProject returns one project.
func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := s.store.GetProject(c.Request.Context(), callerOf(c), id)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleCreateProject creates a new project with zero progress.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if req.Name == nil || *req.Name == "" {
		s.badRequest(c, errors.New("name is required"))
		return
	}
	owner, ok := ownerFor(callerOf(c), req.OwnerID)
	if !ok {
		s.badRequest(c, errors.New("invalid user_id"))
		return
	}

	p := models.Project{OwnerID: owner, Name: *req.Name, DueDate: req.DueDate}
	if req.Color != nil {
		p.Color = *req.Color
	}
	project, err := s.store.CreateProject(c.Request.Context(), p)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleUpdateProject renames, recolors or reschedules a project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	project, err := s.store.UpdateProject(c.Request.Context(), callerOf(c), id, sqldb.ProjectPatch{
		Name:         req.Name,
		Color:        req.Color,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	})
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project. Its tasks stay without a project.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), callerOf(c), id); err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleListProjectTasks fetches tasks for a project.
func (s *Server) handleListProjectTasks(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := s.store.GetProject(ctx, callerOf(c), id); err != nil {
		s.writeErr(c, err)
		return
	}

	filter, ok := s.taskFilter(c)
	if !ok {
		return
	}
	filter.ProjectID = &id
	filter.WithoutProject = false

	tasks, err := s.store.ListTasks(ctx, callerOf(c), filter)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": viewTasks(tasks)})
}

// handleCreateProjectTask inserts a new task into a project.
func (s *Server) handleCreateProjectTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	req.ProjectID = &id
	s.createTask(c, req)
}

// handleRecomputeProject recalculates one project's progress on demand.
func (s *Server) handleRecomputeProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := s.reconciler.RecomputeProgress(c.Request.Context(), callerOf(c), &id)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"progress": p})
}

// handleRecomputeAll recalculates every project visible to the caller.
// Per-project failures are warnings; failing to list the projects is not.
func (s *Server) handleRecomputeAll(c *gin.Context) {
	results, err := s.reconciler.RecomputeAll(c.Request.Context(), callerOf(c))
	if results == nil && err != nil {
		s.writeErr(c, err)
		return
	}
	if results == nil {
		results = []reconcile.Progress{}
	}
	body := gin.H{"projects": results}
	if err != nil {
		s.logger.Warn("recompute all finished with errors", "error", err.Error())
		body["warnings"] = []string{err.Error()}
	}
	respondSuccess(c, http.StatusOK, body)
}
