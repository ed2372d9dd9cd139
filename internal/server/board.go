package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"piktram/internal/models"
	"piktram/internal/reconcile"
	"piktram/internal/status"
)

type boardColumn struct {
	Status   status.Status `json:"status"`
	Label    string        `json:"label"`
	Complete bool          `json:"complete"`
	Tasks    []taskView    `json:"tasks"`
}

// handleBoard groups tasks into kanban columns in canonical order. Legacy
// spellings land in the column of their normalized status.
func (s *Server) handleBoard(c *gin.Context) {
	filter, ok := s.taskFilter(c)
	if !ok {
		return
	}
	filter.Status = nil
	filter.Limit, filter.Offset = 0, 0

	ctx := c.Request.Context()
	caller := callerOf(c)

	var project *models.Project
	if filter.ProjectID != nil {
		p, err := s.store.GetProject(ctx, caller, *filter.ProjectID)
		if err != nil {
			s.writeErr(c, err)
			return
		}
		project = &p
	}

	tasks, err := s.store.ListTasks(ctx, caller, filter)
	if err != nil {
		s.writeErr(c, err)
		return
	}

	all := status.All()
	columns := make([]boardColumn, len(all))
	for i, st := range all {
		columns[i] = boardColumn{Status: st, Label: st.Label(), Complete: st.IsComplete(), Tasks: []taskView{}}
	}
	for _, t := range tasks {
		i := t.Canonical().Index()
		columns[i].Tasks = append(columns[i].Tasks, viewTask(t))
	}

	body := gin.H{"columns": columns}
	if project != nil {
		completed := reconcile.CountComplete(tasks)
		body["project"] = project
		body["summary"] = gin.H{
			"completed": completed,
			"total":     len(tasks),
			"progress":  reconcile.Percent(completed, len(tasks)),
		}
	}
	respondSuccess(c, http.StatusOK, body)
}
