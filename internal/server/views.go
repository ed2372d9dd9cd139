package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"piktram/internal/models"
	"piktram/internal/reconcile"
	"piktram/internal/status"
)

// taskView adds the normalized status to a stored task. The raw value
// stays under "status".
type taskView struct {
	models.Task
	Canonical   status.Status `json:"canonical_status"`
	StatusLabel string        `json:"status_label"`
	Complete    bool          `json:"complete"`
}

func viewTask(t models.Task) taskView {
	canonical := t.Canonical()
	return taskView{
		Task:        t,
		Canonical:   canonical,
		StatusLabel: canonical.Label(),
		Complete:    canonical.IsComplete(),
	}
}

func viewTasks(tasks []models.Task) []taskView {
	out := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, viewTask(t))
	}
	return out
}

type revisionView struct {
	models.AuditEntry
	OldLabel string `json:"old_label"`
	NewLabel string `json:"new_label"`
}

func viewRevisions(entries []models.AuditEntry) []revisionView {
	out := make([]revisionView, 0, len(entries))
	for _, e := range entries {
		out = append(out, revisionView{
			AuditEntry: e,
			OldLabel:   status.Parse(e.OldStatus).Label(),
			NewLabel:   status.Parse(e.NewStatus).Label(),
		})
	}
	return out
}

// respondOutcome writes a task mutation result. Warnings signal that a
// project's progress may be stale until the next recompute.
func respondOutcome(c *gin.Context, code int, out reconcile.Outcome) {
	projects := out.Projects
	if projects == nil {
		projects = []reconcile.Progress{}
	}
	body := gin.H{
		"task":     viewTask(out.Task),
		"projects": projects,
		"stale":    out.Stale(),
	}
	if w := out.WarningMessages(); w != nil {
		body["warnings"] = w
	}
	respondSuccess(c, code, body)
}

type statusView struct {
	Value    status.Status `json:"value"`
	Label    string        `json:"label"`
	Index    int           `json:"index"`
	Complete bool          `json:"complete"`
}

// handleStatuses lists board columns in display order.
func (s *Server) handleStatuses(c *gin.Context) {
	all := status.All()
	out := make([]statusView, 0, len(all))
	for _, st := range all {
		out = append(out, statusView{Value: st, Label: st.Label(), Index: st.Index(), Complete: st.IsComplete()})
	}
	respondSuccess(c, http.StatusOK, gin.H{"statuses": out})
}
