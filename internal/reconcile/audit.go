package reconcile

import (
	"fmt"

	"piktram/internal/status"
)

// AuditDescription describes a status change between two raw values. It
// reports false when both normalize to the same canonical status, so
// switching between legacy spellings leaves no trail.
func AuditDescription(oldRaw, newRaw string) (string, bool) {
	from, to := status.Parse(oldRaw), status.Parse(newRaw)
	if from == to {
		return "", false
	}
	return fmt.Sprintf("Status moved from %s to %s", from.Label(), to.Label()), true
}
