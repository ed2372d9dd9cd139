// Package status defines the canonical task lifecycle used by the board and
// by project progress accounting.
package status

// Status is a canonical task status. Raw values read from storage must pass
// through Parse before any logic looks at them.
type Status string

const (
	Todo       Status = "todo"
	InProgress Status = "in_progress"
	InReview   Status = "in_review"
	Revision   Status = "revision"
	Approved   Status = "approved"
	Published  Status = "published"
	Done       Status = "done"
)

// ordered lists the canonical statuses in board column order.
var ordered = []Status{Todo, InProgress, InReview, Revision, Approved, Published, Done}

// aliases maps legacy spellings onto the terminal state. "done" is listed
// too: older rows used it before the canonical set existed.
var aliases = map[string]Status{
	"completed": Done,
	"done":      Done,
}

var labels = map[Status]string{
	Todo:       "To Do",
	InProgress: "In Progress",
	InReview:   "In Review",
	Revision:   "Revision",
	Approved:   "Approved",
	Published:  "Published",
	Done:       "Done",
}

var completion = map[Status]struct{}{
	Approved:  {},
	Published: {},
	Done:      {},
}

// All returns the canonical statuses in board order.
func All() []Status {
	out := make([]Status, len(ordered))
	copy(out, ordered)
	return out
}

// Parse normalizes a raw stored value. Unknown input maps to Todo.
func Parse(raw string) Status {
	if s, ok := aliases[raw]; ok {
		return s
	}
	if Status(raw).Valid() {
		return Status(raw)
	}
	return Todo
}

// IsAlias reports whether raw is a legacy spelling of a canonical status.
func IsAlias(raw string) bool {
	_, ok := aliases[raw]
	return ok
}

// IsCompleteRaw reports whether a raw stored value counts toward progress.
func IsCompleteRaw(raw string) bool {
	return Parse(raw).IsComplete()
}

// Valid reports whether s is a member of the canonical set.
func (s Status) Valid() bool {
	_, ok := labels[s]
	return ok
}

// Index returns the board column position of s, or -1.
func (s Status) Index() int {
	for i, v := range ordered {
		if v == s {
			return i
		}
	}
	return -1
}

// Label returns the display name. It does not normalize; callers pass a
// canonical value.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// IsComplete reports membership in the completion set.
func (s Status) IsComplete() bool {
	_, ok := completion[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}
