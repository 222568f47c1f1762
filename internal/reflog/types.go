// internal/reflog/types.go
package reflog

import (
	"time"
)

// Action names what moved a reference.
type Action string

const (
	ActionCommit   Action = "commit"
	ActionMerge    Action = "merge"
	ActionCheckout Action = "checkout"
	ActionBranch   Action = "branch"
)

// Entry records one movement of a reference
type Entry struct {
	ID        string    `json:"id"`
	Ref       string    `json:"ref"`
	Old       string    `json:"old,omitempty"` // empty when the reference is new
	New       string    `json:"new"`
	Action    Action    `json:"action"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Box defines how reflog entries are stored and read back
type Box interface {
	Append(e *Entry) error
	Get(id string) (*Entry, error)
	// List returns entries newest first, restricted to ref unless it is
	// empty, and at most limit of them when limit is positive.
	List(ref string, limit int) ([]*Entry, error)
}
