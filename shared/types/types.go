// Package shared holds the plain values handed to presentation layers.
package shared

import "time"

// Status is the three-way view of working tree, stage and last commit.
type Status struct {
	Head          string   `json:"head,omitempty"`
	Branch        string   `json:"branch"`
	Detached      bool     `json:"detached"` // HEAD differs from the branch binding
	ToBeCommitted []string `json:"to_be_committed"`
	Unstaged      []string `json:"unstaged"`
	Untracked     []string `json:"untracked"`
}

// Clean reports whether nothing differs between the three file sets.
func (s *Status) Clean() bool {
	return len(s.ToBeCommitted) == 0 && len(s.Unstaged) == 0 && len(s.Untracked) == 0
}

// Edge links a history node to one of its parents, or a branch label to the
// commit it names.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// LogEntry is one commit on the first-parent chain from HEAD.
type LogEntry struct {
	ID      string    `json:"id"`
	Parents []string  `json:"parents"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
	Refs    []string  `json:"refs,omitempty"`
}

// DiffHunk represents a section of changes
type DiffHunk struct {
	OldStart int      `json:"old_start"`
	OldLines int      `json:"old_lines"`
	NewStart int      `json:"new_start"`
	NewLines int      `json:"new_lines"`
	Lines    []string `json:"lines"`
}

// FileDiff is the staged versus working copy of one path.
type FileDiff struct {
	Path      string     `json:"path"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
	Hunks     []DiffHunk `json:"hunks,omitempty"`
	// Patch is the unified text of Hunks.
	Patch string `json:"patch,omitempty"`
}
