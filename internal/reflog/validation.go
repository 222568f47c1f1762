package reflog

import (
	"wit/internal/content"
	"wit/internal/errors"
)

var validActions = map[Action]bool{
	ActionCommit:   true,
	ActionMerge:    true,
	ActionCheckout: true,
	ActionBranch:   true,
}

// ValidateEntry validates an entry before it is stored
func ValidateEntry(e *Entry) error {
	if e.Ref == "" {
		return errors.InvalidArgument("ref is required", nil)
	}
	if !content.IsFingerprint(e.New) {
		return errors.InvalidArgument("new must be a commit id", nil)
	}
	if e.Old != "" && !content.IsFingerprint(e.Old) {
		return errors.InvalidArgument("old must be empty or a commit id", nil)
	}
	if !validActions[e.Action] {
		return errors.InvalidArgument("invalid action "+string(e.Action), nil)
	}
	return nil
}
