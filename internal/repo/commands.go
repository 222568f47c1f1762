// internal/repo/commands.go
package repo

import (
	"context"
	"errors"

	"wit/internal/checkout"
	witerrors "wit/internal/errors"
	"wit/internal/logging"
	"wit/internal/reflog"
	"wit/internal/refs"
	shared "wit/shared/types"

	"go.uber.org/zap"
)

// Add stages a file or directory of the working tree.
func (r *Repository) Add(ctx context.Context, path string) error {
	return r.stage.Add(ctx, r.Abs(path))
}

// Commit snapshots the stage. mergeParent, when set, names a branch or
// commit recorded as second parent. Committing unchanged content returns the
// existing id with an error matching ErrDuplicateCommit.
func (r *Repository) Commit(ctx context.Context, message, mergeParent string) (string, error) {
	if mergeParent != "" {
		fp, _, err := r.refs.Lookup(mergeParent, r.images.Exists)
		if err != nil {
			return "", err
		}
		mergeParent = fp
	}

	action := reflog.ActionCommit
	if mergeParent != "" {
		action = reflog.ActionMerge
	}

	var id string
	err := r.journaled(ctx, action, message, func() error {
		var err error
		id, err = r.images.Create(ctx, message, mergeParent)
		return err
	})
	return id, err
}

// Status reports the last commit, staged changes, unstaged changes and
// untracked files.
func (r *Repository) Status(ctx context.Context) (*shared.Status, error) {
	status := &shared.Status{}

	head, ok, err := r.refs.Head()
	if err != nil {
		return nil, err
	}
	active, err := r.refs.Active()
	if err != nil {
		return nil, err
	}
	status.Branch = active
	if ok {
		status.Head = head
		bound, _, err := r.refs.Resolve(active)
		if err != nil {
			return nil, err
		}
		status.Detached = bound != head
	}

	if status.ToBeCommitted, err = r.diff.ChangesToBeCommitted(ctx); err != nil {
		return nil, err
	}
	working, err := r.diff.WorkingTreeStatus(ctx)
	if err != nil {
		return nil, err
	}
	status.Unstaged = working.Changed
	status.Untracked = working.Untracked

	logging.FromContext(ctx).Debug("computed status",
		zap.Int("to_be_committed", len(status.ToBeCommitted)),
		zap.Int("unstaged", len(status.Unstaged)),
		zap.Int("untracked", len(status.Untracked)))
	return status, nil
}

// Checkout switches the working tree and stage to a branch or commit.
func (r *Repository) Checkout(ctx context.Context, target string) (*checkout.Result, error) {
	var result *checkout.Result
	err := r.journaled(ctx, reflog.ActionCheckout, "checkout "+target, func() error {
		var err error
		result, err = r.checkouts.Checkout(ctx, target)
		return err
	})
	return result, err
}

// Branch binds name to HEAD, replacing any existing binding of that name.
func (r *Repository) Branch(ctx context.Context, name string) (string, error) {
	if err := refs.ValidateName(name); err != nil {
		return "", err
	}
	head, ok, err := r.refs.Head()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", witerrors.ReferenceNotFound(refs.Head)
	}

	err = r.journaled(ctx, reflog.ActionBranch, "branch "+name, func() error {
		return r.refs.Bind(ctx, name, head)
	})
	return head, err
}

// Merge folds a branch or commit into HEAD and commits the result.
func (r *Repository) Merge(ctx context.Context, other string) (string, error) {
	var id string
	err := r.journaled(ctx, reflog.ActionMerge, "Merge with "+other, func() error {
		var err error
		id, err = r.merger.Merge(ctx, other)
		return err
	})
	return id, err
}

// journaled runs op and records every reference it moved. Journal failures
// are logged and never fail the command.
func (r *Repository) journaled(ctx context.Context, action reflog.Action, message string, op func() error) error {
	if r.journal == nil {
		return op()
	}
	log := logging.FromContext(ctx)

	before, err := r.refs.Bindings()
	if err != nil {
		log.Warn("reading references for journal", zap.Error(err))
		return op()
	}

	opErr := op()
	if opErr != nil && !errors.Is(opErr, witerrors.ErrDuplicateCommit) {
		return opErr
	}

	after, err := r.refs.Bindings()
	if err != nil {
		log.Warn("reading references for journal", zap.Error(err))
		return opErr
	}

	old := make(map[string]string, len(before))
	for _, b := range before {
		old[b.Name] = b.Fingerprint
	}
	for _, b := range after {
		if old[b.Name] == b.Fingerprint {
			continue
		}
		entry := &reflog.Entry{
			Ref:     b.Name,
			Old:     old[b.Name],
			New:     b.Fingerprint,
			Action:  action,
			Message: message,
		}
		if err := r.journal.Append(entry); err != nil {
			log.Warn("appending reflog entry", zap.String("ref", b.Name), zap.Error(err))
		}
	}
	return opErr
}
