// internal/checkout/engine.go
package checkout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"wit/internal/content"
	"wit/internal/diff"
	witerrors "wit/internal/errors"
	"wit/internal/images"
	"wit/internal/logging"
	"wit/internal/paths"
	"wit/internal/refs"
	"wit/internal/stage"

	"github.com/otiai10/copy"
	"go.uber.org/zap"
)

// Result describes a completed checkout.
type Result struct {
	Target   string
	Branch   string // empty when HEAD is detached
	Restored int
	// Kept lists untracked working files left in place of snapshot content.
	Kept []string
}

// Engine restores the working tree and stage to a commit.
type Engine struct {
	paths  *paths.Paths
	refs   *refs.Store
	images *images.Store
	diff   *diff.Engine
	stage  *stage.Area
}

func NewEngine(p *paths.Paths, r *refs.Store, i *images.Store, d *diff.Engine, s *stage.Area) *Engine {
	return &Engine{
		paths:  p,
		refs:   r,
		images: i,
		diff:   d,
		stage:  s,
	}
}

// Pending lists every path that blocks a checkout: staged changes not yet
// committed plus working files that differ from the stage.
func (e *Engine) Pending(ctx context.Context) ([]string, error) {
	pending, _, err := e.inspect(ctx)
	return pending, err
}

// inspect returns the blocking paths and the untracked working files.
func (e *Engine) inspect(ctx context.Context) (pending, untracked []string, err error) {
	toCommit, err := e.diff.ChangesToBeCommitted(ctx)
	if err != nil {
		return nil, nil, err
	}
	working, err := e.diff.WorkingTreeStatus(ctx)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	for _, rel := range append(toCommit, working.Changed...) {
		if !seen[rel] {
			seen[rel] = true
			pending = append(pending, rel)
		}
	}
	sort.Strings(pending)
	return pending, working.Untracked, nil
}

// Checkout switches to target, a branch name or a commit id. Nothing is
// modified when there are pending changes or target cannot be resolved.
// Working files absent from the target snapshot are left in place, and
// untracked working files are never overwritten.
func (e *Engine) Checkout(ctx context.Context, target string) (*Result, error) {
	log := logging.FromContext(ctx).With(zap.String("target", target))

	pending, untracked, err := e.inspect(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		log.Warn("checkout refused", zap.Strings("paths", pending))
		return nil, witerrors.UncommittedChanges(pending)
	}

	id, isBranch, err := e.refs.Lookup(target, e.images.Exists)
	if err != nil {
		return nil, err
	}
	if !e.images.Exists(id) {
		return nil, witerrors.ReferenceNotFound(target)
	}
	snapshot := e.images.SnapshotDir(id)

	files, err := content.Enumerate(snapshot, snapshot, nil)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool, len(untracked))
	for _, rel := range untracked {
		keep[rel] = true
	}
	var kept []string
	opts := copy.Options{
		Skip: func(info os.FileInfo, src, dest string) (bool, error) {
			if info.IsDir() {
				return false, nil
			}
			rel, err := filepath.Rel(snapshot, src)
			if err != nil {
				return false, err
			}
			rel = filepath.ToSlash(rel)
			if keep[rel] {
				kept = append(kept, rel)
				return true, nil
			}
			return false, nil
		},
	}
	if err := copy.Copy(snapshot, e.paths.Root, opts); err != nil {
		return nil, fmt.Errorf("restoring working tree: %w", err)
	}
	if len(kept) > 0 {
		log.Warn("kept untracked files over the snapshot", zap.Strings("paths", kept))
	}
	if err := e.stage.ResetTo(ctx, snapshot); err != nil {
		return nil, err
	}

	if isBranch {
		if err := e.refs.Activate(ctx, target); err != nil {
			return nil, err
		}
	}
	if err := e.refs.RecordCommit(ctx, id, isBranch); err != nil {
		return nil, fmt.Errorf("moving HEAD: %w", err)
	}

	result := &Result{
		Target:   id,
		Restored: len(files) - len(kept),
		Kept:     kept,
	}
	if isBranch {
		result.Branch = target
	}
	log.Info("checked out",
		zap.String("id", id),
		zap.String("branch", result.Branch),
		zap.Int("files", result.Restored))
	return result, nil
}
