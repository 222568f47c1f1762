// internal/diff/engine.go
package diff

import (
	"context"
	"path/filepath"
	"sort"

	"wit/internal/content"
	"wit/internal/logging"
	"wit/internal/paths"
	"wit/internal/refs"

	"go.uber.org/zap"
)

// Result classifies candidate paths against a baseline. Paths found only in
// the baseline are never reported.
type Result struct {
	Changed   []string
	Untracked []string
}

// Empty reports whether nothing was classified.
func (r Result) Empty() bool {
	return len(r.Changed) == 0 && len(r.Untracked) == 0
}

// Engine compares the working tree, the stage and the HEAD image.
type Engine struct {
	paths     *paths.Paths
	refs      *refs.Store
	addresser *content.Addresser
	ignore    paths.IgnoreRules
}

func NewEngine(p *paths.Paths, r *refs.Store, a *content.Addresser, ignore paths.IgnoreRules) *Engine {
	return &Engine{
		paths:     p,
		refs:      r,
		addresser: a,
		ignore:    ignore,
	}
}

// Compare classifies each candidate path: untracked when the baseline lacks
// it, changed when the comparable contents fingerprint differently.
func (e *Engine) Compare(ctx context.Context, candidate, baseline []string, candidateRoot, baselineRoot string) (Result, error) {
	known := make(map[string]bool, len(baseline))
	for _, rel := range baseline {
		known[rel] = true
	}

	var result Result
	for _, rel := range candidate {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if !known[rel] {
			result.Untracked = append(result.Untracked, rel)
			continue
		}

		a, err := e.addresser.FingerprintFile(filepath.Join(candidateRoot, filepath.FromSlash(rel)))
		if err != nil {
			return Result{}, err
		}
		b, err := e.addresser.FingerprintFile(filepath.Join(baselineRoot, filepath.FromSlash(rel)))
		if err != nil {
			return Result{}, err
		}
		if a != b {
			result.Changed = append(result.Changed, rel)
		}
	}

	logging.FromContext(ctx).Debug("compared file sets",
		zap.String("candidate", candidateRoot),
		zap.String("baseline", baselineRoot),
		zap.Int("changed", len(result.Changed)),
		zap.Int("untracked", len(result.Untracked)))
	return result, nil
}

// CompareTrees enumerates both roots and compares them.
func (e *Engine) CompareTrees(ctx context.Context, candidateRoot, baselineRoot string) (Result, error) {
	candidate, err := content.Enumerate(candidateRoot, candidateRoot, nil)
	if err != nil {
		return Result{}, err
	}
	baseline, err := content.Enumerate(baselineRoot, baselineRoot, nil)
	if err != nil {
		return Result{}, err
	}
	return e.Compare(ctx, candidate, baseline, candidateRoot, baselineRoot)
}

// ChangesToBeCommitted lists staged paths that are new or differ from the
// HEAD image. Before the first commit every staged path qualifies.
func (e *Engine) ChangesToBeCommitted(ctx context.Context) ([]string, error) {
	staged, err := content.Enumerate(e.paths.Stage, e.paths.Stage, nil)
	if err != nil {
		return nil, err
	}

	head, ok, err := e.refs.Head()
	if err != nil {
		return nil, err
	}
	if !ok {
		return staged, nil
	}

	snapshot := e.paths.SnapshotDir(head)
	committed, err := content.Enumerate(snapshot, snapshot, nil)
	if err != nil {
		return nil, err
	}

	result, err := e.Compare(ctx, staged, committed, e.paths.Stage, snapshot)
	if err != nil {
		return nil, err
	}

	pending := append(result.Changed, result.Untracked...)
	sort.Strings(pending)
	return pending, nil
}

// WorkingTreeStatus compares the working tree against the stage.
func (e *Engine) WorkingTreeStatus(ctx context.Context) (Result, error) {
	working, err := e.WorkingFiles()
	if err != nil {
		return Result{}, err
	}
	staged, err := content.Enumerate(e.paths.Stage, e.paths.Stage, nil)
	if err != nil {
		return Result{}, err
	}
	return e.Compare(ctx, working, staged, e.paths.Root, e.paths.Stage)
}

// WorkingFiles lists the working tree without the metadata directory and
// ignored paths.
func (e *Engine) WorkingFiles() ([]string, error) {
	return content.Enumerate(e.paths.Root, e.paths.Root, e.ignore.Match)
}
