// internal/merge/engine.go
package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"wit/internal/content"
	"wit/internal/diff"
	witerrors "wit/internal/errors"
	"wit/internal/history"
	"wit/internal/images"
	"wit/internal/logging"
	"wit/internal/refs"
	"wit/internal/stage"

	"go.uber.org/zap"
)

// Plan is the outcome of analysing a merge before anything is written.
type Plan struct {
	Head      string
	Other     string
	Base      string
	Conflicts []string
	// Writes maps slash-separated stage paths to their merged content.
	Writes map[string][]byte
}

// Engine performs line-granularity three-way merges into the stage.
type Engine struct {
	refs   *refs.Store
	images *images.Store
	walker *history.Walker
	diff   *diff.Engine
	stage  *stage.Area
}

func NewEngine(r *refs.Store, i *images.Store, w *history.Walker, d *diff.Engine, s *stage.Area) *Engine {
	return &Engine{
		refs:   r,
		images: i,
		walker: w,
		diff:   d,
		stage:  s,
	}
}

// Merge folds other, a branch name or commit id, into HEAD and commits the
// result with both as parents. A conflict leaves the stage untouched.
func (e *Engine) Merge(ctx context.Context, other string) (string, error) {
	log := logging.FromContext(ctx).With(zap.String("other", other))

	plan, err := e.Plan(ctx, other)
	if err != nil {
		return "", err
	}
	if len(plan.Conflicts) > 0 {
		log.Warn("merge aborted", zap.Strings("conflicts", plan.Conflicts))
		return "", witerrors.MergeConflict(plan.Conflicts)
	}

	rels := make([]string, 0, len(plan.Writes))
	for rel := range plan.Writes {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		if err := e.stage.Write(ctx, rel, plan.Writes[rel]); err != nil {
			return "", err
		}
	}

	log.Info("merged into stage",
		zap.String("base", plan.Base),
		zap.Int("files", len(rels)))

	id, err := e.images.Create(ctx, "Merge with "+other, plan.Other)
	if errors.Is(err, witerrors.ErrDuplicateCommit) && id == plan.Other && plan.Base == plan.Head {
		// HEAD is an ancestor of other and the merge reproduced other.
		// Any other existing image leaves the references alone.
		log.Info("fast-forward", zap.String("id", id))
		if err := e.refs.RecordCommit(ctx, id, true); err != nil {
			return "", fmt.Errorf("recording fast-forward: %w", err)
		}
		return id, nil
	}
	return id, err
}

// Plan resolves both sides and their merge base, then computes every staged
// write or the list of conflicting paths.
func (e *Engine) Plan(ctx context.Context, other string) (*Plan, error) {
	head, ok, err := e.refs.Head()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, witerrors.ReferenceNotFound(refs.Head)
	}
	otherID, _, err := e.refs.Lookup(other, e.images.Exists)
	if err != nil {
		return nil, err
	}

	base, err := e.walker.MergeBase(ctx, head, otherID)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Head:   head,
		Other:  otherID,
		Base:   base,
		Writes: make(map[string][]byte),
	}

	baseDir := e.images.SnapshotDir(base)
	headDir := e.images.SnapshotDir(head)
	otherDir := e.images.SnapshotDir(otherID)

	otherDiff, err := e.diff.CompareTrees(ctx, otherDir, baseDir)
	if err != nil {
		return nil, fmt.Errorf("comparing %s with base: %w", other, err)
	}
	headDiff, err := e.diff.CompareTrees(ctx, headDir, baseDir)
	if err != nil {
		return nil, fmt.Errorf("comparing HEAD with base: %w", err)
	}

	bothChanged := intersect(otherDiff.Changed, headDiff.Changed)
	bothUntracked := intersect(otherDiff.Untracked, headDiff.Untracked)

	for _, rel := range otherDiff.Changed {
		if bothChanged[rel] {
			continue
		}
		if err := plan.copyFrom(otherDir, rel); err != nil {
			return nil, err
		}
	}

	for _, rel := range otherDiff.Untracked {
		if bothUntracked[rel] {
			same, err := sameBytes(headDir, otherDir, rel)
			if err != nil {
				return nil, err
			}
			if !same {
				plan.Conflicts = append(plan.Conflicts, rel)
				continue
			}
		}
		if err := plan.copyFrom(otherDir, rel); err != nil {
			return nil, err
		}
	}

	for _, rel := range otherDiff.Changed {
		if !bothChanged[rel] {
			continue
		}
		baseLines, err := readLines(baseDir, rel)
		if err != nil {
			return nil, err
		}
		headLines, err := readLines(headDir, rel)
		if err != nil {
			return nil, err
		}
		otherLines, err := readLines(otherDir, rel)
		if err != nil {
			return nil, err
		}

		if Conflicts(baseLines, headLines, otherLines) {
			plan.Conflicts = append(plan.Conflicts, rel)
			continue
		}
		plan.Writes[rel] = Reconcile(baseLines, headLines, otherLines)
	}

	sort.Strings(plan.Conflicts)
	logging.FromContext(ctx).Debug("planned merge",
		zap.String("head", head),
		zap.String("other", otherID),
		zap.String("base", base),
		zap.Int("both_changed", len(bothChanged)),
		zap.Int("both_untracked", len(bothUntracked)),
		zap.Int("conflicts", len(plan.Conflicts)))
	return plan, nil
}

func (p *Plan) copyFrom(dir, rel string) error {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("reading %s: %w", rel, err)
	}
	p.Writes[rel] = data
	return nil
}

func intersect(a, b []string) map[string]bool {
	inB := make(map[string]bool, len(b))
	for _, rel := range b {
		inB[rel] = true
	}
	both := make(map[string]bool)
	for _, rel := range a {
		if inB[rel] {
			both[rel] = true
		}
	}
	return both
}

func sameBytes(dirA, dirB, rel string) (bool, error) {
	a, err := os.ReadFile(filepath.Join(dirA, filepath.FromSlash(rel)))
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", rel, err)
	}
	b, err := os.ReadFile(filepath.Join(dirB, filepath.FromSlash(rel)))
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", rel, err)
	}
	return bytes.Equal(a, b), nil
}

func readLines(dir, rel string) ([][]byte, error) {
	data, err := content.ReadComparable(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return diff.SplitLines(data), nil
}
