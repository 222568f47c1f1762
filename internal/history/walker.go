// internal/history/walker.go
package history

import (
	"context"
	"fmt"

	"wit/internal/images"
	"wit/internal/logging"
	"wit/internal/refs"

	"go.uber.org/zap"
)

// Walker traverses the parent links between images.
type Walker struct {
	images *images.Store
	refs   *refs.Store
}

func NewWalker(i *images.Store, r *refs.Store) *Walker {
	return &Walker{images: i, refs: r}
}

// Label shortens id to length characters; length <= 0 keeps it whole.
func Label(id string, length int) string {
	if length <= 0 || length >= len(id) {
		return id
	}
	return id[:length]
}

// AncestorTrace walks from start breadth first, one level at a time,
// expanding every parent of every frontier commit exactly once. With
// includeBranchLabels, each reference name bound to a visited commit becomes
// a node pointing at that commit.
func (w *Walker) AncestorTrace(ctx context.Context, start string, labelLength int, includeBranchLabels bool) (*Trace, error) {
	var branches map[string][]string
	if includeBranchLabels {
		var err error
		if branches, err = w.branchesByCommit(); err != nil {
			return nil, err
		}
	}

	trace := newTrace()
	visited := make(map[string]bool)
	frontier := []string{start}
	depth := 0

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []string
		for _, id := range frontier {
			if visited[id] {
				continue
			}
			visited[id] = true

			parents, err := w.realParents(id)
			if err != nil {
				return nil, err
			}
			w.record(trace, id, parents, labelLength, branches)
			next = append(next, parents...)
		}
		frontier = next
		depth++
	}

	logging.FromContext(ctx).Debug("traced ancestors",
		zap.String("start", start),
		zap.Int("commits", len(visited)),
		zap.Int("depth", depth))
	return trace, nil
}

// FullHistory records every known image, in id order, with branch labels.
func (w *Walker) FullHistory(ctx context.Context, labelLength int) (*Trace, error) {
	branches, err := w.branchesByCommit()
	if err != nil {
		return nil, err
	}
	ids, err := w.images.List()
	if err != nil {
		return nil, err
	}

	trace := newTrace()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parents, err := w.realParents(id)
		if err != nil {
			return nil, err
		}
		w.record(trace, id, parents, labelLength, branches)
	}
	return trace, nil
}

func (w *Walker) record(trace *Trace, id string, parents []string, labelLength int, branches map[string][]string) {
	label := Label(id, labelLength)
	parentLabels := make([]string, 0, len(parents))
	for _, p := range parents {
		parentLabels = append(parentLabels, Label(p, labelLength))
	}
	trace.add(label, parentLabels...)

	for _, name := range branches[id] {
		trace.add(name, label)
	}
}

func (w *Walker) realParents(id string) ([]string, error) {
	parents, err := w.images.ParentsOf(id)
	if err != nil {
		return nil, fmt.Errorf("reading parents of %s: %w", id, err)
	}
	out := make([]string, 0, len(parents))
	for _, p := range parents {
		if p != images.NoParent {
			out = append(out, p)
		}
	}
	return out, nil
}

// branchesByCommit inverts the reference file, keeping file order of names.
func (w *Walker) branchesByCommit() (map[string][]string, error) {
	names, err := w.refs.Names()
	if err != nil {
		return nil, err
	}
	byCommit := make(map[string][]string)
	for _, name := range names {
		fp, ok, err := w.refs.Resolve(name)
		if err != nil {
			return nil, err
		}
		if ok {
			byCommit[fp] = append(byCommit[fp], name)
		}
	}
	return byCommit, nil
}

// MergeBase returns the first commit of a's trace that also appears in b's.
// This is the first common node in a's traversal order, which for criss-cross
// histories need not be a lowest common ancestor.
func (w *Walker) MergeBase(ctx context.Context, a, b string) (string, error) {
	ta, err := w.AncestorTrace(ctx, a, 0, false)
	if err != nil {
		return "", err
	}
	tb, err := w.AncestorTrace(ctx, b, 0, false)
	if err != nil {
		return "", err
	}

	for _, id := range ta.Keys() {
		if tb.Contains(id) {
			logging.FromContext(ctx).Debug("found merge base",
				zap.String("current", a),
				zap.String("other", b),
				zap.String("base", id))
			return id, nil
		}
	}
	return "", fmt.Errorf("%s and %s share no history", a, b)
}

// FirstParents follows first parents from start back to the root.
func (w *Walker) FirstParents(ctx context.Context, start string) ([]*images.Commit, error) {
	var chain []*images.Commit
	seen := make(map[string]bool)

	for id := start; id != "" && !seen[id]; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seen[id] = true

		c, err := w.images.Read(id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, c)

		id = ""
		if !c.IsRoot() && len(c.Parents) > 0 {
			id = c.Parents[0]
		}
	}
	return chain, nil
}
