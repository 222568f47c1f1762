// internal/repo/inspect.go
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"wit/internal/content"
	"wit/internal/diff"
	witerrors "wit/internal/errors"
	"wit/internal/history"
	"wit/internal/reflog"
	"wit/internal/refs"
	shared "wit/shared/types"
)

// GraphAll selects the whole repository instead of history from HEAD.
const GraphAll = "all"

// Graph returns the labelled history: ancestors of HEAD when mode is empty,
// every commit when mode is GraphAll.
func (r *Repository) Graph(ctx context.Context, mode string) (*history.Trace, error) {
	length := r.Config.Graph.LabelLength

	switch mode {
	case "":
		head, ok, err := r.refs.Head()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, witerrors.ReferenceNotFound(refs.Head)
		}
		return r.walker.AncestorTrace(ctx, head, length, true)
	case GraphAll:
		return r.walker.FullHistory(ctx, length)
	default:
		return nil, witerrors.InvalidArgument(fmt.Sprintf("unknown graph mode %q", mode), nil)
	}
}

// Log lists the first-parent chain from HEAD, newest first.
func (r *Repository) Log(ctx context.Context) ([]shared.LogEntry, error) {
	head, ok, err := r.refs.Head()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	chain, err := r.walker.FirstParents(ctx, head)
	if err != nil {
		return nil, err
	}

	names, err := r.refs.Names()
	if err != nil {
		return nil, err
	}
	labels := make(map[string][]string)
	for _, name := range names {
		fp, _, err := r.refs.Resolve(name)
		if err != nil {
			return nil, err
		}
		labels[fp] = append(labels[fp], name)
	}

	entries := make([]shared.LogEntry, 0, len(chain))
	for _, c := range chain {
		entries = append(entries, shared.LogEntry{
			ID:      c.ID,
			Parents: c.Parents,
			Date:    c.Date,
			Message: c.Message,
			Refs:    labels[c.ID],
		})
	}
	return entries, nil
}

// Reflog returns journal entries for ref (all refs when empty), newest
// first. It fails when the journal is disabled.
func (r *Repository) Reflog(ctx context.Context, ref string, limit int) ([]*reflog.Entry, error) {
	if r.journal == nil {
		return nil, witerrors.InvalidArgument("the reflog journal is disabled", nil)
	}
	return r.journal.List(ref, limit)
}

// FileDiff compares the staged copy of path with the working copy.
func (r *Repository) FileDiff(ctx context.Context, path string, contextLines int) (*shared.FileDiff, error) {
	rel, err := r.Paths.Rel(r.Abs(path))
	if err != nil {
		return nil, err
	}

	staged, stagedOK, err := readOptional(filepath.Join(r.Paths.Stage, rel))
	if err != nil {
		return nil, err
	}
	working, workingOK, err := readOptional(filepath.Join(r.Paths.Root, rel))
	if err != nil {
		return nil, err
	}
	if !stagedOK && !workingOK {
		return nil, witerrors.InvalidArgument(fmt.Sprintf("%s is neither staged nor in the working tree", path), nil)
	}

	result := diff.NewLineDiffer(contextLines).Diff(staged, working)

	fd := &shared.FileDiff{
		Path:      filepath.ToSlash(rel),
		Additions: result.Stats.Additions,
		Deletions: result.Stats.Deletions,
		Patch:     result.Format(),
	}
	for _, h := range result.Hunks {
		hunk := shared.DiffHunk{
			OldStart: h.OldStart,
			OldLines: h.OldLines,
			NewStart: h.NewStart,
			NewLines: h.NewLines,
		}
		for _, l := range h.Lines {
			hunk.Lines = append(hunk.Lines, l.Type.Prefix()+l.Content)
		}
		fd.Hunks = append(fd.Hunks, hunk)
	}
	return fd, nil
}

func readOptional(path string) ([]byte, bool, error) {
	data, err := content.ReadComparable(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, true, nil
}
