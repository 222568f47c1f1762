package history

import (
	"context"
	"os"
	"strings"
	"testing"

	"wit/internal/content"
	"wit/internal/images"
	"wit/internal/paths"
	"wit/internal/refs"
	shared "wit/shared/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	walker *Walker
	refs   *refs.Store
	paths  *paths.Paths
}

func setupWalker(t *testing.T) *fixture {
	t.Helper()

	p, err := paths.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(p.Images, 0755))

	r := refs.NewStore(p)
	return &fixture{
		walker: NewWalker(images.NewStore(p, r), r),
		refs:   r,
		paths:  p,
	}
}

// commit writes a bare metadata record and returns its id.
func (f *fixture) commit(t *testing.T, name string, parents ...string) string {
	t.Helper()

	id := content.FingerprintBytes([]byte(name))
	if len(parents) == 0 {
		parents = []string{images.NoParent}
	}
	record := "parent=" + strings.Join(parents, ",") + "\n" +
		"date=Tue Mar  5 09:04:05 2024 +0200\n" +
		"message=" + name + "\n"
	require.NoError(t, os.MkdirAll(f.paths.SnapshotDir(id), 0755))
	require.NoError(t, os.WriteFile(f.paths.MetadataFile(id), []byte(record), 0644))
	return id
}

func TestAncestorTraceLinear(t *testing.T) {
	ctx := context.Background()
	f := setupWalker(t)

	h1 := f.commit(t, "h1")
	h2 := f.commit(t, "h2", h1)
	h3 := f.commit(t, "h3", h2)

	trace, err := f.walker.AncestorTrace(ctx, h3, 0, false)
	require.NoError(t, err)
	assert.Equal(t, []string{h3, h2, h1}, trace.Keys())
	assert.Equal(t, []string{h2}, trace.Parents(h3))
	assert.Empty(t, trace.Parents(h1), "root commits have no parent edges")
	assert.True(t, trace.Contains(h1))
}

func TestAncestorTraceExpandsAllParents(t *testing.T) {
	ctx := context.Background()
	f := setupWalker(t)

	root := f.commit(t, "root")
	left := f.commit(t, "left", root)
	leftOld := f.commit(t, "left-old", root)
	leftNew := f.commit(t, "left-new", leftOld)
	right := f.commit(t, "right", leftNew)
	merge := f.commit(t, "merge", left, right)

	trace, err := f.walker.AncestorTrace(ctx, merge, 0, false)
	require.NoError(t, err)
	assert.Equal(t, []string{merge, left, right, root, leftNew, leftOld}, trace.Keys())
	assert.Equal(t, []string{left, right}, trace.Parents(merge))
	assert.Equal(t, 6, trace.Len(), "shared ancestors appear once")
}

func TestAncestorTraceLabels(t *testing.T) {
	ctx := context.Background()
	f := setupWalker(t)

	h1 := f.commit(t, "h1")
	h2 := f.commit(t, "h2", h1)
	require.NoError(t, f.refs.RecordCommit(ctx, h1, true))
	require.NoError(t, f.refs.Bind(ctx, "feature", h1))
	require.NoError(t, f.refs.RecordCommit(ctx, h2, true))

	trace, err := f.walker.AncestorTrace(ctx, h2, 7, true)
	require.NoError(t, err)

	assert.Equal(t, []string{h2[:7], "HEAD", "master", h1[:7], "feature"}, trace.Keys())
	assert.Equal(t, []string{h2[:7]}, trace.Parents("HEAD"))
	assert.Equal(t, []string{h1[:7]}, trace.Parents("feature"))
	assert.Contains(t, trace.Edges(), shared.Edge{From: h2[:7], To: h1[:7]})
}

func TestFullHistory(t *testing.T) {
	ctx := context.Background()
	f := setupWalker(t)

	h1 := f.commit(t, "h1")
	a := f.commit(t, "a", h1)
	b := f.commit(t, "b", h1)
	require.NoError(t, f.refs.RecordCommit(ctx, a, true))
	require.NoError(t, f.refs.Bind(ctx, "side", b))

	trace, err := f.walker.FullHistory(ctx, 0)
	require.NoError(t, err)

	for _, id := range []string{h1, a, b} {
		assert.True(t, trace.Contains(id))
	}
	assert.Equal(t, []string{b}, trace.Parents("side"))
	assert.Equal(t, []string{a}, trace.Parents("master"))

	fromHead, err := f.walker.AncestorTrace(ctx, a, 0, false)
	require.NoError(t, err)
	assert.False(t, fromHead.Contains(b), "history from HEAD skips other branches")
}

func TestMergeBase(t *testing.T) {
	ctx := context.Background()
	f := setupWalker(t)

	h1 := f.commit(t, "h1")
	h2 := f.commit(t, "h2", h1)
	h3 := f.commit(t, "h3", h2)
	h4 := f.commit(t, "h4", h2)

	base, err := f.walker.MergeBase(ctx, h3, h4)
	require.NoError(t, err)
	assert.Equal(t, h2, base)

	base, err = f.walker.MergeBase(ctx, h3, h2)
	require.NoError(t, err)
	assert.Equal(t, h2, base, "an ancestor is its own merge base")

	lonely := f.commit(t, "lonely")
	_, err = f.walker.MergeBase(ctx, h3, lonely)
	assert.Error(t, err)
}

func TestFirstParents(t *testing.T) {
	ctx := context.Background()
	f := setupWalker(t)

	h1 := f.commit(t, "h1")
	side := f.commit(t, "side", h1)
	h2 := f.commit(t, "h2", h1)
	m := f.commit(t, "m", h2, side)

	chain, err := f.walker.FirstParents(ctx, m)
	require.NoError(t, err)

	var ids []string
	for _, c := range chain {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{m, h2, h1}, ids)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "abc", Label("abcdef", 3))
	assert.Equal(t, "abcdef", Label("abcdef", 0))
	assert.Equal(t, "abcdef", Label("abcdef", 10))
}
