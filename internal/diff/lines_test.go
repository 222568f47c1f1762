package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(nil))
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, SplitLines([]byte("a\nb\n")))
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, SplitLines([]byte("a\nb")))
	assert.Equal(t, [][]byte{[]byte("")}, SplitLines([]byte("\n")))
}

func TestLineDiffer(t *testing.T) {
	d := NewLineDiffer(1)

	t.Run("identical", func(t *testing.T) {
		result := d.Diff([]byte("a\nb\n"), []byte("a\nb\n"))
		assert.Empty(t, result.Hunks)
		assert.Equal(t, 0, result.Stats.Changes)
	})

	t.Run("replaced line", func(t *testing.T) {
		result := d.Diff([]byte("a\nb\nc\n"), []byte("a\nx\nc\n"))
		require.Len(t, result.Hunks, 1)

		h := result.Hunks[0]
		assert.Equal(t, 1, h.OldStart)
		assert.Equal(t, 3, h.OldLines)
		assert.Equal(t, 1, h.NewStart)
		assert.Equal(t, 3, h.NewLines)
		assert.Equal(t, 1, result.Stats.Additions)
		assert.Equal(t, 1, result.Stats.Deletions)
		assert.Equal(t, "@@ -1,3 +1,3 @@\n a\n-b\n+x\n c\n", result.Format())
	})

	t.Run("distant changes split", func(t *testing.T) {
		old := []byte("1\n2\n3\n4\n5\n6\n7\n8\n")
		changed := []byte("x\n2\n3\n4\n5\n6\n7\ny\n")

		result := d.Diff(old, changed)
		require.Len(t, result.Hunks, 2)
		assert.Equal(t, 1, result.Hunks[0].OldStart)
		assert.Equal(t, 7, result.Hunks[1].OldStart)
		assert.Equal(t, 4, result.Stats.Changes)
	})

	t.Run("close changes merge", func(t *testing.T) {
		result := d.Diff([]byte("1\n2\n3\n4\n"), []byte("x\n2\n3\ny\n"))
		require.Len(t, result.Hunks, 1)
		assert.Equal(t, 4, result.Hunks[0].OldLines)
	})

	t.Run("new file", func(t *testing.T) {
		result := d.Diff(nil, []byte("a\nb\n"))
		require.Len(t, result.Hunks, 1)
		assert.Equal(t, "@@ -0,0 +1,2 @@\n+a\n+b\n", result.Format())
	})

	t.Run("emptied file", func(t *testing.T) {
		result := d.Diff([]byte("a\n"), nil)
		require.Len(t, result.Hunks, 1)
		assert.Equal(t, "@@ -1,1 +0,0 @@\n-a\n", result.Format())
	})
}
