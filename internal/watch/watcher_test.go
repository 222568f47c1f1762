package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wit/internal/paths"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, paths.MetaDirName), 0755))

	rules, err := paths.NewIgnoreRules([]string{"*.tmp"})
	require.NoError(t, err)

	w, err := New(root, rules, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) error {
			batches <- changed
			return nil
		})
	}()

	require.NoError(t, os.WriteFile(filepath.Join(root, paths.MetaDirName, "references.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "scratch.tmp"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("hello"), 0644))

	select {
	case changed := <-batches:
		assert.Equal(t, []string{"f.txt"}, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
