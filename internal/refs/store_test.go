package refs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	witerrors "wit/internal/errors"
	"wit/internal/paths"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fp1 = "1111111111111111111111111111111111111111"
	fp2 = "2222222222222222222222222222222222222222"
	fp3 = "3333333333333333333333333333333333333333"
)

func setupStore(t *testing.T) (*Store, *paths.Paths) {
	t.Helper()

	p, err := paths.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(p.MetaDir, 0755))
	return NewStore(p), p
}

func readRefs(t *testing.T, p *paths.Paths) string {
	t.Helper()
	data, err := os.ReadFile(p.References)
	require.NoError(t, err)
	return string(data)
}

func TestEmptyStore(t *testing.T) {
	s, _ := setupStore(t)

	names, err := s.Names()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, ok, err := s.Resolve(Head)
	require.NoError(t, err)
	assert.False(t, ok)

	active, err := s.Active()
	require.NoError(t, err)
	assert.Equal(t, DefaultBranch, active)
}

func TestRecordCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("first commit", func(t *testing.T) {
		s, p := setupStore(t)
		require.NoError(t, s.RecordCommit(ctx, fp1, true))
		assert.Equal(t, "HEAD="+fp1+"\nmaster="+fp1+"\n", readRefs(t, p))
	})

	t.Run("advances activated branch", func(t *testing.T) {
		s, p := setupStore(t)
		require.NoError(t, s.RecordCommit(ctx, fp1, true))
		require.NoError(t, s.Bind(ctx, "feature", fp1))
		require.NoError(t, s.RecordCommit(ctx, fp2, true))

		assert.Equal(t, "HEAD="+fp2+"\nmaster="+fp2+"\nfeature="+fp1+"\n", readRefs(t, p))
	})

	t.Run("branch not at head stays", func(t *testing.T) {
		s, _ := setupStore(t)
		require.NoError(t, s.RecordCommit(ctx, fp1, true))
		require.NoError(t, s.Bind(ctx, "feature", fp1))
		require.NoError(t, s.Activate(ctx, "feature"))

		// Detached: HEAD moved without the branch.
		require.NoError(t, s.RecordCommit(ctx, fp2, false))
		require.NoError(t, s.RecordCommit(ctx, fp3, true))

		fp, ok, err := s.Resolve("feature")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, fp1, fp)

		head, _, err := s.Head()
		require.NoError(t, err)
		assert.Equal(t, fp3, head)
	})

	t.Run("moveBranch false", func(t *testing.T) {
		s, _ := setupStore(t)
		require.NoError(t, s.RecordCommit(ctx, fp1, true))
		require.NoError(t, s.RecordCommit(ctx, fp2, false))

		master, _, err := s.Resolve(DefaultBranch)
		require.NoError(t, err)
		assert.Equal(t, fp1, master)
	})
}

func TestBind(t *testing.T) {
	ctx := context.Background()
	s, p := setupStore(t)
	require.NoError(t, s.RecordCommit(ctx, fp1, true))

	require.NoError(t, s.Bind(ctx, "feature", fp1))
	require.NoError(t, s.Bind(ctx, "feature", fp2))

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{Head, DefaultBranch, "feature"}, names)

	fp, ok, err := s.Resolve("feature")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fp2, fp)
	assert.Equal(t, "HEAD="+fp1+"\nmaster="+fp1+"\nfeature="+fp2+"\n", readRefs(t, p))
}

func TestResolveLastBinding(t *testing.T) {
	s, p := setupStore(t)
	require.NoError(t, os.WriteFile(p.References, []byte("HEAD="+fp1+"\nmaster="+fp1+"\nmaster="+fp2+"\n"), 0644))

	fp, ok, err := s.Resolve(DefaultBranch)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fp2, fp)

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{Head, DefaultBranch}, names)
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t)
	require.NoError(t, s.RecordCommit(ctx, fp1, true))
	known := func(fp string) bool { return fp == fp1 || fp == fp2 }

	fp, isBranch, err := s.Lookup(DefaultBranch, known)
	require.NoError(t, err)
	assert.True(t, isBranch)
	assert.Equal(t, fp1, fp)

	fp, isBranch, err = s.Lookup(fp2, known)
	require.NoError(t, err)
	assert.False(t, isBranch)
	assert.Equal(t, fp2, fp)

	_, _, err = s.Lookup("nope", known)
	assert.ErrorIs(t, err, witerrors.ErrReferenceNotFound)
}

func TestActivate(t *testing.T) {
	ctx := context.Background()
	s, p := setupStore(t)

	require.NoError(t, s.Activate(ctx, "feature"))
	active, err := s.Active()
	require.NoError(t, err)
	assert.Equal(t, "feature", active)

	entries, err := os.ReadDir(filepath.Dir(p.Activated))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "feature", false},
		{"slashes", "feature/x", false},
		{"empty", "", true},
		{"head", "HEAD", true},
		{"equals", "a=b", true},
		{"space", "a b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, witerrors.ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
