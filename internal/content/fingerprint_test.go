package content

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func writeTree(t require.TestingT, root string, files map[string]string) {
	for rel, data := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	}
}

func TestFingerprintBytes(t *testing.T) {
	fp := FingerprintBytes([]byte("hello"))
	assert.Len(t, fp, FingerprintLength)
	assert.True(t, IsFingerprint(fp))
	assert.Equal(t, fp, FingerprintBytes([]byte("hello")))
	assert.NotEqual(t, fp, FingerprintBytes([]byte("hello!")))
}

func TestIsFingerprint(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid", FingerprintBytes(nil), true},
		{"short", "abc123", false},
		{"not hex", "zz" + FingerprintBytes(nil)[2:], false},
		{"branch name", "master", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFingerprint(tt.input))
		})
	}
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b.txt":     "b",
		"a/z.txt":   "z",
		"a/b/c.txt": "c",
	})

	files, err := ListFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/c.txt", "a/z.txt", "b.txt"}, files)
}

func TestEnumerate(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"f.txt":        "1",
		"a/g.txt":      "2",
		"skip/h.txt":   "3",
		"a/skip/i.txt": "4",
	})

	files, err := Enumerate(root, root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/g.txt", "a/skip/i.txt", "f.txt", "skip/h.txt"}, files)

	files, err = Enumerate(root, root, func(rel string) bool { return filepath.Base(rel) == "skip" })
	require.NoError(t, err)
	assert.Equal(t, []string{"a/g.txt", "f.txt"}, files)

	files, err = Enumerate(filepath.Join(root, "a"), root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/g.txt", "a/skip/i.txt"}, files)
}

func TestFingerprintTree(t *testing.T) {
	files := map[string]string{
		"f.txt":       "hello",
		"dir/g.txt":   "world",
		"dir/x/h.bin": "\x00\x01\x02",
	}

	t.Run("deterministic", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, files)

		first, err := FingerprintTree(root)
		require.NoError(t, err)
		second, err := FingerprintTree(root)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.True(t, IsFingerprint(first))
	})

	t.Run("location independent", func(t *testing.T) {
		a, b := t.TempDir(), t.TempDir()
		writeTree(t, a, files)
		writeTree(t, b, files)

		fa, err := FingerprintTree(a)
		require.NoError(t, err)
		fb, err := FingerprintTree(b)
		require.NoError(t, err)
		assert.Equal(t, fa, fb)
	})

	t.Run("byte change", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, files)
		before, err := FingerprintTree(root)
		require.NoError(t, err)

		writeTree(t, root, map[string]string{"dir/g.txt": "worle"})
		after, err := FingerprintTree(root)
		require.NoError(t, err)
		assert.NotEqual(t, before, after)
	})

	t.Run("rename", func(t *testing.T) {
		a, b := t.TempDir(), t.TempDir()
		writeTree(t, a, map[string]string{"one.txt": "same"})
		writeTree(t, b, map[string]string{"two.txt": "same"})

		fa, err := FingerprintTree(a)
		require.NoError(t, err)
		fb, err := FingerprintTree(b)
		require.NoError(t, err)
		assert.NotEqual(t, fa, fb)
	})

	t.Run("empty", func(t *testing.T) {
		fp, err := FingerprintTree(t.TempDir())
		require.NoError(t, err)
		assert.True(t, IsFingerprint(fp))
	})
}

func TestReadComparable(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unix", "a\nb\n", "a\nb\n"},
		{"windows", "a\r\nb\r\n", "a\nb\n"},
		{"old mac", "a\rb\r", "a\nb\n"},
		{"binary untouched", "\xff\r\n\xfe", "\xff\r\n\xfe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(root, tt.name)
			require.NoError(t, os.WriteFile(path, []byte(tt.input), 0644))

			got, err := ReadComparable(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err := ReadComparable(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

var pathGen = rapid.StringMatching(`[a-z]{1,6}(/[a-z]{1,6}){0,2}\.txt`)

// treeGen draws file sets with no path that is also a directory of another.
func treeGen() *rapid.Generator[map[string]string] {
	return rapid.Custom(func(t *rapid.T) map[string]string {
		raw := rapid.MapOfN(pathGen, rapid.String(), 1, 8).Draw(t, "files")
		files := make(map[string]string, len(raw))
		for rel, data := range raw {
			files["f-"+rel] = data
		}
		return files
	})
}

func TestFingerprintTreeProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		files := treeGen().Draw(rt, "tree")

		a, err := os.MkdirTemp("", "wit-fp-a")
		require.NoError(rt, err)
		defer os.RemoveAll(a)
		b, err := os.MkdirTemp("", "wit-fp-b")
		require.NoError(rt, err)
		defer os.RemoveAll(b)

		writeTree(rt, a, files)
		writeTree(rt, b, files)

		fa, err := FingerprintTree(a)
		require.NoError(rt, err)
		fb, err := FingerprintTree(b)
		require.NoError(rt, err)
		if fa != fb {
			rt.Fatalf("identical trees fingerprinted differently: %s != %s", fa, fb)
		}

		keys := make([]string, 0, len(files))
		for k := range files {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		victim := rapid.SampledFrom(keys).Draw(rt, "victim")
		writeTree(rt, b, map[string]string{victim: files[victim] + "x"})

		fb, err = FingerprintTree(b)
		require.NoError(rt, err)
		if fa == fb {
			rt.Fatalf("changing %s did not change the fingerprint", victim)
		}
	})
}
