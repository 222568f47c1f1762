package merge

import (
	"strings"
	"testing"

	"wit/internal/diff"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func lines(s ...string) [][]byte {
	out := make([][]byte, 0, len(s))
	for _, l := range s {
		out = append(out, []byte(l))
	}
	return out
}

func TestConflicts(t *testing.T) {
	tests := []struct {
		name  string
		base  [][]byte
		head  [][]byte
		other [][]byte
		want  bool
	}{
		{"same line changed both sides", lines("a", "b"), lines("a", "x"), lines("a", "y"), true},
		{"same edit on both sides", lines("a", "b"), lines("a", "x"), lines("a", "x"), true},
		{"different lines", lines("a", "b"), lines("x", "b"), lines("a", "y"), false},
		{"only other changed", lines("a", "b"), lines("a", "b"), lines("a", "z"), false},
		{"both appended", lines("a"), lines("a", "x"), lines("a", "y"), true},
		{"head appended, other edited", lines("a"), lines("a", "x"), lines("z"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Conflicts(tt.base, tt.head, tt.other))
		})
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name  string
		base  [][]byte
		head  [][]byte
		other [][]byte
		want  string
	}{
		{"other wins its change", lines("a", "b"), lines("a", "b"), lines("a", "z"), "a\nz\n"},
		{"both sides kept", lines("a", "b"), lines("x", "b"), lines("a", "y"), "x\ny\n"},
		{"trailing head lines kept", lines("a"), lines("a", "h1", "h2"), lines("z"), "z\nh1\nh2\n"},
		{"other appended", lines("a"), lines("a"), lines("a", "o"), "a\no\n"},
		{"empty", nil, nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Reconcile(tt.base, tt.head, tt.other)))
		})
	}
}

func toStrings(in [][]byte) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		out = append(out, string(l))
	}
	return out
}

var linesGen = rapid.Custom(func(t *rapid.T) [][]byte {
	return lines(rapid.SliceOfN(rapid.StringMatching(`[abc]{0,2}`), 0, 8).Draw(t, "lines")...)
})

func TestReconcileProperties(t *testing.T) {
	t.Run("unchanged head takes other", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			base := linesGen.Draw(rt, "base")
			other := linesGen.Draw(rt, "other")
			if len(other) < len(base) {
				rt.Skip("other deleted trailing lines, which HEAD keeps")
			}

			if Conflicts(base, base, other) {
				rt.Fatalf("unchanged HEAD cannot conflict")
			}
			got := toStrings(diff.SplitLines(Reconcile(base, base, other)))
			if strings.Join(got, "\n") != strings.Join(toStrings(other), "\n") || len(got) != len(other) {
				rt.Fatalf("got %q, want %q", got, toStrings(other))
			}
		})
	})

	t.Run("unchanged other keeps head", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			base := linesGen.Draw(rt, "base")
			head := linesGen.Draw(rt, "head")
			if len(head) < len(base) {
				rt.Skip("head deleted trailing lines that other still has")
			}

			got := toStrings(diff.SplitLines(Reconcile(base, head, base)))
			if strings.Join(got, "\n") != strings.Join(toStrings(head), "\n") || len(got) != len(head) {
				rt.Fatalf("got %q, want %q", got, toStrings(head))
			}
		})
	})
}
