// internal/diff/lines.go
package diff

import (
	"bytes"
	"fmt"
)

// Line represents a single line in a diff with its type and content
type Line struct {
	Type    LineType
	Content string
	OldNum  int // 1-based, 0 for additions
	NewNum  int // 1-based, 0 for deletions
}

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

// DiffResult contains the complete diff information
type DiffResult struct {
	Hunks []Hunk
	Stats struct {
		Additions int
		Deletions int
		Changes   int
	}
}

// Hunk represents a continuous section of changes
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// op is a Line plus how many old and new lines precede it.
type op struct {
	Line
	oldPos int
	newPos int
}

// LineDiffer renders line diffs for display. Merging never uses it.
type LineDiffer struct {
	contextLines int
}

// NewLineDiffer creates a differ that keeps contextLines unchanged lines
// around every change.
func NewLineDiffer(contextLines int) *LineDiffer {
	return &LineDiffer{contextLines: max(0, contextLines)}
}

// Diff generates a line-by-line diff between two contents
func (d *LineDiffer) Diff(oldContent, newContent []byte) *DiffResult {
	oldLines := SplitLines(oldContent)
	newLines := SplitLines(newContent)

	lcs := computeLCS(oldLines, newLines)
	ops := editScript(oldLines, newLines, lcs)

	result := &DiffResult{Hunks: d.group(ops)}
	for _, o := range ops {
		switch o.Type {
		case Addition:
			result.Stats.Additions++
		case Deletion:
			result.Stats.Deletions++
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions
	return result
}

// SplitLines splits content on \n. A trailing newline does not start another
// line and empty content has no lines.
func SplitLines(content []byte) [][]byte {
	if len(content) == 0 {
		return nil
	}
	return bytes.Split(bytes.TrimSuffix(content, []byte{'\n'}), []byte{'\n'})
}

// computeLCS creates a matrix for longest common subsequence
func computeLCS(oldLines, newLines [][]byte) [][]int {
	matrix := make([][]int, len(oldLines)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(newLines)+1)
	}

	for i := 1; i <= len(oldLines); i++ {
		for j := 1; j <= len(newLines); j++ {
			if bytes.Equal(oldLines[i-1], newLines[j-1]) {
				matrix[i][j] = matrix[i-1][j-1] + 1
			} else {
				matrix[i][j] = max(matrix[i-1][j], matrix[i][j-1])
			}
		}
	}

	return matrix
}

// editScript walks the LCS matrix back from the end and returns the edits in
// forward order.
func editScript(oldLines, newLines [][]byte, lcs [][]int) []op {
	var ops []op

	i, j := len(oldLines), len(newLines)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && bytes.Equal(oldLines[i-1], newLines[j-1]):
			ops = append(ops, op{
				Line:   Line{Type: Context, Content: string(oldLines[i-1]), OldNum: i, NewNum: j},
				oldPos: i - 1,
				newPos: j - 1,
			})
			i--
			j--
		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			ops = append(ops, op{
				Line:   Line{Type: Addition, Content: string(newLines[j-1]), NewNum: j},
				oldPos: i,
				newPos: j - 1,
			})
			j--
		default:
			ops = append(ops, op{
				Line:   Line{Type: Deletion, Content: string(oldLines[i-1]), OldNum: i},
				oldPos: i - 1,
				newPos: j,
			})
			i--
		}
	}

	for l, r := 0, len(ops)-1; l < r; l, r = l+1, r-1 {
		ops[l], ops[r] = ops[r], ops[l]
	}
	return ops
}

// group cuts the edit script into hunks, merging changes whose separating
// context would overlap.
func (d *LineDiffer) group(ops []op) []Hunk {
	var hunks []Hunk

	i := 0
	for i < len(ops) {
		if ops[i].Type == Context {
			i++
			continue
		}

		start := max(0, i-d.contextLines)
		end := i
		for j := i; j < len(ops); {
			if ops[j].Type != Context {
				j++
				end = j
				continue
			}
			k := j
			for k < len(ops) && ops[k].Type == Context {
				k++
			}
			if k == len(ops) || k-j > 2*d.contextLines {
				break
			}
			j = k
		}
		stop := min(len(ops), end+d.contextLines)

		hunks = append(hunks, newHunk(ops[start:stop]))
		i = stop
	}

	return hunks
}

func newHunk(ops []op) Hunk {
	h := Hunk{
		OldStart: ops[0].oldPos,
		NewStart: ops[0].newPos,
	}
	for _, o := range ops {
		switch o.Type {
		case Context:
			h.OldLines++
			h.NewLines++
		case Addition:
			h.NewLines++
		case Deletion:
			h.OldLines++
		}
		h.Lines = append(h.Lines, o.Line)
	}
	// Unified diffs number from 1 unless the side is empty.
	if h.OldLines > 0 {
		h.OldStart++
	}
	if h.NewLines > 0 {
		h.NewStart++
	}
	return h
}

// Format returns a string representation of the diff
func (r *DiffResult) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			buf.WriteString(line.Type.Prefix())
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// Prefix is the unified diff marker for t.
func (t LineType) Prefix() string {
	switch t {
	case Addition:
		return "+"
	case Deletion:
		return "-"
	default:
		return " "
	}
}
