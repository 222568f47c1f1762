package merge

import "bytes"

// line returns lines[i] and whether that index exists.
func line(lines [][]byte, i int) ([]byte, bool) {
	if i < len(lines) {
		return lines[i], true
	}
	return nil, false
}

func differs(side []byte, sideOK bool, base []byte, baseOK bool) bool {
	if sideOK != baseOK {
		return true
	}
	return sideOK && !bytes.Equal(side, base)
}

// Conflicts reports whether some line index differs from base on both sides.
// Lines are aligned by index only; an insertion shifts every later line.
func Conflicts(base, head, other [][]byte) bool {
	for i := 0; i < max(len(head), len(other)); i++ {
		b, bok := line(base, i)
		h, hok := line(head, i)
		o, ook := line(other, i)
		if differs(h, hok, b, bok) && differs(o, ook, b, bok) {
			return true
		}
	}
	return false
}

// Reconcile builds the merged lines: other's line where other changed it
// relative to base, HEAD's line otherwise. Lines HEAD has beyond other's end
// are kept.
func Reconcile(base, head, other [][]byte) []byte {
	var out [][]byte
	for i := 0; i < max(len(head), len(other)); i++ {
		b, bok := line(base, i)
		h, hok := line(head, i)
		o, ook := line(other, i)

		switch {
		case ook && differs(o, ook, b, bok):
			out = append(out, o)
		case hok:
			out = append(out, h)
		}
	}

	if len(out) == 0 {
		return nil
	}
	merged := bytes.Join(out, []byte{'\n'})
	return append(merged, '\n')
}
