package history

import shared "wit/shared/types"

// Trace maps node labels to parent labels, keeping the order in which nodes
// were first seen.
type Trace struct {
	keys    []string
	parents map[string][]string
}

func newTrace() *Trace {
	return &Trace{parents: make(map[string][]string)}
}

func (t *Trace) add(label string, parents ...string) {
	existing, ok := t.parents[label]
	if !ok {
		t.keys = append(t.keys, label)
		existing = []string{}
	}
	for _, p := range parents {
		if !contains(existing, p) {
			existing = append(existing, p)
		}
	}
	t.parents[label] = existing
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Keys returns the node labels in traversal order.
func (t *Trace) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Parents returns the parent labels of label.
func (t *Trace) Parents(label string) []string {
	return t.parents[label]
}

func (t *Trace) Contains(label string) bool {
	_, ok := t.parents[label]
	return ok
}

func (t *Trace) Len() int {
	return len(t.keys)
}

// Edges flattens the trace into from/to pairs in traversal order.
func (t *Trace) Edges() []shared.Edge {
	var edges []shared.Edge
	for _, k := range t.keys {
		for _, p := range t.parents[k] {
			edges = append(edges, shared.Edge{From: k, To: p})
		}
	}
	return edges
}
