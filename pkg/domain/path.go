package domain

import (
	"cmp"
	"strconv"
	"strings"
)

// Path locates a node inside a compiled tree, e.g. ["0","outputs","success","1"].
// It is the key used to match replay records, so it must be stable across
// compilations of the same description.
type Path []string

// Root is the empty path.
var Root = Path{}

// Index returns a child path for a positional element.
func (p Path) Index(i int) Path {
	return p.with(strconv.Itoa(i))
}

// Output returns a child path for an output sub-tree.
func (p Path) Output(name string) Path {
	return p.with("outputs", name)
}

func (p Path) with(elems ...string) Path {
	next := make(Path, 0, len(p)+len(elems))
	next = append(next, p...)
	return append(next, elems...)
}

// String joins the path with dots. The root path renders as "".
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Equal reports whether two paths address the same node.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Key renders the path as an unambiguous lookup key. Unlike String, two
// different paths never share a key even when a segment contains a dot.
func (p Path) Key() string {
	var b strings.Builder
	for _, seg := range p {
		b.WriteString(strconv.Quote(seg))
	}
	return b.String()
}

// Compare orders paths segment by segment. Positional segments compare
// numerically, so "0.2" sorts before "0.10". A prefix sorts first.
func (p Path) Compare(other Path) int {
	for i := 0; i < len(p) && i < len(other); i++ {
		if c := compareSegment(p[i], other[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(p), len(other))
}

func compareSegment(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return cmp.Compare(ai, bi)
	}
	return strings.Compare(a, b)
}
