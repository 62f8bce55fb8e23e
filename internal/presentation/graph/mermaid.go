package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/signaltree/pkg/domain"
)

// Overlay carries run data to visualize on the graph, keyed by branch path.
type Overlay struct {
	Executed []domain.Path
	Replayed []domain.Path
	Failed   []domain.Path
}

// OverlayFromResult builds an overlay from a (possibly partial) run result.
func OverlayFromResult(res *domain.SignalResult) *Overlay {
	if res == nil {
		return nil
	}
	o := &Overlay{}
	domain.WalkRuns(res.Branches, func(b *domain.BranchRun) {
		switch {
		case b.Error != "":
			o.Failed = append(o.Failed, b.Path)
		case b.Replayed:
			o.Replayed = append(o.Replayed, b.Path)
		case b.HasExecuted:
			o.Executed = append(o.Executed, b.Path)
		}
	})
	return o
}

// edge is a pending arrow into the next node.
type edge struct {
	from  string
	label string
}

type writer struct {
	sb strings.Builder
}

// GenerateMermaid produces a Mermaid flowchart of a compiled tree.
// It applies semantic styling:
// - Entry: ((Circle))
// - Synchronous step: [Rectangle]
// - Asynchronous step: ([Stadium])
// - Concurrent group: subgraph
// Output routes are labelled edges. Overlay styles are applied if provided.
func GenerateMermaid(tree *domain.StaticTree, overlay *Overlay) string {
	w := &writer{}
	w.sb.WriteString("graph TD\n")
	w.sb.WriteString("    start((\"start\"))\n")

	if tree != nil {
		w.sequence(tree.Branches, []edge{{from: "start"}}, "    ")
	}

	if overlay != nil {
		w.sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme.
		w.sb.WriteString("    classDef executed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		w.sb.WriteString("    classDef replayed fill:#f3e5f5,stroke:#6a1b9a,stroke-width:2px,stroke-dasharray:4,color:#000;\n")
		w.sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")
		w.classes("executed", overlay.Executed)
		w.classes("replayed", overlay.Replayed)
		w.classes("failed", overlay.Failed)
	}

	return w.sb.String()
}

// sequence draws nodes in order and returns the edges leaving the chain.
func (w *writer) sequence(tree domain.Tree, in []edge, indent string) []edge {
	for i := range tree {
		in = w.node(&tree[i], in, indent)
	}
	return in
}

func (w *writer) node(n *domain.Node, in []edge, indent string) []edge {
	switch n.Kind {
	case domain.NodeStep:
		return w.branch(n.Branch, in, indent)
	case domain.NodeSequence:
		return w.sequence(n.Sequence, in, indent)
	case domain.NodeGroup:
		id := "g_" + nodeID(n.Path)
		fmt.Fprintf(&w.sb, "%ssubgraph %s [\"parallel %s\"]\n", indent, id, n.Path)
		var out []edge
		for i := range n.Members {
			out = append(out, w.node(&n.Members[i], in, indent+"    ")...)
		}
		fmt.Fprintf(&w.sb, "%send\n", indent)
		if len(n.Members) == 0 {
			return in
		}
		return out
	}
	return in
}

func (w *writer) branch(b *domain.Branch, in []edge, indent string) []edge {
	id := nodeID(b.Path)
	opener, closer := "[", "]"
	if b.Async {
		opener, closer = "([", "])"
	}
	fmt.Fprintf(&w.sb, "%s%s%s\"%s\"%s\n", indent, id, opener, escape(b.Action), closer)

	for _, e := range in {
		w.arrow(e, id, indent)
	}

	for _, name := range domain.SortedOutputNames(b.Outputs) {
		sub := b.Outputs[name]
		if len(sub) == 0 {
			continue
		}
		w.sequence(sub, []edge{{from: id, label: name}}, indent)
	}
	return []edge{{from: id}}
}

func (w *writer) arrow(e edge, to, indent string) {
	if e.label == "" {
		fmt.Fprintf(&w.sb, "%s%s --> %s\n", indent, e.from, to)
		return
	}
	fmt.Fprintf(&w.sb, "%s%s -- \"%s\" --> %s\n", indent, e.from, escape(e.label), to)
}

func (w *writer) classes(class string, paths []domain.Path) {
	seen := make(map[string]bool)
	for _, p := range paths {
		id := nodeID(p)
		if seen[id] {
			continue
		}
		seen[id] = true
		fmt.Fprintf(&w.sb, "    class %s %s;\n", id, class)
	}
}

func nodeID(p domain.Path) string {
	return "n_" + sanitizeMermaidID(p.String())
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
