package domain

// NodeKind tells the scheduler how to run a node.
type NodeKind string

const (
	// NodeStep wraps a single branch.
	NodeStep NodeKind = "step"
	// NodeGroup is a concurrent group; members start together.
	NodeGroup NodeKind = "group"
	// NodeSequence is a synchronous chain nested inside a group.
	NodeSequence NodeKind = "sequence"
)

// Tree is an ordered list of compiled nodes.
type Tree []Node

// Node is one position of a compiled tree.
type Node struct {
	Kind NodeKind `json:"kind"`
	Path Path     `json:"path"`

	// Branch is set for NodeStep.
	Branch *Branch `json:"branch,omitempty"`

	// Members is set for NodeGroup.
	Members Tree `json:"members,omitempty"`

	// Sequence is set for NodeSequence.
	Sequence Tree `json:"sequence,omitempty"`
}

// Branch is the compiled form of a step. It is part of the immutable template
// and is never written to during a run.
type Branch struct {
	Path        Path   `json:"path"`
	ActionIndex int    `json:"action_index"`
	Action      string `json:"action"`
	Async       bool   `json:"async"`

	// Outputs maps an output name to its continuation. A nil Tree declares the
	// output without a continuation.
	Outputs map[string]Tree `json:"outputs,omitempty"`
}

// StaticTree is the result of compiling a description.
type StaticTree struct {
	Registry []*Action `json:"-"`
	Branches Tree      `json:"branches"`
}

// Action returns the registered action for a branch.
func (t *StaticTree) Action(b *Branch) *Action {
	return t.Registry[b.ActionIndex]
}

// Walk visits every branch in the tree, depth first, in source order.
func (t Tree) Walk(fn func(*Branch)) {
	for i := range t {
		n := &t[i]
		switch n.Kind {
		case NodeStep:
			fn(n.Branch)
			for _, name := range SortedOutputNames(n.Branch.Outputs) {
				n.Branch.Outputs[name].Walk(fn)
			}
		case NodeGroup:
			n.Members.Walk(fn)
		case NodeSequence:
			n.Sequence.Walk(fn)
		}
	}
}
