package domain

import (
	"sort"
	"time"
)

// RunNode mirrors a template Node for a single run.
type RunNode struct {
	Kind     NodeKind   `json:"kind"`
	Path     Path       `json:"path"`
	Branch   *BranchRun `json:"branch,omitempty"`
	Members  []RunNode  `json:"members,omitempty"`
	Sequence []RunNode  `json:"sequence,omitempty"`
}

// BranchRun records what happened to one branch during one run.
// Each run owns its own records; the compiled template is never touched.
type BranchRun struct {
	Path   Path   `json:"path"`
	Action string `json:"action"`
	Async  bool   `json:"async"`

	IsExecuting bool `json:"is_executing"`
	HasExecuted bool `json:"has_executed"`
	Replayed    bool `json:"replayed,omitempty"`

	// Args is the argument bag snapshot handed to the step.
	Args map[string]any `json:"args,omitempty"`
	// Output is the payload the step produced.
	Output map[string]any `json:"output,omitempty"`
	// OutputPath is the output that fired, if any.
	OutputPath string `json:"output_path,omitempty"`

	StartedAt time.Time     `json:"started_at,omitzero"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`

	Outputs map[string][]RunNode `json:"outputs,omitempty"`

	Template *Branch `json:"-"`
}

// Instantiate derives a fresh run tree from a compiled template.
func Instantiate(t Tree) []RunNode {
	if t == nil {
		return nil
	}
	nodes := make([]RunNode, len(t))
	for i := range t {
		src := &t[i]
		dst := RunNode{Kind: src.Kind, Path: src.Path}
		switch src.Kind {
		case NodeStep:
			dst.Branch = instantiateBranch(src.Branch)
		case NodeGroup:
			dst.Members = Instantiate(src.Members)
		case NodeSequence:
			dst.Sequence = Instantiate(src.Sequence)
		}
		nodes[i] = dst
	}
	return nodes
}

func instantiateBranch(b *Branch) *BranchRun {
	run := &BranchRun{
		Path:     b.Path,
		Action:   b.Action,
		Async:    b.Async,
		Template: b,
	}
	if len(b.Outputs) > 0 {
		run.Outputs = make(map[string][]RunNode, len(b.Outputs))
		for name, sub := range b.Outputs {
			run.Outputs[name] = Instantiate(sub)
		}
	}
	return run
}

// WalkRuns visits every branch record, depth first, in source order.
func WalkRuns(nodes []RunNode, fn func(*BranchRun)) {
	for i := range nodes {
		n := &nodes[i]
		switch n.Kind {
		case NodeStep:
			fn(n.Branch)
			for _, name := range SortedOutputNames(n.Branch.Outputs) {
				WalkRuns(n.Branch.Outputs[name], fn)
			}
		case NodeGroup:
			WalkRuns(n.Members, fn)
		case NodeSequence:
			WalkRuns(n.Sequence, fn)
		}
	}
}

// SortedOutputNames returns output names in a deterministic order.
func SortedOutputNames[V any](outputs map[string]V) []string {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReplayRecord captures the resolved output of an async branch so a later
// run can skip invoking it.
type ReplayRecord struct {
	OutputPath string         `json:"outputPath"`
	Path       Path           `json:"path"`
	Args       map[string]any `json:"args,omitempty"`
}

// SignalResult is the outcome of one run.
type SignalResult struct {
	Name  string `json:"name"`
	RunID string `json:"run_id"`

	Args               map[string]any `json:"args"`
	AsyncActionResults []ReplayRecord `json:"asyncActionResults"`
	Branches           []RunNode      `json:"branches"`

	IsExecuting bool          `json:"isExecuting"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Find returns the record for a path, if it exists.
func (r *SignalResult) Find(p Path) *BranchRun {
	var found *BranchRun
	WalkRuns(r.Branches, func(b *BranchRun) {
		if found == nil && b.Path.Equal(p) {
			found = b
		}
	})
	return found
}

// Executed lists the names of executed actions in tree order.
func (r *SignalResult) Executed() []string {
	var names []string
	WalkRuns(r.Branches, func(b *BranchRun) {
		if b.HasExecuted {
			names = append(names, b.Action)
		}
	})
	return names
}
