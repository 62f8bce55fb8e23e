package domain

// Item is one entry of a description. It is one of *Step, Parallel, Sequence or Ref.
type Item interface {
	isItem()
}

// Sequence is an ordered list of items executed one after the other.
// It is also the type of a whole description and of every output sub-tree.
type Sequence []Item

// Parallel is a concurrent group. Its members are *Step or Ref (run as async steps)
// or Sequence (a synchronous chain run as one concurrent member).
type Parallel []Item

// Step runs an action and optionally routes to a named output sub-tree.
// A nil Sequence under an output name declares the output without a continuation.
type Step struct {
	Action  *Action
	Outputs map[string]Sequence
}

// Ref points at an action by name. It is resolved against a registry at compile time.
type Ref string

func (*Step) isItem()    {}
func (Parallel) isItem() {}
func (Sequence) isItem() {}
func (Ref) isItem()      {}

// Do is shorthand for a step without outputs.
func Do(a *Action) *Step {
	return &Step{Action: a}
}

// On registers the continuation for a named output and returns the step.
// Calling it without items declares the output with no continuation.
func (s *Step) On(output string, items ...Item) *Step {
	if s.Outputs == nil {
		s.Outputs = make(map[string]Sequence)
	}
	if len(items) == 0 {
		s.Outputs[output] = nil
		return s
	}
	s.Outputs[output] = append(s.Outputs[output], items...)
	return s
}
