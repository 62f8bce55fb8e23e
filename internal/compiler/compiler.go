package compiler

import (
	"fmt"

	"github.com/aretw0/signaltree/pkg/domain"
)

// Compile rewrites a description into an immutable StaticTree.
//
// Steps of a Sequence are synchronous. Steps that sit directly in a Parallel
// group are asynchronous, and a Sequence inside a group flips back to
// synchronous mode. Actions are interned by name: the first occurrence gets a
// registry slot and every later occurrence reuses it.
//
// The description is expected to have passed validator.Analyze; Compile only
// fails on entries it cannot place. It never modifies the description.
func Compile(desc domain.Sequence, resolve domain.ActionResolver) (*domain.StaticTree, error) {
	c := &compiler{
		resolve: resolve,
		index:   make(map[string]int),
	}
	branches, err := c.sequence(desc, domain.Root)
	if err != nil {
		return nil, err
	}
	return &domain.StaticTree{
		Registry: c.registry,
		Branches: branches,
	}, nil
}

type compiler struct {
	resolve  domain.ActionResolver
	registry []*domain.Action
	index    map[string]int
}

func (c *compiler) sequence(seq domain.Sequence, path domain.Path) (domain.Tree, error) {
	tree := make(domain.Tree, 0, len(seq))
	for i, item := range seq {
		p := path.Index(i)
		switch it := item.(type) {
		case domain.Parallel:
			members, err := c.group(it, p)
			if err != nil {
				return nil, err
			}
			tree = append(tree, domain.Node{Kind: domain.NodeGroup, Path: p, Members: members})
		case domain.Sequence:
			// A sequence nested in a sequence is inlined: it keeps its own
			// path prefix but runs as part of the parent chain.
			sub, err := c.sequence(it, p)
			if err != nil {
				return nil, err
			}
			tree = append(tree, domain.Node{Kind: domain.NodeSequence, Path: p, Sequence: sub})
		default:
			b, err := c.branch(item, p, false)
			if err != nil {
				return nil, err
			}
			tree = append(tree, domain.Node{Kind: domain.NodeStep, Path: p, Branch: b})
		}
	}
	return tree, nil
}

func (c *compiler) group(group domain.Parallel, path domain.Path) (domain.Tree, error) {
	members := make(domain.Tree, 0, len(group))
	for i, item := range group {
		p := path.Index(i)
		switch it := item.(type) {
		case domain.Parallel:
			return nil, &domain.DescriptionError{Path: p, Reason: "concurrent group nested directly in a concurrent group"}
		case domain.Sequence:
			sub, err := c.sequence(it, p)
			if err != nil {
				return nil, err
			}
			members = append(members, domain.Node{Kind: domain.NodeSequence, Path: p, Sequence: sub})
		default:
			b, err := c.branch(item, p, true)
			if err != nil {
				return nil, err
			}
			members = append(members, domain.Node{Kind: domain.NodeStep, Path: p, Branch: b})
		}
	}
	return members, nil
}

func (c *compiler) branch(item domain.Item, path domain.Path, async bool) (*domain.Branch, error) {
	var (
		action  *domain.Action
		outputs map[string]domain.Sequence
	)
	switch it := item.(type) {
	case *domain.Step:
		if it == nil || it.Action == nil {
			return nil, &domain.DescriptionError{Path: path, Reason: "missing action"}
		}
		action, outputs = it.Action, it.Outputs
	case domain.Ref:
		if c.resolve == nil {
			return nil, &domain.DescriptionError{Path: path, Reason: fmt.Sprintf("unknown action %q", string(it))}
		}
		resolved, ok := c.resolve(string(it))
		if !ok || resolved == nil {
			return nil, &domain.DescriptionError{Path: path, Reason: fmt.Sprintf("unknown action %q", string(it))}
		}
		action = resolved
	default:
		return nil, &domain.DescriptionError{Path: path, Reason: fmt.Sprintf("unsupported entry %T", item)}
	}

	b := &domain.Branch{
		Path:        path,
		ActionIndex: c.intern(action),
		Action:      action.Name,
		Async:       async,
	}

	if len(outputs) > 0 {
		b.Outputs = make(map[string]domain.Tree, len(outputs))
		for _, name := range domain.SortedOutputNames(outputs) {
			sub := outputs[name]
			if sub == nil {
				b.Outputs[name] = nil
				continue
			}
			// Output continuations are synchronous chains.
			tree, err := c.sequence(sub, path.Output(name))
			if err != nil {
				return nil, err
			}
			b.Outputs[name] = tree
		}
	}
	return b, nil
}

func (c *compiler) intern(action *domain.Action) int {
	if i, ok := c.index[action.Name]; ok {
		return i
	}
	c.registry = append(c.registry, action)
	i := len(c.registry) - 1
	c.index[action.Name] = i
	return i
}
