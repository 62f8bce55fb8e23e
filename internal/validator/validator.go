package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/signaltree/pkg/domain"
)

// Analyze checks a description before compilation.
// It reports the first problem as a *domain.DescriptionError and never
// touches a store. resolve may be nil, in which case every Ref is an error.
func Analyze(desc domain.Sequence, resolve domain.ActionResolver) error {
	if desc == nil {
		return fail(domain.Root, "description is nil")
	}
	a := &analyzer{
		resolve: resolve,
		seen:    make(map[string]*domain.Action),
	}
	return a.sequence(desc, domain.Root)
}

type analyzer struct {
	resolve domain.ActionResolver
	seen    map[string]*domain.Action
}

func fail(path domain.Path, format string, args ...any) error {
	return &domain.DescriptionError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func (a *analyzer) sequence(seq domain.Sequence, path domain.Path) error {
	for i, item := range seq {
		p := path.Index(i)
		switch it := item.(type) {
		case nil:
			return fail(p, "missing action (nil entry)")
		case domain.Parallel:
			if err := a.group(it, p); err != nil {
				return err
			}
		case domain.Sequence:
			if err := a.sequence(it, p); err != nil {
				return err
			}
		default:
			if err := a.step(item, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *analyzer) group(group domain.Parallel, path domain.Path) error {
	if group == nil {
		return fail(path, "concurrent group is nil")
	}
	for i, item := range group {
		p := path.Index(i)
		switch it := item.(type) {
		case nil:
			return fail(p, "missing action (nil entry)")
		case domain.Parallel:
			return fail(p, "concurrent group nested directly in a concurrent group; wrap it in a Sequence")
		case domain.Sequence:
			if err := a.sequence(it, p); err != nil {
				return err
			}
		default:
			if err := a.step(item, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *analyzer) step(item domain.Item, path domain.Path) error {
	var (
		action  *domain.Action
		outputs map[string]domain.Sequence
	)

	switch it := item.(type) {
	case *domain.Step:
		if it == nil {
			return fail(path, "missing action (nil step)")
		}
		if it.Action == nil {
			return fail(path, "step has no action")
		}
		action, outputs = it.Action, it.Outputs
	case domain.Ref:
		resolved, ok := a.lookup(string(it))
		if !ok {
			return fail(path, "unknown action %q", string(it))
		}
		action = resolved
	default:
		return fail(path, "unsupported entry %T", item)
	}

	if err := a.action(action, path); err != nil {
		return err
	}

	for _, name := range domain.SortedOutputNames(outputs) {
		if name == "" {
			return fail(path, "output with empty name")
		}
		if strings.Contains(name, ".") {
			return fail(path, "output name %q must not contain '.'", name)
		}
		if err := a.sequence(outputs[name], path.Output(name)); err != nil {
			return err
		}
	}
	return nil
}

func (a *analyzer) action(action *domain.Action, path domain.Path) error {
	if action.Name == "" {
		return fail(path, "action has no name")
	}
	if action.Fn == nil {
		return fail(path, "action %q has no step function", action.Name)
	}
	if prev, ok := a.seen[action.Name]; ok && prev != action {
		return fail(path, "action name %q is bound to two different actions", action.Name)
	}
	a.seen[action.Name] = action
	return nil
}

func (a *analyzer) lookup(name string) (*domain.Action, bool) {
	if a.resolve == nil || name == "" {
		return nil, false
	}
	action, ok := a.resolve(name)
	if !ok || action == nil {
		return nil, false
	}
	return action, true
}
