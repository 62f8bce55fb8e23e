package dsl

import "github.com/aretw0/signaltree/pkg/domain"

// Seq builds a synchronous sequence.
func Seq(items ...domain.Item) domain.Sequence {
	return append(domain.Sequence{}, items...)
}

// Parallel builds a concurrent group.
func Parallel(items ...domain.Item) domain.Parallel {
	return domain.Parallel(items)
}

// Ref points at a registered action by name.
func Ref(name string) domain.Ref {
	return domain.Ref(name)
}

// Do starts a step for an action. Chain On to add outputs:
//
//	dsl.Do(check).
//		On("valid", dsl.Do(save)).
//		On("invalid")
func Do(action *domain.Action) *domain.Step {
	return domain.Do(action)
}

// Action is a shorthand for domain.NewAction.
func Action(name string, fn domain.StepFunc, opts ...domain.ActionOption) *domain.Action {
	return domain.NewAction(name, fn, opts...)
}
