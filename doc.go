/*
Package signaltree compiles declarative control-flow trees into runnable
signals.

A description mixes synchronous steps, concurrent groups and named output
branches. Create validates it and compiles it once into an immutable
template; every Run derives its own record tree from that template, threads
an argument bag through the steps, and returns the fully annotated result.

# Concepts

  - Sequence: steps run one after another. A step's output sub-tree runs to
    completion before the next sibling starts.
  - Parallel: members start together; the group completes when every member
    (and whatever sub-tree it triggered) has settled.
  - Step: an action plus optional named outputs. The action returns a single
    Output that selects which sub-tree, if any, runs next.
  - Replay: a run's AsyncActionResults can be fed back with WithReplay so a
    retry skips async work that already completed.

Only synchronous steps may mutate the host store. Asynchronous steps read it.

# Usage

	fetch := domain.NewAction("fetch", func(ctx context.Context, sc *domain.StepContext) (domain.Output, error) {
		return sc.To("found", map[string]any{"user": "ada"}), nil
	})
	save := domain.Sync("save", func(ctx context.Context, sc *domain.StepContext) error {
		m, err := sc.Mutate()
		if err != nil {
			return err
		}
		return m.Set(ctx, "user", sc.Args["user"])
	})

	sig, err := signaltree.Create(domain.Sequence{
		domain.Parallel{
			&domain.Step{Action: fetch, Outputs: map[string]domain.Sequence{"found": nil}},
		},
		domain.Do(save),
	})
	if err != nil {
		log.Fatal(err)
	}

	res, err := sig.Run(ctx, memory.NewStore(nil), map[string]any{"id": 1})
*/
package signaltree
