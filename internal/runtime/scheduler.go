package runtime

import (
	"context"

	"github.com/aretw0/signaltree/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// sequence runs nodes strictly in order. A node's output sub-tree completes
// before the next sibling starts.
func (r *run) sequence(ctx context.Context, nodes []domain.RunNode) error {
	for i := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.node(ctx, &nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) node(ctx context.Context, n *domain.RunNode) error {
	switch n.Kind {
	case domain.NodeStep:
		return r.branch(ctx, n.Branch)
	case domain.NodeGroup:
		return r.group(ctx, n.Members)
	case domain.NodeSequence:
		return r.sequence(ctx, n.Sequence)
	}
	return nil
}

// group starts every member together and waits for all of them, including
// the sub-trees they trigger. A failing member does not cancel its siblings;
// the first error is reported once everything has settled.
func (r *run) group(ctx context.Context, members []domain.RunNode) error {
	var g errgroup.Group
	for i := range members {
		m := &members[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return r.node(ctx, m)
		})
	}
	return g.Wait()
}

// branch invokes one step and descends into the sub-tree of the output it
// selected. An output without a registered sub-tree is a silent no-op.
func (r *run) branch(ctx context.Context, b *domain.BranchRun) error {
	out, err := r.invoke(ctx, b)
	if err != nil {
		return err
	}
	if out.Path == "" {
		return nil
	}
	sub, ok := b.Outputs[out.Path]
	if !ok || len(sub) == 0 {
		return nil
	}
	return r.sequence(ctx, sub)
}
