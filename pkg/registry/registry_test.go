package registry

import (
	"context"
	"testing"

	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	greet := r.RegisterFunc("greet", func(context.Context, *domain.StepContext) (domain.Output, error) {
		return domain.NoOutput(), nil
	}, domain.WithDefaultOutput("done"))
	r.Register(domain.Sync("audit", func(context.Context, *domain.StepContext) error { return nil }), nil)

	got, ok := r.Get("greet")
	require.True(t, ok)
	assert.Same(t, greet, got)
	assert.Equal(t, "done", got.DefaultOutput)

	_, ok = r.Resolver()("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"audit", "greet"}, r.Names())
	assert.Panics(t, func() { r.MustGet("missing") })
}
