package domain

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutput_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		out      Output
		def      string
		wantPath string
		wantFire bool
	}{
		{"no output", NoOutput(), "success", "", false},
		{"default without payload", Default(nil), "success", "success", true},
		{"default without declared default", Default(map[string]any{"a": 1}), "", "", true},
		{"named", To("error", nil), "success", "error", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.out.Resolve(tt.def)
			assert.Equal(t, tt.wantPath, got.Path)
			assert.Equal(t, tt.wantFire, got.Fired)
		})
	}
}

func TestPath(t *testing.T) {
	p := Root.Index(0).Output("success").Index(2)
	assert.Equal(t, "0.outputs.success.2", p.String())
	assert.True(t, p.Equal(Path{"0", "outputs", "success", "2"}))
	assert.False(t, p.Equal(Path{"0"}))

	// Children never alias the parent's backing array.
	parent := Root.Index(1)
	a := parent.Index(0)
	b := parent.Index(1)
	assert.Equal(t, "1.0", a.String())
	assert.Equal(t, "1.1", b.String())
}

func TestPath_Key(t *testing.T) {
	nested := Path{"0", "outputs", "a", "0", "outputs", "x"}
	dotted := Path{"0", "outputs", "a.0.outputs.x"}
	assert.Equal(t, nested.String(), dotted.String())
	assert.NotEqual(t, nested.Key(), dotted.Key())
	assert.Equal(t, nested.Key(), Root.Index(0).Output("a").Index(0).Output("x").Key())
}

func TestPath_Compare(t *testing.T) {
	paths := []Path{
		{"0", "10"},
		{"0", "outputs", "ok", "0"},
		{"1"},
		{"0", "2"},
		{"0"},
		{"0", "outputs", "err", "0"},
	}
	slices.SortFunc(paths, Path.Compare)

	var got []string
	for _, p := range paths {
		got = append(got, p.String())
	}
	assert.Equal(t, []string{"0", "0.2", "0.10", "0.outputs.err.0", "0.outputs.ok.0", "1"}, got)
	assert.Zero(t, Path{"3"}.Compare(Path{"3"}))
}

func TestStepContext_Mutate(t *testing.T) {
	async := NewStepContext(StepContext{Async: true}, nil)
	_, err := async.Mutate()
	assert.ErrorIs(t, err, ErrMutationForbidden)

	sc := NewStepContext(StepContext{Outputs: []string{"success"}}, nopMutator{})
	m, err := sc.Mutate()
	assert.NoError(t, err)
	assert.NotNil(t, m)
	assert.True(t, sc.HasOutput("success"))
	assert.False(t, sc.HasOutput("error"))
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&StepExecutionError{Path: Path{"0"}, Action: "a", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `step "a" at 0 failed: boom`, err.Error())

	var serr *SerializationError
	assert.ErrorAs(t, error(&SerializationError{Err: cause}), &serr)
	assert.Equal(t, "invalid description: empty", (&DescriptionError{Reason: "empty"}).Error())
}

type nopMutator struct{}

func (nopMutator) Set(context.Context, string, any) error { return nil }
func (nopMutator) Unset(context.Context, string) error    { return nil }
