package dsl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *registry.Registry {
	r := registry.NewRegistry()
	for _, name := range []string{"validate", "charge", "audit", "notify", "log"} {
		r.RegisterFunc(name, func(context.Context, *domain.StepContext) (domain.Output, error) {
			return domain.NoOutput(), nil
		})
	}
	return r
}

const checkout = `
name: checkout
description: charge and notify
steps:
  - action: validate
    outputs:
      valid:
        - parallel:
            - charge
            - sequence: [audit, log]
      invalid: ~
  - [notify, [log, audit]]
  - notify
`

func TestParse(t *testing.T) {
	reg := testRegistry()

	def, err := Parse([]byte(checkout), reg.Resolver())
	require.NoError(t, err)

	assert.Equal(t, "checkout", def.Name)
	assert.Equal(t, "charge and notify", def.Summary)
	require.Len(t, def.Description, 3)

	step, ok := def.Description[0].(*domain.Step)
	require.True(t, ok)
	assert.Same(t, reg.MustGet("validate"), step.Action)
	assert.Contains(t, step.Outputs, "invalid")
	assert.Nil(t, step.Outputs["invalid"])

	valid := step.Outputs["valid"]
	require.Len(t, valid, 1)
	group, ok := valid[0].(domain.Parallel)
	require.True(t, ok)
	assert.Equal(t, domain.Parallel{domain.Ref("charge"), domain.Sequence{domain.Ref("audit"), domain.Ref("log")}}, group)

	assert.Equal(t, domain.Parallel{domain.Ref("notify"), domain.Sequence{domain.Ref("log"), domain.Ref("audit")}}, def.Description[1])
	assert.Equal(t, domain.Ref("notify"), def.Description[2])
}

func TestParse_Errors(t *testing.T) {
	reg := testRegistry()

	tests := []struct {
		name string
		yaml string
		path string
	}{
		{"empty entry", "steps:\n  - validate\n  - ~\n", "1"},
		{"unknown key", "steps:\n  - action: validate\n    retries: 3\n", "0"},
		{"unknown action with outputs", "steps:\n  - action: nope\n    outputs:\n      ok: [notify]\n", "0"},
		{"mixed entry", "steps:\n  - action: validate\n    parallel: [charge]\n", "0"},
		{"dotted output name", "steps:\n  - action: validate\n    outputs:\n      a.0: [notify]\n", "0"},
		{"nested error", "steps:\n  - action: validate\n    outputs:\n      ok:\n        - 42\n", "0.outputs.ok.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), reg.Resolver())
			var derr *domain.DescriptionError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.path, derr.Path.String())
		})
	}

	_, err := Parse([]byte("steps: [unclosed"), reg.Resolver())
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(checkout), 0o644))

	def, err := LoadFile(path, testRegistry().Resolver())
	require.NoError(t, err)
	assert.Equal(t, "checkout", def.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestBuilder(t *testing.T) {
	validate := Action("validate", func(context.Context, *domain.StepContext) (domain.Output, error) {
		return domain.To("valid", nil), nil
	})
	charge := Action("charge", func(context.Context, *domain.StepContext) (domain.Output, error) {
		return domain.NoOutput(), nil
	})

	desc := Seq(
		Do(validate).
			On("valid", Parallel(Do(charge), Ref("audit"))).
			On("invalid"),
		Do(charge),
	)

	require.Len(t, desc, 2)
	step := desc[0].(*domain.Step)
	assert.Equal(t, domain.Sequence{domain.Parallel{Do(charge), domain.Ref("audit")}}, step.Outputs["valid"])
	assert.Contains(t, step.Outputs, "invalid")
	assert.Nil(t, step.Outputs["invalid"])
}

func TestSeq_EmptyIsValid(t *testing.T) {
	desc := Seq()
	assert.NotNil(t, desc)
	assert.Empty(t, desc)
}
