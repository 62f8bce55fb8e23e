package dsl

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk shape of a YAML description.
type Document struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []any  `yaml:"steps"`
}

// Definition is a decoded description ready for signaltree.Create.
type Definition struct {
	Name        string
	Summary     string
	Description domain.Sequence
}

// entrySpec is a mapping entry. Exactly one of Action, Parallel or Sequence
// must be set.
type entrySpec struct {
	Action   string           `mapstructure:"action"`
	Outputs  map[string][]any `mapstructure:"outputs"`
	Parallel []any            `mapstructure:"parallel"`
	Sequence []any            `mapstructure:"sequence"`
}

// LoadFile reads and decodes a YAML description.
func LoadFile(path string, resolve domain.ActionResolver) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read description %s: %w", path, err)
	}
	return Parse(data, resolve)
}

// Parse decodes a YAML description.
//
// A plain string becomes a domain.Ref. Mappings with outputs need the action
// itself, so they are resolved immediately and unknown names fail with a
// *domain.DescriptionError. A YAML list nested in a sequence is a concurrent
// group; a list nested in a group is a sequence.
func Parse(data []byte, resolve domain.ActionResolver) (*Definition, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse description: %w", err)
	}

	d := &decoder{resolve: resolve}
	seq, err := d.sequence(doc.Steps, domain.Root)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Name:        doc.Name,
		Summary:     doc.Description,
		Description: seq,
	}, nil
}

type decoder struct {
	resolve domain.ActionResolver
}

func invalid(path domain.Path, format string, args ...any) error {
	return &domain.DescriptionError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func (d *decoder) sequence(raw []any, path domain.Path) (domain.Sequence, error) {
	seq := make(domain.Sequence, 0, len(raw))
	for i, v := range raw {
		p := path.Index(i)
		if list, ok := v.([]any); ok {
			group, err := d.group(list, p)
			if err != nil {
				return nil, err
			}
			seq = append(seq, group)
			continue
		}
		item, err := d.entry(v, p)
		if err != nil {
			return nil, err
		}
		seq = append(seq, item)
	}
	return seq, nil
}

func (d *decoder) group(raw []any, path domain.Path) (domain.Parallel, error) {
	group := make(domain.Parallel, 0, len(raw))
	for i, v := range raw {
		p := path.Index(i)
		if list, ok := v.([]any); ok {
			sub, err := d.sequence(list, p)
			if err != nil {
				return nil, err
			}
			group = append(group, sub)
			continue
		}
		item, err := d.entry(v, p)
		if err != nil {
			return nil, err
		}
		group = append(group, item)
	}
	return group, nil
}

func (d *decoder) entry(v any, path domain.Path) (domain.Item, error) {
	switch e := v.(type) {
	case nil:
		return nil, invalid(path, "empty entry")
	case string:
		if e == "" {
			return nil, invalid(path, "empty action name")
		}
		return domain.Ref(e), nil
	case map[string]any:
		return d.mapping(e, path)
	}
	return nil, invalid(path, "unsupported entry of type %T", v)
}

func (d *decoder) mapping(raw map[string]any, path domain.Path) (domain.Item, error) {
	var (
		spec entrySpec
		md   mapstructure.Metadata
	)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &spec,
		Metadata:    &md,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, invalid(path, "%v", err)
	}

	hasParallel := slices.Contains(md.Keys, "parallel")
	hasSequence := slices.Contains(md.Keys, "sequence")

	switch {
	case spec.Action != "" && (hasParallel || hasSequence):
		return nil, invalid(path, "entry mixes action with parallel or sequence")
	case hasParallel && hasSequence:
		return nil, invalid(path, "entry mixes parallel and sequence")
	case hasParallel:
		return d.group(spec.Parallel, path)
	case hasSequence:
		return d.sequence(spec.Sequence, path)
	case spec.Action == "":
		return nil, invalid(path, "entry has no action")
	}

	if len(spec.Outputs) == 0 {
		return domain.Ref(spec.Action), nil
	}

	action, ok := d.lookup(spec.Action)
	if !ok {
		return nil, invalid(path, "unknown action %q", spec.Action)
	}
	step := &domain.Step{Action: action, Outputs: make(map[string]domain.Sequence, len(spec.Outputs))}
	for _, name := range domain.SortedOutputNames(spec.Outputs) {
		if strings.Contains(name, ".") {
			return nil, invalid(path, "output name %q must not contain '.'", name)
		}
		raw := spec.Outputs[name]
		if raw == nil {
			step.Outputs[name] = nil
			continue
		}
		sub, err := d.sequence(raw, path.Output(name))
		if err != nil {
			return nil, err
		}
		step.Outputs[name] = sub
	}
	return step, nil
}

func (d *decoder) lookup(name string) (*domain.Action, bool) {
	if d.resolve == nil {
		return nil, false
	}
	a, ok := d.resolve(name)
	return a, ok && a != nil
}
