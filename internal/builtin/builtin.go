// Package builtin provides the actions available to descriptions loaded by
// the signaltree CLI.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/registry"
)

// Register adds every built-in action to r.
func Register(r *registry.Registry) {
	r.Register(Actions()...)
}

// Actions returns fresh instances of the built-in actions.
//
//	log    logs the current args
//	set    writes every entry of args["set"] to the store (sync only)
//	unset  removes args["key"] from the store (sync only)
//	get    reads args["key"]; fires "found" with {value} or "missing"
//	route  fires the output named by args["route"]
//	sleep  waits args["sleep_ms"] milliseconds
//	stamp  merges {"<action path>_at": RFC3339 time} into the args
//	fail   returns an error carrying args["message"]
func Actions() []*domain.Action {
	return []*domain.Action{
		domain.Sync("log", logArgs),
		domain.Sync("set", set, domain.WithRequires("set")),
		domain.Sync("unset", unset, domain.WithRequires("key")),
		domain.NewAction("get", get, domain.WithRequires("key")),
		domain.NewAction("route", route),
		domain.NewAction("sleep", sleep, domain.WithDefaultOutput("done")),
		domain.NewAction("stamp", stamp),
		domain.NewAction("fail", fail),
	}
}

func logArgs(ctx context.Context, sc *domain.StepContext) error {
	sc.Logger.InfoContext(ctx, "args", "values", sc.Args)
	return nil
}

func set(ctx context.Context, sc *domain.StepContext) error {
	values, ok := sc.Args["set"].(map[string]any)
	if !ok {
		return fmt.Errorf("set: expected a mapping, got %T", sc.Args["set"])
	}
	m, err := sc.Mutate()
	if err != nil {
		return err
	}
	for _, key := range domain.SortedOutputNames(values) {
		if err := m.Set(ctx, key, values[key]); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func unset(ctx context.Context, sc *domain.StepContext) error {
	key, err := stringArg(sc, "key")
	if err != nil {
		return err
	}
	m, err := sc.Mutate()
	if err != nil {
		return err
	}
	return m.Unset(ctx, key)
}

func get(ctx context.Context, sc *domain.StepContext) (domain.Output, error) {
	key, err := stringArg(sc, "key")
	if err != nil {
		return domain.Output{}, err
	}
	v, err := sc.State.Get(ctx, key)
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		return sc.To("missing", nil), nil
	case err != nil:
		return domain.Output{}, err
	}
	return sc.To("found", map[string]any{"value": v}), nil
}

func route(ctx context.Context, sc *domain.StepContext) (domain.Output, error) {
	name, ok := sc.Args["route"].(string)
	if !ok || name == "" {
		return domain.NoOutput(), nil
	}
	return sc.To(name, nil), nil
}

func sleep(ctx context.Context, sc *domain.StepContext) (domain.Output, error) {
	var d time.Duration
	switch v := sc.Args["sleep_ms"].(type) {
	case int:
		d = time.Duration(v) * time.Millisecond
	case float64:
		d = time.Duration(v * float64(time.Millisecond))
	}
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return domain.Output{}, ctx.Err()
		}
	}
	return domain.Default(nil), nil
}

func stamp(ctx context.Context, sc *domain.StepContext) (domain.Output, error) {
	return domain.Default(map[string]any{
		sc.Path.String() + "_at": time.Now().UTC().Format(time.RFC3339Nano),
	}), nil
}

func fail(ctx context.Context, sc *domain.StepContext) (domain.Output, error) {
	msg, _ := sc.Args["message"].(string)
	if msg == "" {
		msg = "failed on purpose"
	}
	return domain.Output{}, errors.New(msg)
}

func stringArg(sc *domain.StepContext, key string) (string, error) {
	s, ok := sc.Args[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("arg %q must be a non-empty string", key)
	}
	return s, nil
}
