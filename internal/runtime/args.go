package runtime

import (
	"maps"
	"sync"
)

// argBag is the running argument map of one run. Concurrent group members
// merge into it as they settle; overlapping keys are last-write-wins.
type argBag struct {
	mu     sync.Mutex
	values map[string]any
}

func newArgBag(initial map[string]any) *argBag {
	values := maps.Clone(initial)
	if values == nil {
		values = make(map[string]any)
	}
	return &argBag{values: values}
}

// snapshot returns a shallow copy. Steps only ever see snapshots.
func (a *argBag) snapshot() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.values)
}

// merge shallowly unions a payload into the bag.
func (a *argBag) merge(payload map[string]any) {
	if len(payload) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	maps.Copy(a.values, payload)
}

// missing returns the keys of want that are absent from the bag.
func (a *argBag) missing(want []string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, k := range want {
		if _, ok := a.values[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
