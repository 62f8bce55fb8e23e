package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/ports"
)

// Mask replaces the values of matching keys.
const Mask = "***"

type piiMiddleware struct {
	next     ports.ReplayStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks payload values whose keys
// match one of the patterns before records are saved. A replayed step hands
// the masked value to later steps, so only mask keys nothing downstream needs.
// An invalid pattern is returned as an error.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ReplayStore) ports.ReplayStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, runKey string, records []domain.ReplayRecord) error {
	// The caller keeps using its records; mask a copy.
	masked := make([]domain.ReplayRecord, len(records))
	for i, rec := range records {
		rec.Args = deepCopyMap(rec.Args)
		maskMap(rec.Args, m.patterns)
		masked[i] = rec
	}
	return m.next.Save(ctx, runKey, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, runKey string) ([]domain.ReplayRecord, error) {
	return m.next.Load(ctx, runKey)
}

func (m *piiMiddleware) Delete(ctx context.Context, runKey string) error {
	return m.next.Delete(ctx, runKey)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}

		if subMap, ok := v.(map[string]any); ok && !masked {
			maskMap(subMap, patterns)
		}
	}
}
