package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/aretw0/signaltree/pkg/domain"
)

// ReplayStore implements ports.ReplayStore in memory.
// Safe for concurrent use.
type ReplayStore struct {
	data map[string][]domain.ReplayRecord
	mu   sync.RWMutex
}

// NewReplayStore creates a new in-memory replay store.
func NewReplayStore() *ReplayStore {
	return &ReplayStore{
		data: make(map[string][]domain.ReplayRecord),
	}
}

// Save replaces the records kept for runKey.
func (s *ReplayStore) Save(ctx context.Context, runKey string, records []domain.ReplayRecord) error {
	copied := copyRecords(records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[runKey] = copied
	return nil
}

// Load retrieves the records for runKey.
func (s *ReplayStore) Load(ctx context.Context, runKey string) ([]domain.ReplayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.data[runKey]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return copyRecords(records), nil
}

// Delete removes the records for runKey.
func (s *ReplayStore) Delete(ctx context.Context, runKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runKey)
	return nil
}

// List returns the run keys holding records.
func (s *ReplayStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func copyRecords(records []domain.ReplayRecord) []domain.ReplayRecord {
	out := make([]domain.ReplayRecord, len(records))
	for i, rec := range records {
		out[i] = domain.ReplayRecord{
			OutputPath: rec.OutputPath,
			Path:       append(domain.Path(nil), rec.Path...),
			Args:       maps.Clone(rec.Args),
		}
	}
	return out
}
