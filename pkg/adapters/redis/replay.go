package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/signaltree/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// farFuture is the index score of records written without a TTL.
const farFuture = 4102444800 // 2100-01-01

// ReplayStore implements ports.ReplayStore using Redis.
// Records for a run key are stored as one JSON document; a ZSET indexes the
// run keys by expiry so List can prune lazily.
type ReplayStore struct {
	client *backend.Client
	opts   options
}

// NewReplayStore creates a replay store from an existing client.
func NewReplayStore(client *backend.Client, opts ...Option) *ReplayStore {
	return &ReplayStore{
		client: client,
		opts:   newOptions("signaltree:replay:", opts),
	}
}

func (s *ReplayStore) key(runKey string) string {
	return s.opts.prefix + runKey
}

func (s *ReplayStore) indexKey() string {
	return s.opts.prefix + "index"
}

// Save replaces the records for runKey.
func (s *ReplayStore) Save(ctx context.Context, runKey string, records []domain.ReplayRecord) error {
	if records == nil {
		records = []domain.ReplayRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal replay records: %w", err)
	}

	score := float64(time.Now().Add(s.opts.ttl).Unix())
	if s.opts.ttl == 0 {
		score = farFuture
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(runKey), data, s.opts.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: runKey})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save replay records to redis: %w", err)
	}
	return nil
}

// Load retrieves the records for runKey.
func (s *ReplayStore) Load(ctx context.Context, runKey string) ([]domain.ReplayRecord, error) {
	val, err := s.client.Get(ctx, s.key(runKey)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get replay records from redis: %w", err)
	}

	var records []domain.ReplayRecord
	if err := json.Unmarshal(val, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal replay records: %w", err)
	}
	return records, nil
}

// Delete removes the records for runKey.
func (s *ReplayStore) Delete(ctx context.Context, runKey string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(runKey))
	pipe.ZRem(ctx, s.indexKey(), runKey)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the run keys holding records, pruning expired index entries first.
func (s *ReplayStore) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired runs: %w", err)
	}

	keys, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return keys, nil
}
