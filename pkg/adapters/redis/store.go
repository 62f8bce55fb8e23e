package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/signaltree/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.Store using Redis.
// Each dotted path is its own key holding a JSON value, so paths are flat:
// setting "user" does not make "user.name" readable.
// Numbers read back as float64, as with any JSON decoding into any.
type Store struct {
	client *backend.Client
	opts   options
}

// New creates a new Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	return &Store{
		client: client,
		opts:   newOptions("signaltree:state:", opts),
	}
}

// Client exposes the underlying client so replay stores and lockers can share it.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(path string) string {
	return s.opts.prefix + path
}

// Get returns the value at path.
func (s *Store) Get(ctx context.Context, path string) (any, error) {
	val, err := s.client.Get(ctx, s.key(path)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrKeyNotFound)
		}
		return nil, fmt.Errorf("failed to get %s from redis: %w", path, err)
	}

	var v any
	if err := json.Unmarshal(val, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return v, nil
}

// Set writes value at path.
func (s *Store) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := s.client.Set(ctx, s.key(path), data, s.opts.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", path, err)
	}
	return nil
}

// Unset removes the value at path.
func (s *Store) Unset(ctx context.Context, path string) error {
	if err := s.client.Del(ctx, s.key(path)).Err(); err != nil {
		return fmt.Errorf("failed to unset %s in redis: %w", path, err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
