package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/signaltree"
	"github.com/aretw0/signaltree/internal/logging"
	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/ports"
)

// Runnable is what the Manager drives. *signaltree.Signal implements it.
type Runnable interface {
	Run(ctx context.Context, store ports.Store, args map[string]any, opts ...signaltree.RunOption) (*domain.SignalResult, error)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager runs signals under a run key so that a failed run can be retried
// without repeating the async work it already completed.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	replay ports.ReplayStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks. Defaults to 30s.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager backed by a replay store.
func NewManager(replay ports.ReplayStore, opts ...Option) *Manager {
	m := &Manager{
		replay:  replay,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu, and call release(runKey) after unlocking.
func (m *Manager) acquire(runKey string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runKey]
	if !exists {
		entry = &lockEntry{}
		m.locks[runKey] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(runKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runKey]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, runKey)
	}
}

// Run executes sig under runKey.
//
// Records saved by an earlier failed run under the same key are replayed.
// When the run fails, its async results are saved for the next attempt; when
// it succeeds, the key is cleared. The run ID defaults to runKey.
func (m *Manager) Run(ctx context.Context, runKey string, sig Runnable, store ports.Store, args map[string]any, opts ...signaltree.RunOption) (*domain.SignalResult, error) {
	var (
		res    *domain.SignalResult
		runErr error
	)

	err := m.WithLock(ctx, runKey, func(ctx context.Context) error {
		records, err := m.replay.Load(ctx, runKey)
		if err != nil && !errors.Is(err, domain.ErrRunNotFound) {
			return fmt.Errorf("failed to load replay records: %w", err)
		}

		runOpts := append([]signaltree.RunOption{
			signaltree.WithRunID(runKey),
			signaltree.WithReplay(records),
		}, opts...)

		m.logger.DebugContext(ctx, "run starting", "run_key", runKey, "replay_records", len(records))
		res, runErr = sig.Run(ctx, store, args, runOpts...)

		if runErr != nil {
			if res == nil || len(res.AsyncActionResults) == 0 {
				return nil
			}
			if err := m.replay.Save(ctx, runKey, res.AsyncActionResults); err != nil {
				m.logger.WarnContext(ctx, "failed to save replay records", "run_key", runKey, "err", err)
			}
			return nil
		}

		if len(records) > 0 {
			if err := m.replay.Delete(ctx, runKey); err != nil {
				m.logger.WarnContext(ctx, "failed to clear replay records", "run_key", runKey, "err", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, runErr
}

// Pending returns the records saved for runKey, if any.
func (m *Manager) Pending(ctx context.Context, runKey string) ([]domain.ReplayRecord, error) {
	return m.replay.Load(ctx, runKey)
}

// Discard drops the records saved for runKey.
func (m *Manager) Discard(ctx context.Context, runKey string) error {
	return m.WithLock(ctx, runKey, func(ctx context.Context) error {
		return m.replay.Delete(ctx, runKey)
	})
}

// List returns the run keys with saved records.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.replay.List(ctx)
}

// WithLock executes fn while holding the lock for runKey.
func (m *Manager) WithLock(ctx context.Context, runKey string, fn func(context.Context) error) error {
	entry := m.acquire(runKey)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(runKey)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, runKey, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"run_key", runKey,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
