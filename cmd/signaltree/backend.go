package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/signaltree/pkg/adapters/memory"
	"github.com/aretw0/signaltree/pkg/adapters/redis"
	"github.com/aretw0/signaltree/pkg/persistence/middleware"
	"github.com/aretw0/signaltree/pkg/ports"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// replayKeyEnv holds a base64 AES-256 key. When set, replay records are
// encrypted before they reach the replay store.
const replayKeyEnv = "SIGNALTREE_REPLAY_KEY"

// backend bundles the stores a command runs against.
type backend struct {
	// newStore returns the host store for one run. The Redis store is shared;
	// memory stores are per run.
	newStore func() ports.Store
	replay   ports.ReplayStore
	locker   ports.DistributedLocker
	close    func() error
}

func addBackendFlags(flags *pflag.FlagSet) {
	flags.String("redis", "", "Redis address; the host store and replay records live in memory when empty")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.String("redis-prefix", "signaltree:", "Key prefix for everything stored in Redis")
	flags.Duration("replay-ttl", 24*time.Hour, "How long saved replay records are kept in Redis (0 keeps them forever)")
	flags.StringSlice("redact", nil, "Regexp of payload keys masked in saved replay records (repeatable)")
}

func openBackend(cmd *cobra.Command, seed map[string]any) (*backend, error) {
	mws, err := replayMiddlewares(cmd)
	if err != nil {
		return nil, err
	}

	addr, _ := cmd.Flags().GetString("redis")
	if addr == "" {
		return &backend{
			newStore: func() ports.Store { return memory.NewStore(seed) },
			replay:   middleware.Chain(memory.NewReplayStore(), mws...),
			close:    func() error { return nil },
		}, nil
	}

	password, _ := cmd.Flags().GetString("redis-password")
	db, _ := cmd.Flags().GetInt("redis-db")
	prefix, _ := cmd.Flags().GetString("redis-prefix")
	ttl, _ := cmd.Flags().GetDuration("replay-ttl")

	store := redis.New(addr, password, db, redis.WithPrefix(prefix+"state:"))
	replay := redis.NewReplayStore(store.Client(), redis.WithPrefix(prefix+"replay:"), redis.WithTTL(ttl))
	return &backend{
		newStore: func() ports.Store { return store },
		replay:   middleware.Chain(replay, mws...),
		locker:   redis.NewLocker(store.Client(), prefix),
		close:    store.Close,
	}, nil
}

// replayMiddlewares masks first, then encrypts.
func replayMiddlewares(cmd *cobra.Command) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware

	redact, _ := cmd.Flags().GetStringSlice("redact")
	if len(redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(redact)
		if err != nil {
			return nil, fmt.Errorf("--redact: %w", err)
		}
		mws = append(mws, pii)
	}

	if raw := os.Getenv(replayKeyEnv); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%s is not valid base64: %w", replayKeyEnv, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", replayKeyEnv, len(key))
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return mws, nil
}

func (b *backend) remote() bool {
	return b.locker != nil
}
