package redis

import "time"

type options struct {
	prefix string
	ttl    time.Duration
}

// Option configures the Redis adapters.
type Option func(*options)

// WithTTL sets the expiration of written keys. Zero means no expiration.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func newOptions(prefix string, opts []Option) options {
	o := options{prefix: prefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
