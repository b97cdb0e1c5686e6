package sessionstore

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	TTL         time.Duration
	MaxMessages int
	KeyPrefix   string
	Context     context.Context
}

func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

func WithMaxMessages(max int) Option {
	return func(o *Options) {
		o.MaxMessages = max
	}
}

func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		o.KeyPrefix = prefix
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		TTL:         24 * time.Hour,
		MaxMessages: 200,
		KeyPrefix:   "chatter:session:",
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
