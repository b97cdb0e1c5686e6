package cached

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	Cache     Cache
	Dimension int
	TTL       time.Duration
	Timeout   time.Duration
	KeyPrefix string
	Context   context.Context
}

func WithCache(cache Cache) Option {
	return func(o *Options) {
		o.Cache = cache
	}
}

func WithDimension(dimension int) Option {
	return func(o *Options) {
		o.Dimension = dimension
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		o.KeyPrefix = prefix
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Dimension: 768,
		TTL:       7 * 24 * time.Hour,
		Timeout:   30 * time.Second,
		KeyPrefix: "chatter:embed:",
		Context:   context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
