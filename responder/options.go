package responder

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	HistoryLimit int
	Timeout      time.Duration
	Context      context.Context
}

func WithHistoryLimit(limit int) Option {
	return func(o *Options) {
		o.HistoryLimit = limit
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		HistoryLimit: 10,
		Timeout:      60 * time.Second,
		Context:      context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
