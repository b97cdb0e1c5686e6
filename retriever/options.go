package retriever

import "context"

type Option func(*Options)

type Options struct {
	Limit   int
	Context context.Context
}

func WithLimit(limit int) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Limit:   5,
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
