package http

import (
	"context"

	"github.com/gorilla/mux"
)

type Option func(*Options)

type Options struct {
	Address      string
	HistoryLimit int
	Middleware   []mux.MiddlewareFunc
	Context      context.Context
}

func WithAddress(addr string) Option {
	return func(o *Options) {
		o.Address = addr
	}
}

func WithHistoryLimit(limit int) Option {
	return func(o *Options) {
		o.HistoryLimit = limit
	}
}

func WithMiddleware(mws ...mux.MiddlewareFunc) Option {
	return func(o *Options) {
		o.Middleware = append(o.Middleware, mws...)
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Address:      ":8080",
		HistoryLimit: 50,
		Context:      context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
