package websocket

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	MaxMessageLen    int
	ShortAnswerLimit int
	ChunkWords       int
	ChunkDelay       time.Duration
	HistoryLimit     int
	SweepInterval    time.Duration
	SweepThreshold   time.Duration
	Context          context.Context
}

func WithMaxMessageLen(max int) Option {
	return func(o *Options) {
		o.MaxMessageLen = max
	}
}

func WithShortAnswerLimit(limit int) Option {
	return func(o *Options) {
		o.ShortAnswerLimit = limit
	}
}

func WithChunkWords(words int) Option {
	return func(o *Options) {
		o.ChunkWords = words
	}
}

func WithChunkDelay(delay time.Duration) Option {
	return func(o *Options) {
		o.ChunkDelay = delay
	}
}

func WithHistoryLimit(limit int) Option {
	return func(o *Options) {
		o.HistoryLimit = limit
	}
}

func WithSweepInterval(interval time.Duration) Option {
	return func(o *Options) {
		o.SweepInterval = interval
	}
}

func WithSweepThreshold(threshold time.Duration) Option {
	return func(o *Options) {
		o.SweepThreshold = threshold
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxMessageLen:    1000,
		ShortAnswerLimit: 100,
		ChunkWords:       3,
		ChunkDelay:       100 * time.Millisecond,
		HistoryLimit:     50,
		SweepInterval:    time.Hour,
		SweepThreshold:   24 * time.Hour,
		Context:          context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
