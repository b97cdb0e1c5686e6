package ingestor

import "context"

type Option func(*Options)

type Options struct {
	ChunkTarget  int
	ChunkOverlap int
	MinChunk     int
	MinDocument  int
	Context      context.Context
}

func WithChunkTarget(target int) Option {
	return func(o *Options) {
		o.ChunkTarget = target
	}
}

func WithChunkOverlap(overlap int) Option {
	return func(o *Options) {
		o.ChunkOverlap = overlap
	}
}

func WithMinChunk(min int) Option {
	return func(o *Options) {
		o.MinChunk = min
	}
}

func WithMinDocument(min int) Option {
	return func(o *Options) {
		o.MinDocument = min
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		ChunkTarget:  500,
		ChunkOverlap: 50,
		MinChunk:     50,
		MinDocument:  50,
		Context:      context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
