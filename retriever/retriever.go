package retriever

import (
	"context"
	"log/slog"
	"time"

	"github.com/w-h-a/chatter/embedder"
	"github.com/w-h-a/chatter/storer"
	getsafe "github.com/w-h-a/chatter/util/get_safe"
	"github.com/w-h-a/chatter/util/text"
)

type Document struct {
	Content     string    `json:"content"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	ChunkIndex  int       `json:"chunk_index"`
	Score       float32   `json:"score"`
}

// Retriever turns a query into ranked passages from the vector index.
// It never fails its caller: an empty result set means "no context
// available", whatever the cause.
type Retriever struct {
	options  Options
	embedder embedder.Embedder
	storer   storer.Storer
}

func (r *Retriever) Retrieve(ctx context.Context, query string) []Document {
	if text.Blank(query) {
		return []Document{}
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		slog.Error("failed to embed query", slog.String("error", err.Error()))
		return []Document{}
	}

	if embedder.IsZero(vec) {
		slog.Warn("query embedding degraded to zero vector, skipping retrieval")
		return []Document{}
	}

	results, err := r.storer.Search(ctx, vec, r.options.Limit)
	if err != nil {
		slog.Error("vector search failed", slog.String("error", err.Error()))
		return []Document{}
	}

	documents := make([]Document, 0, len(results))

	for _, res := range results {
		payload := res.Payload

		documents = append(documents, Document{
			Content:     getsafe.String(payload, "content"),
			Title:       getsafe.String(payload, "title"),
			URL:         getsafe.String(payload, "url"),
			Source:      getsafe.String(payload, "source"),
			PublishedAt: getsafe.Time(payload, "published_at"),
			ChunkIndex:  getsafe.Int(payload, "chunk_index"),
			Score:       res.Score,
		})
	}

	return documents
}

func New(e embedder.Embedder, s storer.Storer, opts ...Option) *Retriever {
	options := NewOptions(opts...)

	if e == nil {
		panic("embedder is required")
	}

	if s == nil {
		panic("storer is required")
	}

	return &Retriever{
		options:  options,
		embedder: e,
		storer:   s,
	}
}
