package ingestor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/chatter/embedder"
	"github.com/w-h-a/chatter/storer"
	"github.com/w-h-a/chatter/util/text"
)

type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
}

type Ingestor struct {
	options  Options
	embedder embedder.Embedder
	storer   storer.Storer
}

// Store chunks the document, embeds each chunk prefixed with the title, and
// upserts one index point per chunk. Point ids are freshly minted; the
// caller's document id survives only in the payload as original_doc_id.
// Per-chunk failures are logged and skipped; Store fails only when every
// chunk failed to reach the index.
func (i *Ingestor) Store(ctx context.Context, doc Document) error {
	content := strings.TrimSpace(doc.Content)

	if len(content) < i.options.MinDocument {
		slog.Debug("document too short, skipping",
			slog.String("doc_id", doc.ID),
			slog.Int("length", len(content)),
		)
		return nil
	}

	chunks := Chunk(content, i.options.ChunkTarget, i.options.ChunkOverlap, i.options.MinChunk)
	if len(chunks) == 0 {
		return nil
	}

	var (
		stored  int
		lastErr error
	)

	for idx, chunk := range chunks {
		vec, err := i.embedder.Embed(ctx, doc.Title+"\n\n"+chunk)
		if err != nil {
			slog.Error("failed to embed chunk",
				slog.String("doc_id", doc.ID),
				slog.Int("chunk_index", idx),
				slog.String("error", err.Error()),
			)
			lastErr = err
			continue
		}

		if embedder.IsZero(vec) {
			slog.Warn("chunk embedding degraded to zero vector, skipping",
				slog.String("doc_id", doc.ID),
				slog.Int("chunk_index", idx),
			)
			continue
		}

		point := storer.Point{
			Id:     uuid.NewString(),
			Vector: vec,
			Payload: map[string]any{
				"title":           text.Clean(doc.Title, 500),
				"content":         text.Clean(chunk, 4000),
				"url":             text.Clean(doc.URL, 1000),
				"source":          text.Clean(doc.Source, 200),
				"published_at":    doc.PublishedAt.UTC().Format(time.RFC3339Nano),
				"chunk_index":     idx,
				"original_doc_id": doc.ID,
			},
		}

		if err := i.storer.Upsert(ctx, []storer.Point{point}); err != nil {
			slog.Error("failed to upsert chunk",
				slog.String("doc_id", doc.ID),
				slog.Int("chunk_index", idx),
				slog.String("error", err.Error()),
			)
			lastErr = err
			continue
		}

		stored++
	}

	if stored == 0 && lastErr != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.ID, lastErr)
	}

	return nil
}

func New(e embedder.Embedder, s storer.Storer, opts ...Option) *Ingestor {
	options := NewOptions(opts...)

	if e == nil {
		panic("embedder is required")
	}

	if s == nil {
		panic("storer is required")
	}

	return &Ingestor{
		options:  options,
		embedder: e,
		storer:   s,
	}
}
