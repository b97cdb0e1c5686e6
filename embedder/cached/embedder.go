package cached

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math"
	"strings"

	"github.com/w-h-a/chatter/embedder"
)

// cachedEmbedder wraps an upstream embedder with a content-addressed cache
// and degrades to the zero vector instead of failing. Callers can detect a
// degraded result with embedder.IsZero.
type cachedEmbedder struct {
	options Options
	inner   embedder.Embedder
}

func (e *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return e.zero(), nil
	}

	// the key hashes the raw text so identical queries always hit
	key := e.key(text)

	if vec, ok := e.lookup(ctx, key); ok {
		return vec, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.options.Timeout)
	defer cancel()

	raw, err := e.inner.Embed(ctx, text)
	if err != nil {
		slog.Error("upstream embedding failed", slog.String("error", err.Error()))
		return e.zero(), nil
	}

	vec, ok := e.validate(raw)
	if !ok {
		slog.Error("upstream embedding has wrong dimension",
			slog.Int("got", len(raw)),
			slog.Int("want", e.options.Dimension),
		)
		return e.zero(), nil
	}

	e.store(ctx, key, vec)

	return vec, nil
}

func (e *cachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.options.KeyPrefix + hex.EncodeToString(sum[:])
}

func (e *cachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	val, found, err := e.options.Cache.Get(ctx, key)
	if err != nil {
		slog.Error("embedding cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	if !found {
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal([]byte(val), &vec); err != nil {
		return nil, false
	}

	// a cached entry that fails validation is a miss, never served
	clean, ok := e.validate(vec)
	if !ok {
		return nil, false
	}

	return clean, true
}

func (e *cachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}

	// caching is best effort
	if err := e.options.Cache.Set(ctx, key, string(data), e.options.TTL); err != nil {
		slog.Error("embedding cache write failed", slog.String("error", err.Error()))
	}
}

func (e *cachedEmbedder) validate(vec []float32) ([]float32, bool) {
	if len(vec) != e.options.Dimension {
		return nil, false
	}

	clean := make([]float32, len(vec))
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			clean[i] = 0
			continue
		}
		clean[i] = v
	}

	return clean, true
}

func (e *cachedEmbedder) zero() []float32 {
	return make([]float32, e.options.Dimension)
}

func NewEmbedder(inner embedder.Embedder, opts ...Option) embedder.Embedder {
	options := NewOptions(opts...)

	if inner == nil {
		panic("missing upstream embedder for cached embedder")
	}

	if options.Cache == nil {
		panic("missing cache for cached embedder")
	}

	return &cachedEmbedder{
		options: options,
		inner:   inner,
	}
}
