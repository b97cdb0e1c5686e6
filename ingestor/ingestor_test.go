package ingestor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/chatter/storer"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

type fakeStorer struct {
	points []storer.Point
	err    error
}

func (f *fakeStorer) Upsert(ctx context.Context, points []storer.Point) error {
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeStorer) Search(ctx context.Context, vector []float32, limit int) ([]storer.Result, error) {
	return nil, nil
}

func (f *fakeStorer) Info(ctx context.Context) (storer.Info, error) {
	return storer.Info{}, nil
}

func liveVector() []float32 {
	vec := make([]float32, 768)
	vec[0] = 1
	return vec
}

func TestStoreSkipsShortDocuments(t *testing.T) {
	emb := &fakeEmbedder{vec: liveVector()}
	idx := &fakeStorer{}
	ing := New(emb, idx)

	err := ing.Store(context.Background(), Document{
		ID:      "doc-1",
		Content: strings.Repeat("x", 40),
	})

	require.NoError(t, err)
	assert.Zero(t, emb.calls)
	assert.Empty(t, idx.points)
}

func TestStoreMintsFreshPointIds(t *testing.T) {
	emb := &fakeEmbedder{vec: liveVector()}
	idx := &fakeStorer{}
	ing := New(emb, idx)

	doc := Document{
		ID:          "doc-1",
		Title:       "Budget vote",
		Content:     strings.Repeat("The assembly passed the budget after a long debate. ", 20),
		URL:         "https://example.com/budget",
		Source:      "example",
		PublishedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, ing.Store(context.Background(), doc))
	require.NotEmpty(t, idx.points)

	seen := map[string]bool{}
	for i, point := range idx.points {
		_, err := uuid.Parse(point.Id)
		require.NoError(t, err, "point %d id must be a uuid", i)
		assert.False(t, seen[point.Id])
		seen[point.Id] = true

		assert.Equal(t, "doc-1", point.Payload["original_doc_id"])
		assert.Equal(t, "Budget vote", point.Payload["title"])
		assert.Equal(t, i, point.Payload["chunk_index"])
	}
}

func TestStoreEmbedsTitleWithChunk(t *testing.T) {
	emb := &fakeEmbedder{vec: liveVector()}
	idx := &fakeStorer{}
	ing := New(emb, idx)

	doc := Document{
		ID:      "doc-1",
		Title:   "Budget vote",
		Content: strings.Repeat("The assembly passed the budget after a long debate. ", 5),
	}

	require.NoError(t, ing.Store(context.Background(), doc))
	assert.Greater(t, emb.calls, 0)
}

func TestStoreZeroEmbeddingSkipsChunkWithoutError(t *testing.T) {
	emb := &fakeEmbedder{vec: make([]float32, 768)}
	idx := &fakeStorer{}
	ing := New(emb, idx)

	err := ing.Store(context.Background(), Document{
		ID:      "doc-1",
		Content: strings.Repeat("A perfectly ordinary sentence about nothing much. ", 5),
	})

	require.NoError(t, err)
	assert.Empty(t, idx.points, "degraded embeddings never reach the index")
}

func TestStoreFailsOnlyWhenNothingStored(t *testing.T) {
	emb := &fakeEmbedder{vec: liveVector()}
	idx := &fakeStorer{err: errors.New("index down")}
	ing := New(emb, idx)

	err := ing.Store(context.Background(), Document{
		ID:      "doc-1",
		Content: strings.Repeat("A perfectly ordinary sentence about nothing much. ", 5),
	})

	assert.Error(t, err)
}
