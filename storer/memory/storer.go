package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/w-h-a/chatter/storer"
)

type memoryStorer struct {
	options storer.Options
	points  map[string]storer.Point
	mtx     sync.RWMutex
}

func (s *memoryStorer) Upsert(ctx context.Context, points []storer.Point) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, p := range points {
		cpy := make([]float32, len(p.Vector))
		copy(cpy, p.Vector)
		p.Vector = cpy
		s.points[p.Id] = p
	}

	return nil
}

func (s *memoryStorer) Search(ctx context.Context, vector []float32, limit int) ([]storer.Result, error) {
	if limit < 1 {
		return nil, nil
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	candidates := make([]storer.Result, 0, len(s.points))

	for _, p := range s.points {
		score := storer.CosineSimilarity(vector, p.Vector)
		candidates = append(candidates, storer.Result{
			Id:      p.Id,
			Score:   float32(score),
			Payload: p.Payload,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

func (s *memoryStorer) Info(ctx context.Context) (storer.Info, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return storer.Info{
		Points:    int64(len(s.points)),
		Dimension: s.options.VectorSize,
		Distance:  s.options.Distance,
	}, nil
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	return &memoryStorer{
		options: options,
		points:  map[string]storer.Point{},
	}
}
