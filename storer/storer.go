package storer

import (
	"context"
	"math"
)

type Storer interface {
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, limit int) ([]Result, error)
	Info(ctx context.Context) (Info, error)
}

type Point struct {
	Id      string
	Vector  []float32
	Payload map[string]any
}

type Result struct {
	Id      string
	Score   float32
	Payload map[string]any
}

type Info struct {
	Points    int64
	Dimension int
	Distance  string
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
