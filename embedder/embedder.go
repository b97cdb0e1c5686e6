package embedder

import "context"

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IsZero reports whether vec is the degraded all-zero embedding that
// fallback-capable embedders return instead of an error.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
