package engine

import (
	"errors"
	"fmt"
	"math"

	"productmatcher/types"
)

// ErrZeroVector is returned when a pooled embedding has no direction
var ErrZeroVector = errors.New("pooled embedding has zero norm")

// Hidden holds a model's per-token output as a Tokens x Dim row-major matrix
type Hidden struct {
	Data   []float32
	Tokens int
	Dim    int
	// Prefix counts leading non-spatial tokens (CLS, registers) left out of pooling
	Prefix int
}

// Pool mean-pools the spatial tokens of h, keeps the first dim components
// and scales the result to unit length. It never pads: a model narrower
// than dim is an error.
func Pool(h Hidden, dim int) (types.EmbeddingVector, error) {
	if h.Tokens <= 0 || h.Dim <= 0 || len(h.Data) != h.Tokens*h.Dim {
		return nil, fmt.Errorf("malformed model output: %d values for %dx%d", len(h.Data), h.Tokens, h.Dim)
	}
	if h.Dim < dim {
		return nil, fmt.Errorf("model output has %d components, need %d", h.Dim, dim)
	}

	start := h.Prefix
	if start >= h.Tokens {
		// Nothing but prefix tokens; pool what there is
		start = 0
	}
	n := float64(h.Tokens - start)

	sum := make([]float64, dim)
	for t := start; t < h.Tokens; t++ {
		row := h.Data[t*h.Dim : t*h.Dim+dim]
		for i, v := range row {
			sum[i] += float64(v)
		}
	}

	var sq float64
	for i := range sum {
		sum[i] /= n
		sq += sum[i] * sum[i]
	}
	norm := math.Sqrt(sq)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, ErrZeroVector
	}

	out := make(types.EmbeddingVector, dim)
	for i, v := range sum {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// Norm returns the Euclidean length of v
func Norm(v types.EmbeddingVector) float64 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	return math.Sqrt(sq)
}
