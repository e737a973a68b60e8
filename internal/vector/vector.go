// Package vector holds the numeric helpers shared by the store and the ranker.
package vector

import "math"

// Embedding is a vector together with its Euclidean norm.
type Embedding struct {
	Vector []float64
	Norm   float64
}

// New builds an Embedding, computing the norm from v.
func New(v []float64) Embedding {
	return Embedding{Vector: v, Norm: Norm(v)}
}

// Dim returns the number of components.
func (e Embedding) Dim() int { return len(e.Vector) }

// Norm returns the Euclidean (L2) norm of v.
func Norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Vectors of different dimension, or with a zero norm, score 0.
func Cosine(a, b Embedding) float64 {
	if len(a.Vector) != len(b.Vector) || a.Norm == 0 || b.Norm == 0 {
		return 0
	}
	dot := 0.0
	for i := range a.Vector {
		dot += a.Vector[i] * b.Vector[i]
	}
	s := dot / (a.Norm * b.Norm)
	// rounding can push identical vectors just past 1
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// Float64s widens a float32 vector as returned by most embedding APIs.
func Float64s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
