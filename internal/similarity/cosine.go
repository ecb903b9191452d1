// Package similarity provides in-memory nearest-neighbor retrieval over
// embedding vectors using cosine similarity.
package similarity

import "math"

// Cosine returns dot(a,b) / (|a|*|b|).
// Zero-magnitude, empty, or dimension-mismatched inputs yield 0, never NaN.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	return bound(dot / (math.Sqrt(na2) * math.Sqrt(nb2)))
}

func magnitude(v []float32) float64 {
	var s float64
	for _, x := range v {
		f := float64(x)
		s += f * f
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// bound keeps rounding error from pushing a score outside [-1, 1].
func bound(s float64) float64 {
	switch {
	case math.IsNaN(s) || math.IsInf(s, 0):
		return 0
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}
