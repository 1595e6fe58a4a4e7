package sparse

import (
	"math"
	"sort"
)

// Vector is a sparse term-weight vector stored as parallel arrays.
// Indices are vocabulary positions sorted ascending; Values are the weights.
type Vector struct {
	Indices []int32
	Values  []float32
}

// Len returns the number of non-zero entries.
func (v Vector) Len() int {
	return len(v.Indices)
}

// IsZero reports whether the vector has no non-zero entries.
func (v Vector) IsZero() bool {
	return len(v.Indices) == 0
}

// Norm returns the Euclidean length of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Dot computes the dot product of two vectors with sorted indices.
func Dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += float64(a.Values[i]) * float64(b.Values[j])
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Cosine computes the cosine similarity of two vectors. Zero vectors have a
// similarity of 0 with everything.
func Cosine(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}

// newVector builds an L2-normalised vector from per-index weights.
func newVector(weights map[int32]float64) Vector {
	if len(weights) == 0 {
		return Vector{}
	}

	indices := make([]int32, 0, len(weights))
	var sum float64
	for idx, w := range weights {
		indices = append(indices, idx)
		sum += w * w
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	norm := math.Sqrt(sum)
	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = float32(weights[idx] / norm)
	}
	return Vector{Indices: indices, Values: values}
}

// validate checks index ordering and bounds against a vocabulary size.
func (v Vector) validate(features int) bool {
	if len(v.Indices) != len(v.Values) {
		return false
	}
	for i, idx := range v.Indices {
		if idx < 0 || int(idx) >= features {
			return false
		}
		if i > 0 && v.Indices[i-1] >= idx {
			return false
		}
	}
	return true
}
