package search

import (
	"fmt"
)

// Weights holds every tuning constant used to turn dense and sparse
// similarities into a final score.
type Weights struct {
	// HighMatchThreshold selects the fusion weights: a sparse score above it
	// uses HighSparse/HighDense, otherwise LowSparse/LowDense.
	HighMatchThreshold float64 `yaml:"high_match_threshold"`
	HighSparse         float64 `yaml:"high_sparse"`
	HighDense          float64 `yaml:"high_dense"`
	LowSparse          float64 `yaml:"low_sparse"`
	LowDense           float64 `yaml:"low_dense"`

	// Scores above Pivot are stretched away from it, scores at or below it
	// are compressed toward zero.
	Pivot       float64 `yaml:"pivot"`
	Stretch     float64 `yaml:"stretch"`
	Compression float64 `yaml:"compression"`

	// Fragments with MediumMin < length < MediumMax get MediumBoost;
	// fragments longer than LongThreshold get LongPenalty.
	MediumMin     int     `yaml:"medium_min"`
	MediumMax     int     `yaml:"medium_max"`
	MediumBoost   float64 `yaml:"medium_boost"`
	LongThreshold int     `yaml:"long_threshold"`
	LongPenalty   float64 `yaml:"long_penalty"`

	// FirstFragmentBoost applies to the first fragment of each document.
	FirstFragmentBoost float64 `yaml:"first_fragment_boost"`

	// The boosted score and the Euclidean proximity 1/(1+dist/DistanceScale)
	// are blended with BoostedWeight and DistanceWeight.
	DistanceScale  float64 `yaml:"distance_scale"`
	BoostedWeight  float64 `yaml:"boosted_weight"`
	DistanceWeight float64 `yaml:"distance_weight"`

	// LexicalOnlyFactor discounts entries found only by lexical search when
	// two candidate lists are merged.
	LexicalOnlyFactor float64 `yaml:"lexical_only_factor"`
}

// DefaultWeights returns the standard tuning.
func DefaultWeights() Weights {
	return Weights{
		HighMatchThreshold: 0.5,
		HighSparse:         0.4,
		HighDense:          0.6,
		LowSparse:          0.2,
		LowDense:           0.8,
		Pivot:              0.5,
		Stretch:            1.5,
		Compression:        0.8,
		MediumMin:          100,
		MediumMax:          1000,
		MediumBoost:        1.1,
		LongThreshold:      2000,
		LongPenalty:        0.9,
		FirstFragmentBoost: 1.05,
		DistanceScale:      100,
		BoostedWeight:      0.7,
		DistanceWeight:     0.3,
		LexicalOnlyFactor:  0.8,
	}
}

// Validate rejects negative weights and degenerate bands.
func (w Weights) Validate() error {
	values := map[string]float64{
		"high_match_threshold": w.HighMatchThreshold,
		"high_sparse":          w.HighSparse,
		"high_dense":           w.HighDense,
		"low_sparse":           w.LowSparse,
		"low_dense":            w.LowDense,
		"pivot":                w.Pivot,
		"stretch":              w.Stretch,
		"compression":          w.Compression,
		"medium_boost":         w.MediumBoost,
		"long_penalty":         w.LongPenalty,
		"first_fragment_boost": w.FirstFragmentBoost,
		"boosted_weight":       w.BoostedWeight,
		"distance_weight":      w.DistanceWeight,
		"lexical_only_factor":  w.LexicalOnlyFactor,
	}
	for name, v := range values {
		if v < 0 {
			return fmt.Errorf("%w: %s is negative (%v)", ErrInvalidWeights, name, v)
		}
	}
	if w.Pivot > 1 {
		return fmt.Errorf("%w: pivot %v above 1", ErrInvalidWeights, w.Pivot)
	}
	if w.DistanceScale <= 0 {
		return fmt.Errorf("%w: distance_scale must be positive", ErrInvalidWeights)
	}
	if w.MediumMin < 0 || w.MediumMax < w.MediumMin || w.LongThreshold < 0 {
		return fmt.Errorf("%w: length bands (%d, %d) and %d", ErrInvalidWeights,
			w.MediumMin, w.MediumMax, w.LongThreshold)
	}
	return nil
}
