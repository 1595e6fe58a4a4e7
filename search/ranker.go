package search

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
)

// Strategy selects how dense and sparse signals are combined.
type Strategy string

const (
	// StrategyFused scores every fragment once from both signals.
	StrategyFused Strategy = "fused"

	// StrategyMerged ranks dense and lexical candidates separately and
	// merges the two lists.
	StrategyMerged Strategy = "merged"
)

// ParseStrategy maps a strategy name to a Strategy. An empty name yields
// StrategyFused.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", StrategyFused:
		return StrategyFused, nil
	case StrategyMerged:
		return StrategyMerged, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Candidate is one stored fragment as seen by the ranker.
type Candidate struct {
	// Embedding is the fragment's dense vector, same dimension as the query.
	Embedding []float32
	// Length is the fragment length in characters.
	Length int
	// FragmentIndex is the fragment's position within its document.
	FragmentIndex int
}

// Scored pairs a candidate position with its score.
type Scored struct {
	Position int
	Score    float64
}

// Request describes one ranking pass.
type Request struct {
	Query     string
	Embedding []float32
	// Lexical holds one sparse similarity per candidate. Nil disables the
	// sparse signal.
	Lexical    []float64
	Candidates []Candidate
	TopK       int
	MinScore   float64
	Strategy   Strategy
}

// Ranker turns dense and sparse similarities into ranked fragments.
// A Ranker is stateless apart from its configuration and is safe for
// concurrent use.
type Ranker struct {
	weights Weights
	logger  *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithWeights replaces the default tuning.
func WithWeights(w Weights) Option {
	return func(r *Ranker) error {
		if err := w.Validate(); err != nil {
			return err
		}
		r.weights = w
		return nil
	}
}

// NewRanker creates a ranker with DefaultWeights unless overridden.
func NewRanker(opts ...Option) (*Ranker, error) {
	r := &Ranker{
		weights: DefaultWeights(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Weights returns the ranker's tuning.
func (r *Ranker) Weights() Weights {
	return r.weights
}

// Rank runs a full ranking pass and returns at most req.TopK entries,
// best first.
func (r *Ranker) Rank(req Request) []Scored {
	return r.RankWithMonitor(req, nil)
}

// RankWithMonitor runs a ranking pass with monitoring.
// The monitor receives callbacks at each stage.
func (r *Ranker) RankWithMonitor(req Request, monitor SearchMonitor) []Scored {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(req.Query, len(req.Candidates))

	if len(req.Candidates) == 0 || req.TopK <= 0 {
		monitor.Finish(nil)
		return []Scored{}
	}

	var results []Scored
	if req.Strategy == StrategyMerged && req.Lexical != nil {
		semantic := r.Score(req.Embedding, nil, req.Candidates)
		monitor.AfterScoring(semantic)
		lexical := r.Lexical(req.Lexical)
		monitor.AfterLexical(lexical)

		semantic = r.selectWithMonitor(semantic, req.TopK, req.MinScore, monitor)
		lexical = r.selectWithMonitor(lexical, req.TopK, req.MinScore, monitor)
		results = r.Merge(semantic, lexical, req.TopK)
	} else {
		scored := r.Score(req.Embedding, req.Lexical, req.Candidates)
		monitor.AfterScoring(scored)
		results = r.selectWithMonitor(scored, req.TopK, req.MinScore, monitor)
	}

	r.logger.Debug("ranked fragments",
		"candidates", len(req.Candidates),
		"results", len(results),
		"strategy", req.Strategy,
		"hybrid", req.Lexical != nil)
	monitor.Finish(results)

	return results
}

func (r *Ranker) selectWithMonitor(scored []Scored, topK int, minScore float64, monitor SearchMonitor) []Scored {
	selected, fallback := Select(scored, topK, minScore)
	if fallback {
		r.logger.Debug("no candidate reached minimum score, returning unfiltered top results",
			"minScore", minScore, "returned", len(selected))
		monitor.Fallback(len(scored))
	}
	return selected
}

// Score computes the final score of every candidate and returns them sorted
// best first. Ties keep candidate order. When lexical is nil the dense
// similarity is used on its own; otherwise lexical[i] is fused with the dense
// similarity of candidates[i].
func (r *Ranker) Score(query []float32, lexical []float64, candidates []Candidate) []Scored {
	queryNorm := norm(query)

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		base := cosine(query, queryNorm, c.Embedding)
		if lexical != nil {
			var sparse float64
			if i < len(lexical) {
				sparse = lexical[i]
			}
			base = r.fuse(sparse, base)
		}
		scored[i] = Scored{Position: i, Score: r.enhance(base, query, c)}
	}

	sortScored(scored)
	return scored
}

// Lexical ranks candidates by sparse similarity alone. Candidates without
// any lexical overlap are omitted.
func (r *Ranker) Lexical(lexical []float64) []Scored {
	scored := make([]Scored, 0, len(lexical))
	for i, s := range lexical {
		if s <= 0 {
			continue
		}
		scored = append(scored, Scored{Position: i, Score: math.Min(1, s)})
	}
	sortScored(scored)
	return scored
}

// Merge combines a semantic and a lexical candidate list. Entries found only
// by lexical search are discounted by LexicalOnlyFactor; entries in both
// lists keep the higher score. The merged list is re-sorted, ties keeping
// semantic entries first, and truncated to topK.
func (r *Ranker) Merge(semantic, lexical []Scored, topK int) []Scored {
	merged := make([]Scored, 0, len(semantic)+len(lexical))
	seen := make(map[int]int, len(semantic)+len(lexical))

	for _, s := range semantic {
		if _, ok := seen[s.Position]; ok {
			continue
		}
		seen[s.Position] = len(merged)
		merged = append(merged, s)
	}

	for _, l := range lexical {
		if i, ok := seen[l.Position]; ok {
			merged[i].Score = math.Max(merged[i].Score, l.Score)
			continue
		}
		seen[l.Position] = len(merged)
		merged = append(merged, Scored{
			Position: l.Position,
			Score:    l.Score * r.weights.LexicalOnlyFactor,
		})
	}

	sortScored(merged)
	if topK >= 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}

// Select applies the minimum score to the best 2*topK entries of a sorted
// list and truncates to topK. When entries exist but none reaches minScore,
// the first topK entries are returned unfiltered and fallback is true.
func Select(scored []Scored, topK int, minScore float64) (selected []Scored, fallback bool) {
	if topK <= 0 || len(scored) == 0 {
		return []Scored{}, false
	}

	window := scored
	if len(window) > 2*topK {
		window = window[:2*topK]
	}

	selected = make([]Scored, 0, topK)
	for _, s := range window {
		if s.Score >= minScore {
			selected = append(selected, s)
			if len(selected) == topK {
				break
			}
		}
	}
	if len(selected) > 0 {
		return selected, false
	}

	n := min(topK, len(scored))
	selected = make([]Scored, n)
	copy(selected, scored[:n])
	return selected, true
}

// fuse weighs the sparse score more heavily when it signals a strong match.
func (r *Ranker) fuse(sparse, dense float64) float64 {
	w := r.weights
	if sparse > w.HighMatchThreshold {
		return w.HighSparse*sparse + w.HighDense*dense
	}
	return w.LowSparse*sparse + w.LowDense*dense
}

// enhance reshapes a base score, applies structural boosts and blends in
// Euclidean proximity. The result is in [0, 1].
func (r *Ranker) enhance(base float64, query []float32, c Candidate) float64 {
	w := r.weights

	s := math.Max(0, math.Min(1, base))
	if s > w.Pivot {
		s = w.Pivot + (s-w.Pivot)*w.Stretch
	} else {
		s *= w.Compression
	}

	if c.Length > w.MediumMin && c.Length < w.MediumMax {
		s *= w.MediumBoost
	} else if c.Length > w.LongThreshold {
		s *= w.LongPenalty
	}
	if c.FragmentIndex == 0 {
		s *= w.FirstFragmentBoost
	}

	proximity := 1 / (1 + euclidean(query, c.Embedding)/w.DistanceScale)
	s = w.BoostedWeight*s + w.DistanceWeight*proximity

	return math.Max(0, math.Min(1, s))
}

func sortScored(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero length.
func cosine(query []float32, queryNorm float64, v []float32) float64 {
	vn := norm(v)
	if queryNorm == 0 || vn == 0 {
		return 0
	}
	n := min(len(query), len(v))
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(query[i]) * float64(v[i])
	}
	return dot / (queryNorm * vn)
}

func euclidean(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
