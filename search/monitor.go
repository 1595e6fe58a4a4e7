package search

// SearchMonitor provides hooks to observe a ranking pass.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, candidates int)
	AfterScoring(scored []Scored)
	AfterLexical(scored []Scored)
	Fallback(candidates int)
	Finish(results []Scored)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)   {}
func (n *noopMonitor) AfterScoring(_ []Scored) {}
func (n *noopMonitor) AfterLexical(_ []Scored) {}
func (n *noopMonitor) Fallback(_ int)          {}
func (n *noopMonitor) Finish(_ []Scored)       {}
