package search

import "github.com/poiesic/cohort/core"

// Monitor provides hooks to observe the search process.
// Implement this interface to track intermediate stages during scoring.
type Monitor interface {
	Start(qc core.QueryContext)
	SemanticAvailable(available bool)
	AfterScoring(candidates int)
	Fallback()
	Finish(results []core.SearchResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.QueryContext)    {}
func (n *noopMonitor) SemanticAvailable(_ bool)     {}
func (n *noopMonitor) AfterScoring(_ int)           {}
func (n *noopMonitor) Fallback()                    {}
func (n *noopMonitor) Finish(_ []core.SearchResult) {}
