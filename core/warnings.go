package core

// WarningKind classifies non-fatal conditions reported alongside
// best-effort results.
type WarningKind string

const (
	// WarningConvergence indicates segmentation stopped at the iteration
	// cap before assignments stabilized.
	WarningConvergence WarningKind = "convergence"

	// WarningDegradedEmbeddings indicates embeddings were unavailable and
	// search fell back to keyword-only scoring.
	WarningDegradedEmbeddings WarningKind = "degraded_embeddings"

	// WarningRebalanceTolerance indicates balance repair hit its iteration
	// cap with one or more segments still outside the size band.
	WarningRebalanceTolerance WarningKind = "rebalance_tolerance"
)

// Warning is a structured, non-fatal condition. Warnings are returned with
// results and never silently dropped.
type Warning struct {
	Kind    WarningKind
	Message string
}

// NewWarning creates a Warning.
func NewWarning(kind WarningKind, message string) Warning {
	return Warning{Kind: kind, Message: message}
}
