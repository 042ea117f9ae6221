package governor

import (
	"context"

	"codewarden/internal/artifact"
)

// Governor is a pluggable static verification unit. Implementations must
// be pure with respect to engine state: no side effects visible to other
// governors, and safe to call concurrently with them.
//
// A governor that fails internally should return an error; the
// aggregator records it as a crashed, non-passing result rather than
// aborting the run.
type Governor interface {
	// Name is the stable governor identifier used in results and cache keys.
	Name() string
	// Weight is this governor's share of the compliance score.
	Weight() float64
	// BlockingRuleIDs lists rule IDs this governor may report at
	// blocking severity.
	BlockingRuleIDs() []string
	// Verify runs one pass over the artifact. It must honor ctx
	// cancellation; the aggregator enforces a per-governor timeout.
	Verify(ctx context.Context, art *artifact.Artifact) (*VerificationResult, error)
}
