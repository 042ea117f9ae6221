package aggregate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"codewarden/internal/artifact"
	"codewarden/internal/cache"
	"codewarden/internal/governor"
	"codewarden/internal/logging"
)

// Policy configures verification scheduling and compliance scoring.
// The scoring formula is configurable policy, not a fixed law.
type Policy struct {
	// PerGovernorTimeout bounds each governor's pass.
	PerGovernorTimeout time.Duration
	// Overhead is added to the max governor timeout to form the
	// global ceiling for one verification pass.
	Overhead time.Duration
	// ScoreThreshold is the minimum score for Passed.
	ScoreThreshold float64
	// WarningPenalty is subtracted from the score per warning violation.
	WarningPenalty float64
}

// DefaultPolicy returns the standard scheduling and scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		PerGovernorTimeout: 10 * time.Second,
		Overhead:           2 * time.Second,
		ScoreThreshold:     0.9,
		WarningPenalty:     0.05,
	}
}

// Aggregator fans one artifact out to all registered governors and
// assembles the ComplianceRecord. Governors share no mutable state, so
// the only synchronization is around the collected result set.
type Aggregator struct {
	registry *governor.Registry
	vcache   *cache.VerificationCache
	policy   Policy
}

// New creates an aggregator. vcache may be nil to disable memoization.
func New(registry *governor.Registry, vcache *cache.VerificationCache, policy Policy) *Aggregator {
	return &Aggregator{registry: registry, vcache: vcache, policy: policy}
}

// Verify runs every governor against the artifact concurrently and
// merges the outcomes. Individual governor failures are absorbed as
// non-passing results (fail-closed), never raised.
func (a *Aggregator) Verify(ctx context.Context, art *artifact.Artifact) (*ComplianceRecord, error) {
	governors := a.registry.List()
	if len(governors) == 0 {
		return nil, fmt.Errorf("no governors registered")
	}

	// Global ceiling: the slowest allowed governor plus fixed overhead.
	ceiling := a.policy.PerGovernorTimeout + a.policy.Overhead
	passCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	var mu sync.Mutex
	results := make(map[string]*governor.VerificationResult, len(governors))

	g, groupCtx := errgroup.WithContext(passCtx)
	for _, gov := range governors {
		gov := gov
		g.Go(func() error {
			res := a.runOne(groupCtx, gov, art)
			mu.Lock()
			results[gov.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	// Goroutines never return errors; failures are reflected in statuses.
	_ = g.Wait()

	record := a.assemble(art.Fingerprint(), governors, results)
	logging.Get(logging.CategoryAggregate).Debug("verified %s: score=%.3f passed=%v", art.Fingerprint(), record.Score, record.Passed)
	return record, nil
}

// runOne executes a single governor with its own timeout, serving from
// cache when possible. A panicking governor yields status crashed; a
// governor that overruns its budget yields status timeout. Neither
// aborts the pass.
func (a *Aggregator) runOne(ctx context.Context, gov governor.Governor, art *artifact.Artifact) *governor.VerificationResult {
	if a.vcache != nil {
		if cached, ok := a.vcache.Get(gov.Name(), art.Fingerprint()); ok {
			return cached
		}
	}

	govCtx, cancel := context.WithTimeout(ctx, a.policy.PerGovernorTimeout)
	defer cancel()

	start := time.Now()
	type outcome struct {
		res *governor.VerificationResult
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("governor panicked: %v", r)}
			}
		}()
		res, err := gov.Verify(govCtx, art)
		done <- outcome{res: res, err: err}
	}()

	select {
	case <-govCtx.Done():
		logging.Get(logging.CategoryAggregate).Warn("governor %s timed out after %v", gov.Name(), time.Since(start))
		return &governor.VerificationResult{
			GovernorID:  gov.Name(),
			Fingerprint: art.Fingerprint(),
			Duration:    time.Since(start),
			Status:      governor.StatusTimeout,
		}
	case out := <-done:
		if out.err != nil || out.res == nil {
			logging.Get(logging.CategoryAggregate).Warn("governor %s crashed: %v", gov.Name(), out.err)
			return &governor.VerificationResult{
				GovernorID:  gov.Name(),
				Fingerprint: art.Fingerprint(),
				Duration:    time.Since(start),
				Status:      governor.StatusCrashed,
			}
		}
		if a.vcache != nil {
			a.vcache.Put(gov.Name(), art.Fingerprint(), out.res)
		}
		return out.res
	}
}

// assemble computes the compliance score and the pass verdict.
//
// Score: weighted fraction of governors whose pass was clean (status ok,
// no error/blocking violations), discounted by a fixed penalty per
// warning, clamped to [0,1]. Passed additionally requires zero blocking
// violations: the blocking check is an absolute gate no score can offset.
func (a *Aggregator) assemble(fp artifact.Fingerprint, governors []governor.Governor, results map[string]*governor.VerificationResult) *ComplianceRecord {
	var totalWeight, cleanWeight float64
	warnings := 0
	blocking := false

	for _, gov := range governors {
		res := results[gov.Name()]
		totalWeight += gov.Weight()
		if res == nil {
			// Should not happen; treat as crashed, fail-closed.
			results[gov.Name()] = &governor.VerificationResult{
				GovernorID:  gov.Name(),
				Fingerprint: fp,
				Status:      governor.StatusCrashed,
			}
			continue
		}
		if res.Clean() {
			cleanWeight += gov.Weight()
		}
		warnings += res.WarningCount()
		if res.HasBlocking() {
			blocking = true
		}
	}

	score := 0.0
	if totalWeight > 0 {
		score = cleanWeight / totalWeight
	}
	score -= a.policy.WarningPenalty * float64(warnings)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return &ComplianceRecord{
		Fingerprint: fp,
		Results:     results,
		Score:       score,
		Passed:      score >= a.policy.ScoreThreshold && !blocking,
	}
}
