package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"codewarden/internal/artifact"
	"codewarden/internal/correction"
	"codewarden/internal/logging"
)

// Run executes one orchestration run: generate a candidate, verify it
// against every governor, and feed corrections back until the artifact
// complies or a termination condition fires. The returned RunResult
// always carries the full history, even on failure; an error is
// returned only for invalid setup, never for a terminal FAILED state.
func (e *Engine) Run(ctx context.Context, prompt, genContext string) (*RunResult, error) {
	if e.generator == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	if e.registry.Len() == 0 {
		return nil, fmt.Errorf("no governors registered")
	}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.GlobalTimeout)
	defer cancel()

	result := &RunResult{
		RunID: uuid.New().String(),
		State: StateGenerating,
	}
	log := logging.Get(logging.CategoryEngine)
	log.Info("run %s started (max %d iterations)", result.RunID, e.cfg.MaxIterations)

	currentContext := genContext
	var pendingDirectives []correction.Directive

	for iteration := 0; iteration < e.cfg.MaxIterations; iteration++ {
		// GENERATING
		result.State = StateGenerating
		art, failReason := e.obtainArtifact(runCtx, prompt, currentContext)
		if failReason != ReasonNone {
			return e.fail(result, failReason), nil
		}
		result.FinalArtifact = art

		// VERIFYING
		result.State = StateVerifying
		record, err := e.aggregator.Verify(runCtx, art)
		if err != nil {
			return nil, err
		}
		if runCtx.Err() != nil {
			// The pass was cut short by the wall-clock budget; its
			// results are not trustworthy enough to append.
			return e.fail(result, ReasonTimeout), nil
		}

		result.History = append(result.History, &IterationRecord{
			Index:             iteration,
			Artifact:          art,
			Record:            record,
			DirectivesApplied: pendingDirectives,
		})
		result.FinalRecord = record
		log.Info("run %s iteration %d: score=%.3f passed=%v", result.RunID, iteration, record.Score, record.Passed)

		if record.Passed {
			result.State = StateAccepted
			result.Reason = ReasonNone
			return result, nil
		}

		if e.stalled(result.History) {
			return e.fail(result, ReasonStalled), nil
		}

		// CORRECTING
		result.State = StateCorrecting
		applied, regressed := e.directiveSets(result.History)
		directives := e.synthesizer.Synthesize(record, applied, regressed)
		if len(directives) == 0 {
			return e.fail(result, ReasonNoProgress), nil
		}

		currentContext = correction.FormatContext(directives)
		pendingDirectives = directives
	}

	return e.fail(result, ReasonIterationLimit), nil
}

// obtainArtifact serves GENERATING: cache first, then the collaborator
// with the configured retry budget.
func (e *Engine) obtainArtifact(ctx context.Context, prompt, genContext string) (*artifact.Artifact, FailReason) {
	if ctx.Err() != nil {
		return nil, ReasonTimeout
	}
	if art, ok := e.genCache.Get(prompt, genContext); ok {
		logging.Get(logging.CategoryGeneration).Debug("generation cache hit for prompt %s", artifact.PairFingerprint(prompt, genContext))
		return art, ReasonNone
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.GenerationRetries; attempt++ {
		text, err := e.generator.Generate(ctx, prompt, genContext)
		if err == nil {
			art := artifact.New(text)
			if ctx.Err() == nil {
				// A cancelled generation never inserts.
				e.genCache.Put(prompt, genContext, art)
			}
			return art, ReasonNone
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ReasonTimeout
		}
	}

	var genErr *GenerationError
	if !errors.As(lastErr, &genErr) {
		lastErr = &GenerationError{Err: lastErr}
	}
	logging.Get(logging.CategoryGeneration).Error("generation failed after %d attempts: %v", e.cfg.GenerationRetries+1, lastErr)
	return nil, ReasonGenerationError
}

// stalled reports whether the last two records show identical score and
// identical violation rule-id sets; further iterations would burn
// budget on a correction the collaborator cannot satisfy.
func (e *Engine) stalled(history []*IterationRecord) bool {
	if len(history) < 2 {
		return false
	}
	prev := history[len(history)-2].Record
	cur := history[len(history)-1].Record
	if prev.Score != cur.Score {
		return false
	}
	prevSet := prev.RuleIDSet()
	curSet := cur.RuleIDSet()
	if len(prevSet) != len(curSet) {
		return false
	}
	for i := range prevSet {
		if prevSet[i] != curSet[i] {
			return false
		}
	}
	return true
}

// directiveSets projects the history into the applied and regressed
// violation-ref sets the synthesizer needs. A ref is regressed when it
// was addressed by an earlier directive, was absent from the previous
// record, and is present again in the latest.
func (e *Engine) directiveSets(history []*IterationRecord) (applied, regressed map[correction.ViolationRef]bool) {
	applied = make(map[correction.ViolationRef]bool)
	regressed = make(map[correction.ViolationRef]bool)

	for _, rec := range history {
		for _, d := range rec.DirectivesApplied {
			for _, ref := range d.Refs {
				applied[ref] = true
			}
		}
	}

	if len(history) < 2 {
		return applied, regressed
	}

	prevSet := make(map[string]bool)
	for _, key := range history[len(history)-2].Record.RuleIDSet() {
		prevSet[key] = true
	}
	for _, key := range history[len(history)-1].Record.RuleIDSet() {
		if prevSet[key] {
			continue
		}
		ref, ok := splitRuleKey(key)
		if ok && applied[ref] {
			regressed[ref] = true
		}
	}
	return applied, regressed
}

func splitRuleKey(key string) (correction.ViolationRef, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return correction.ViolationRef{GovernorID: key[:i], RuleID: key[i+1:]}, true
		}
	}
	return correction.ViolationRef{}, false
}

func (e *Engine) fail(result *RunResult, reason FailReason) *RunResult {
	result.State = StateFailed
	result.Reason = reason
	logging.Get(logging.CategoryEngine).Warn("run %s failed: %s after %d iterations", result.RunID, reason, len(result.History))
	return result
}
