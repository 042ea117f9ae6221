// Package engine drives the generate -> verify -> correct loop until an
// artifact complies or the run terminates with a named failure. The
// loop holds no state a caller cannot reconstruct from the iteration
// history, which makes every run replayable.
package engine

import (
	"context"
	"fmt"
	"time"

	"codewarden/internal/aggregate"
	"codewarden/internal/artifact"
	"codewarden/internal/cache"
	"codewarden/internal/correction"
	"codewarden/internal/governor"
)

// State names the loop's positions. Terminal states are StateAccepted
// and StateFailed.
type State string

const (
	StateGenerating State = "generating"
	StateVerifying  State = "verifying"
	StateCorrecting State = "correcting"
	StateAccepted   State = "accepted"
	StateFailed     State = "failed"
)

// FailReason is the machine-readable reason a run gave up.
type FailReason string

const (
	ReasonNone            FailReason = ""
	ReasonIterationLimit  FailReason = "iteration-limit"
	ReasonStalled         FailReason = "stalled"
	ReasonNoProgress      FailReason = "no-progress"
	ReasonGenerationError FailReason = "generation-error"
	ReasonTimeout         FailReason = "timeout"
)

// Generator is the external text-generation collaborator: opaque,
// fallible, latency-variable. Identical (prompt, context) pairs must be
// safe to cache.
type Generator interface {
	Generate(ctx context.Context, prompt, context string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt, context string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt, context string) (string, error) {
	return f(ctx, prompt, context)
}

// GenerationError wraps a failure of the generation collaborator.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generation failed: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }

// Config enumerates the run-level knobs.
type Config struct {
	MaxIterations             int           `yaml:"max_iterations"`
	ScoreThreshold            float64       `yaml:"score_threshold"`
	WarningPenalty            float64       `yaml:"warning_penalty"`
	PerGovernorTimeout        time.Duration `yaml:"per_governor_timeout"`
	AggregatorOverhead        time.Duration `yaml:"aggregator_overhead"`
	GlobalTimeout             time.Duration `yaml:"global_timeout"`
	MaxDirectivesPerIteration int           `yaml:"max_directives_per_iteration"`
	CacheCapacity             int           `yaml:"cache_capacity"`
	// GenerationRetries is the number of additional attempts after a
	// failed generation call before the run fails. Zero disables retry.
	GenerationRetries int `yaml:"generation_retries"`
}

// DefaultConfig returns the standard run configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:             5,
		ScoreThreshold:            0.9,
		WarningPenalty:            0.05,
		PerGovernorTimeout:        10 * time.Second,
		AggregatorOverhead:        2 * time.Second,
		GlobalTimeout:             5 * time.Minute,
		MaxDirectivesPerIteration: 5,
		CacheCapacity:             256,
		GenerationRetries:         0,
	}
}

// IterationRecord is the append-only history entry for one iteration.
// DirectivesApplied are the directives fed into the generation call
// that produced this iteration's artifact (empty on the first).
type IterationRecord struct {
	Index             int                     `json:"iteration_index"`
	Artifact          *artifact.Artifact      `json:"-"`
	Record            *aggregate.ComplianceRecord `json:"compliance_record"`
	DirectivesApplied []correction.Directive  `json:"directives_applied"`
}

// RunResult is the outcome of one orchestration run.
type RunResult struct {
	RunID         string
	FinalArtifact *artifact.Artifact
	FinalRecord   *aggregate.ComplianceRecord
	History       []*IterationRecord
	State         State
	Reason        FailReason
}

// Engine is the verification orchestration core.
type Engine struct {
	cfg         Config
	registry    *governor.Registry
	aggregator  *aggregate.Aggregator
	synthesizer *correction.Synthesizer
	genCache    *cache.GenerationCache
	verCache    *cache.VerificationCache
	generator   Generator
}

// New wires an engine from its collaborators.
func New(cfg Config, registry *governor.Registry, gen Generator) *Engine {
	verCache := cache.NewVerificationCache(cfg.CacheCapacity)
	policy := aggregate.Policy{
		PerGovernorTimeout: cfg.PerGovernorTimeout,
		Overhead:           cfg.AggregatorOverhead,
		ScoreThreshold:     cfg.ScoreThreshold,
		WarningPenalty:     cfg.WarningPenalty,
	}
	return &Engine{
		cfg:         cfg,
		registry:    registry,
		aggregator:  aggregate.New(registry, verCache, policy),
		synthesizer: correction.New(registry, cfg.MaxDirectivesPerIteration),
		genCache:    cache.NewGenerationCache(cfg.CacheCapacity),
		verCache:    verCache,
		generator:   gen,
	}
}

// CacheStats exposes the engine's cache counters for observability.
func (e *Engine) CacheStats() (verification, generation cache.Stats) {
	return e.verCache.Stats(), e.genCache.Stats()
}
