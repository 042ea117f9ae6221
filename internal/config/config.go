// Package config loads codewarden configuration from YAML, with
// defaults for every knob and environment override for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"codewarden/internal/engine"
)

// Config holds all codewarden configuration.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Generation GenerationConfig `yaml:"generation"`
	Governors  []GovernorSpec   `yaml:"governors"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EngineConfig configures the orchestration loop. Durations are strings
// ("10s", "5m") parsed at build time.
type EngineConfig struct {
	MaxIterations             int     `yaml:"max_iterations"`
	ScoreThreshold            float64 `yaml:"score_threshold"`
	WarningPenalty            float64 `yaml:"warning_penalty"`
	PerGovernorTimeout        string  `yaml:"per_governor_timeout"`
	AggregatorOverhead        string  `yaml:"aggregator_overhead"`
	GlobalTimeout             string  `yaml:"global_timeout"`
	MaxDirectivesPerIteration int     `yaml:"max_directives_per_iteration"`
	CacheCapacity             int     `yaml:"cache_capacity"`
	GenerationRetries         int     `yaml:"generation_retries"`
}

// GenerationConfig configures the generation collaborator.
type GenerationConfig struct {
	Provider string `yaml:"provider"` // gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// GovernorSpec declares one governor instance.
type GovernorSpec struct {
	Name   string  `yaml:"name"`
	Kind   string  `yaml:"kind"` // style, security, syntax, datalog, script
	Weight float64 `yaml:"weight"`
	// PolicyPath points a datalog governor at its .gl policy file.
	PolicyPath string `yaml:"policy_path,omitempty"`
	// ScriptPath points a script governor at its rule script.
	ScriptPath string `yaml:"script_path,omitempty"`
	// Blocking lists rule IDs the governor reports at blocking severity.
	Blocking []string `yaml:"blocking,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the baseline configuration: the standard governor set
// with the engine defaults.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			MaxIterations:             5,
			ScoreThreshold:            0.9,
			WarningPenalty:            0.05,
			PerGovernorTimeout:        "10s",
			AggregatorOverhead:        "2s",
			GlobalTimeout:             "5m",
			MaxDirectivesPerIteration: 5,
			CacheCapacity:             256,
		},
		Generation: GenerationConfig{Provider: "gemini"},
		Governors: []GovernorSpec{
			{Name: "style", Kind: "style", Weight: 1.0},
			{Name: "security", Kind: "security", Weight: 1.5},
			{Name: "syntax", Kind: "syntax", Weight: 1.0},
		},
	}
}

// Load reads configuration from path, layering it over defaults.
// A missing file yields the defaults. GEMINI_API_KEY overrides the
// configured key so secrets can stay out of the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Generation.APIKey = key
	}
	return cfg, nil
}

// EngineConfig converts the YAML view into the engine's typed config.
func (c Config) EngineConfig() (engine.Config, error) {
	out := engine.DefaultConfig()

	if c.Engine.MaxIterations > 0 {
		out.MaxIterations = c.Engine.MaxIterations
	}
	if c.Engine.ScoreThreshold > 0 {
		out.ScoreThreshold = c.Engine.ScoreThreshold
	}
	if c.Engine.WarningPenalty >= 0 {
		out.WarningPenalty = c.Engine.WarningPenalty
	}
	if c.Engine.MaxDirectivesPerIteration > 0 {
		out.MaxDirectivesPerIteration = c.Engine.MaxDirectivesPerIteration
	}
	if c.Engine.CacheCapacity > 0 {
		out.CacheCapacity = c.Engine.CacheCapacity
	}
	out.GenerationRetries = c.Engine.GenerationRetries

	var err error
	if out.PerGovernorTimeout, err = parseDuration(c.Engine.PerGovernorTimeout, out.PerGovernorTimeout); err != nil {
		return out, fmt.Errorf("per_governor_timeout: %w", err)
	}
	if out.AggregatorOverhead, err = parseDuration(c.Engine.AggregatorOverhead, out.AggregatorOverhead); err != nil {
		return out, fmt.Errorf("aggregator_overhead: %w", err)
	}
	if out.GlobalTimeout, err = parseDuration(c.Engine.GlobalTimeout, out.GlobalTimeout); err != nil {
		return out, fmt.Errorf("global_timeout: %w", err)
	}
	return out, nil
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
