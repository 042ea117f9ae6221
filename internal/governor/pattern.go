package governor

import (
	"context"
	"strings"
	"time"

	"codewarden/internal/artifact"
)

// PatternRule matches a case-insensitive substring per line.
type PatternRule struct {
	RuleID   string
	Severity Severity
	Needle   string
	Message  string
}

// DefaultStyleRules flags the common corner-cutting patterns in
// generated code: placeholders, mock implementations, incomplete bodies.
func DefaultStyleRules() []PatternRule {
	return []PatternRule{
		{RuleID: "style/todo", Severity: SeverityWarning, Needle: "todo", Message: "contains TODO/placeholder comment"},
		{RuleID: "style/fixme", Severity: SeverityWarning, Needle: "fixme", Message: "contains FIXME comment"},
		{RuleID: "style/mock", Severity: SeverityError, Needle: "mock", Message: "contains mock implementation"},
		{RuleID: "style/stub", Severity: SeverityError, Needle: "stub", Message: "contains stub/placeholder code"},
		{RuleID: "style/not-implemented", Severity: SeverityError, Needle: "not implemented", Message: "contains unimplemented code path"},
	}
}

// PatternGovernor scans artifact lines for rule patterns. It is the
// simplest governor kind and the reference for the contract: pure,
// deterministic, context-aware.
type PatternGovernor struct {
	name   string
	weight float64
	rules  []PatternRule
}

// NewPatternGovernor creates a pattern governor with the given rules.
func NewPatternGovernor(name string, weight float64, rules []PatternRule) *PatternGovernor {
	return &PatternGovernor{name: name, weight: weight, rules: rules}
}

func (g *PatternGovernor) Name() string    { return g.name }
func (g *PatternGovernor) Weight() float64 { return g.weight }

// BlockingRuleIDs lists rules configured at blocking severity.
func (g *PatternGovernor) BlockingRuleIDs() []string {
	var ids []string
	for _, r := range g.rules {
		if r.Severity == SeverityBlocking {
			ids = append(ids, r.RuleID)
		}
	}
	return ids
}

// Verify scans each line against each rule.
func (g *PatternGovernor) Verify(ctx context.Context, art *artifact.Artifact) (*VerificationResult, error) {
	start := time.Now()
	var violations []Violation

	lines := strings.Split(art.Text(), "\n")
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lower := strings.ToLower(line)
		for _, rule := range g.rules {
			if strings.Contains(lower, rule.Needle) {
				violations = append(violations, Violation{
					GovernorID: g.name,
					Severity:   rule.Severity,
					Span:       &Span{StartLine: i + 1, EndLine: i + 1},
					Message:    rule.Message,
					RuleID:     rule.RuleID,
				})
			}
		}
	}

	return &VerificationResult{
		GovernorID:  g.name,
		Fingerprint: art.Fingerprint(),
		Violations:  violations,
		Duration:    time.Since(start),
		Status:      StatusOK,
	}, nil
}
