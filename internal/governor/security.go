package governor

import (
	"context"
	"regexp"
	"strings"
	"time"

	"codewarden/internal/artifact"
)

// SecurityRule matches a compiled regex per line.
type SecurityRule struct {
	RuleID   string
	Severity Severity
	Pattern  *regexp.Regexp
	Message  string
}

// DefaultSecurityRules blocks the patterns that must never ship
// regardless of how well the rest of the artifact scores.
func DefaultSecurityRules() []SecurityRule {
	return []SecurityRule{
		{
			RuleID:   "sec/exec",
			Severity: SeverityBlocking,
			Pattern:  regexp.MustCompile(`\bos/exec\b|\bexec\.Command\b`),
			Message:  "spawns external processes",
		},
		{
			RuleID:   "sec/unsafe",
			Severity: SeverityBlocking,
			Pattern:  regexp.MustCompile(`\bunsafe\.Pointer\b`),
			Message:  "uses unsafe pointer arithmetic",
		},
		{
			RuleID:   "sec/hardcoded-credential",
			Severity: SeverityBlocking,
			Pattern:  regexp.MustCompile(`(?i)(password|api_key|secret)\s*[:=]{1,2}\s*"[^"]+"`),
			Message:  "hardcodes a credential",
		},
		{
			RuleID:   "sec/insecure-transport",
			Severity: SeverityWarning,
			Pattern:  regexp.MustCompile(`http://[a-zA-Z0-9]`),
			Message:  "uses plaintext HTTP transport",
		},
	}
}

// SecurityGovernor flags dangerous constructs in generated code.
type SecurityGovernor struct {
	name   string
	weight float64
	rules  []SecurityRule
}

// NewSecurityGovernor creates a security governor with the given rules.
func NewSecurityGovernor(name string, weight float64, rules []SecurityRule) *SecurityGovernor {
	return &SecurityGovernor{name: name, weight: weight, rules: rules}
}

func (g *SecurityGovernor) Name() string    { return g.name }
func (g *SecurityGovernor) Weight() float64 { return g.weight }

func (g *SecurityGovernor) BlockingRuleIDs() []string {
	var ids []string
	for _, r := range g.rules {
		if r.Severity == SeverityBlocking {
			ids = append(ids, r.RuleID)
		}
	}
	return ids
}

func (g *SecurityGovernor) Verify(ctx context.Context, art *artifact.Artifact) (*VerificationResult, error) {
	start := time.Now()
	var violations []Violation

	lines := strings.Split(art.Text(), "\n")
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, rule := range g.rules {
			if rule.Pattern.MatchString(line) {
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
