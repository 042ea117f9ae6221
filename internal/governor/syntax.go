package governor

import (
	"context"
	"fmt"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"codewarden/internal/artifact"
)

// Rule IDs reported by the syntax governor.
const (
	RuleSyntaxError   = "syntax/parse-error"
	RuleSyntaxMissing = "syntax/missing-node"
)

// SyntaxGovernor parses the artifact with tree-sitter and reports
// ERROR and MISSING nodes as blocking violations. Code that does not
// parse can never be accepted, so both rules are blocking.
type SyntaxGovernor struct {
	name   string
	weight float64
}

// NewSyntaxGovernor creates a Go syntax governor.
func NewSyntaxGovernor(name string, weight float64) *SyntaxGovernor {
	return &SyntaxGovernor{name: name, weight: weight}
}

func (g *SyntaxGovernor) Name() string    { return g.name }
func (g *SyntaxGovernor) Weight() float64 { return g.weight }

func (g *SyntaxGovernor) BlockingRuleIDs() []string {
	return []string{RuleSyntaxError, RuleSyntaxMissing}
}

func (g *SyntaxGovernor) Verify(ctx context.Context, art *artifact.Artifact) (*VerificationResult, error) {
	start := time.Now()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, []byte(art.Text()))
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	var violations []Violation
	if root := tree.RootNode(); root.HasError() {
		violations = g.collectErrors(root, violations)
	}

	return &VerificationResult{
		GovernorID:  g.name,
		Fingerprint: art.Fingerprint(),
		Violations:  violations,
		Duration:    time.Since(start),
		Status:      StatusOK,
	}, nil
}

// collectErrors walks the tree and records ERROR/MISSING nodes.
// Subtrees without errors are skipped to keep the walk cheap.
func (g *SyntaxGovernor) collectErrors(node *sitter.Node, violations []Violation) []Violation {
	if !node.HasError() && !node.IsMissing() {
		return violations
	}

	switch {
	case node.Type() == "ERROR":
		violations = append(violations, Violation{
			GovernorID: g.name,
			Severity:   SeverityBlocking,
			Span:       spanOf(node),
			Message:    "unparseable syntax",
			RuleID:     RuleSyntaxError,
		})
		return violations
	case node.IsMissing():
		violations = append(violations, Violation{
			GovernorID: g.name,
			Severity:   SeverityBlocking,
			Span:       spanOf(node),
			Message:    fmt.Sprintf("missing %s", node.Type()),
			RuleID:     RuleSyntaxMissing,
		})
		return violations
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		violations = g.collectErrors(node.Child(i), violations)
	}
	return violations
}

func spanOf(node *sitter.Node) *Span {
	return &Span{
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}
}
