package governor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"codewarden/internal/artifact"
)

// violationPredicate is the predicate a datalog policy derives to
// report a finding: violation(RuleID, Severity, LineNo, Message).
const violationPredicate = "violation"

// DatalogGovernor evaluates a Mangle (Datalog) policy against the
// artifact. The artifact is asserted as source_line(LineNo, Text) facts;
// any derived violation/4 fact becomes a Violation. The policy author
// chooses the rule language's expressiveness, the engine only sees the
// uniform result.
type DatalogGovernor struct {
	name     string
	weight   float64
	policy   string
	blocking []string
}

// DefaultArchitectureDecls declares the predicates available to policies.
func DefaultArchitectureDecls() string {
	return `Decl source_line(LineNo, Text).
Decl violation(RuleID, Severity, LineNo, Message).
`
}

// NewDatalogGovernor creates a governor evaluating the given policy.
// The policy must include rules deriving violation/4; blocking lists
// the rule IDs the policy reports at blocking severity.
func NewDatalogGovernor(name string, weight float64, policy string, blocking []string) *DatalogGovernor {
	return &DatalogGovernor{name: name, weight: weight, policy: policy, blocking: blocking}
}

func (g *DatalogGovernor) Name() string              { return g.name }
func (g *DatalogGovernor) Weight() float64           { return g.weight }
func (g *DatalogGovernor) BlockingRuleIDs() []string { return g.blocking }

func (g *DatalogGovernor) Verify(ctx context.Context, art *artifact.Artifact) (*VerificationResult, error) {
	start := time.Now()

	// Construct the complete program: decls, artifact facts (EDB),
	// then policy rules (IDB).
	var sb strings.Builder
	sb.WriteString(DefaultArchitectureDecls())
	for i, line := range strings.Split(art.Text(), "\n") {
		fmt.Fprintf(&sb, "source_line(%d, %q).\n", i+1, line)
	}
	sb.WriteString(g.policy)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := parse.Unit(strings.NewReader(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy program: %w", err)
	}

	programInfo, err := analysis.AnalyzeOneUnit(parsed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze policy program: %w", err)
	}

	strata, predToStratum, err := analysis.Stratify(analysis.Program{
		EdbPredicates: programInfo.EdbPredicates,
		IdbPredicates: programInfo.IdbPredicates,
		Rules:         programInfo.Rules,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy program: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	if _, err := engine.EvalStratifiedProgramWithStats(programInfo, strata, predToStratum, store); err != nil {
		return nil, fmt.Errorf("failed to evaluate policy program: %w", err)
	}

	violations := g.collectViolations(programInfo, store)

	return &VerificationResult{
		GovernorID:  g.name,
		Fingerprint: art.Fingerprint(),
		Violations:  violations,
		Duration:    time.Since(start),
		Status:      StatusOK,
	}, nil
}

// collectViolations reads derived violation/4 facts out of the store.
func (g *DatalogGovernor) collectViolations(info *analysis.ProgramInfo, store factstore.FactStore) []Violation {
	var violations []Violation

	for pred := range info.Decls {
		if pred.Symbol != violationPredicate {
			continue
		}
		store.GetFacts(ast.NewQuery(pred), func(a ast.Atom) error {
			if len(a.Args) != 4 {
				return nil
			}
			v := Violation{
				GovernorID: g.name,
				RuleID:     termString(a.Args[0]),
				Severity:   Severity(strings.TrimPrefix(termString(a.Args[1]), "/")),
				Message:    termString(a.Args[3]),
			}
			if line, ok := termNumber(a.Args[2]); ok && line > 0 {
				v.Span = &Span{StartLine: int(line), EndLine: int(line)}
			}
			violations = append(violations, v)
			return nil
		})
		break
	}
	return violations
}

func termString(term ast.BaseTerm) string {
	if c, ok := term.(ast.Constant); ok {
		return c.Symbol
	}
	return fmt.Sprintf("%v", term)
}

func termNumber(term ast.BaseTerm) (int64, bool) {
	if c, ok := term.(ast.Constant); ok && c.Type == ast.NumberType {
		return c.NumValue, true
	}
	return 0, false
}
