package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"codewarden/internal/artifact"
	"codewarden/internal/cache"
	"codewarden/internal/governor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubGovernor is a scriptable governor for aggregator tests.
type stubGovernor struct {
	name       string
	weight     float64
	violations []governor.Violation
	delay      time.Duration
	panics     bool
}

func (s *stubGovernor) Name() string              { return s.name }
func (s *stubGovernor) Weight() float64           { return s.weight }
func (s *stubGovernor) BlockingRuleIDs() []string { return nil }

func (s *stubGovernor) Verify(ctx context.Context, art *artifact.Artifact) (*governor.VerificationResult, error) {
	if s.panics {
		panic("governor exploded")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &governor.VerificationResult{
		GovernorID:  s.name,
		Fingerprint: art.Fingerprint(),
		Violations:  s.violations,
		Status:      governor.StatusOK,
	}, nil
}

func registryOf(t *testing.T, govs ...governor.Governor) *governor.Registry {
	t.Helper()
	r := governor.NewRegistry()
	for _, g := range govs {
		if err := r.Register(g); err != nil {
			t.Fatalf("Register(%s): %v", g.Name(), err)
		}
	}
	return r
}

func fastPolicy() Policy {
	p := DefaultPolicy()
	p.PerGovernorTimeout = 100 * time.Millisecond
	p.Overhead = 50 * time.Millisecond
	return p
}

func TestVerifyCleanSingleGovernor(t *testing.T) {
	// Scenario: one governor, weight 1, zero violations.
	a := New(registryOf(t, &stubGovernor{name: "only", weight: 1}), nil, fastPolicy())

	rec, err := a.Verify(context.Background(), artifact.New("clean"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rec.Score != 1.0 {
		t.Fatalf("Score = %v, want 1.0", rec.Score)
	}
	if !rec.Passed {
		t.Fatal("Passed = false, want true")
	}
}

func TestVerifyBlockingGateBeatsScore(t *testing.T) {
	// Scenario: one governor blocks, the other is clean and heavily
	// weighted. Score clears the threshold; Passed must still be false.
	blocker := &stubGovernor{name: "security", weight: 0.5, violations: []governor.Violation{
		{GovernorID: "security", Severity: governor.SeverityBlocking, RuleID: "sec/exec", Message: "spawns processes"},
	}}
	clean := &stubGovernor{name: "style", weight: 9.5}

	a := New(registryOf(t, blocker, clean), nil, fastPolicy())
	rec, err := a.Verify(context.Background(), artifact.New("code"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rec.Score < 0.9 {
		t.Fatalf("Score = %v, want >= 0.9 for this scenario", rec.Score)
	}
	if rec.Passed {
		t.Fatal("Passed = true despite blocking violation")
	}
	if !rec.HasBlocking() {
		t.Fatal("HasBlocking = false")
	}
}

func TestVerifyTimeoutFailClosed(t *testing.T) {
	slow := &stubGovernor{name: "slow", weight: 1, delay: time.Second}
	fast := &stubGovernor{name: "fast", weight: 1}

	a := New(registryOf(t, slow, fast), nil, fastPolicy())
	rec, err := a.Verify(context.Background(), artifact.New("code"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if got := rec.Results["slow"].Status; got != governor.StatusTimeout {
		t.Fatalf("slow status = %s, want timeout", got)
	}
	if got := rec.Results["fast"].Status; got != governor.StatusOK {
		t.Fatalf("fast status = %s, want ok; slow governor blocked it", got)
	}
	// Half the weight is non-passing.
	if rec.Score != 0.5 {
		t.Fatalf("Score = %v, want 0.5", rec.Score)
	}
	if rec.Passed {
		t.Fatal("Passed = true with a timed-out governor")
	}
}

func TestVerifyCrashFailClosed(t *testing.T) {
	a := New(registryOf(t, &stubGovernor{name: "bomb", weight: 1, panics: true}), nil, fastPolicy())

	rec, err := a.Verify(context.Background(), artifact.New("code"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	res := rec.Results["bomb"]
	if res.Status != governor.StatusCrashed {
		t.Fatalf("status = %s, want crashed", res.Status)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("crashed result has violations: %#v", res.Violations)
	}
	if rec.Passed {
		t.Fatal("a run with only a crashed governor must not pass")
	}
}

func TestVerifyWarningPenalty(t *testing.T) {
	warned := &stubGovernor{name: "style", weight: 1, violations: []governor.Violation{
		{GovernorID: "style", Severity: governor.SeverityWarning, RuleID: "style/todo"},
		{GovernorID: "style", Severity: governor.SeverityWarning, RuleID: "style/fixme"},
	}}

	a := New(registryOf(t, warned), nil, fastPolicy())
	rec, err := a.Verify(context.Background(), artifact.New("code"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	// Warnings do not make a governor unclean, but each costs the penalty.
	want := 1.0 - 2*DefaultPolicy().WarningPenalty
	if rec.Score != want {
		t.Fatalf("Score = %v, want %v", rec.Score, want)
	}
}

func TestVerifyNoGovernors(t *testing.T) {
	a := New(governor.NewRegistry(), nil, fastPolicy())
	if _, err := a.Verify(context.Background(), artifact.New("code")); err == nil {
		t.Fatal("Verify with empty registry should error")
	}
}

func TestVerifyIdempotentWithWarmCache(t *testing.T) {
	vc := cache.NewVerificationCache(16)
	gov := &stubGovernor{name: "style", weight: 1, violations: []governor.Violation{
		{GovernorID: "style", Severity: governor.SeverityError, RuleID: "style/mock", Message: "mock"},
	}}
	a := New(registryOf(t, gov), vc, fastPolicy())
	art := artifact.New("same artifact")

	first, err := a.Verify(context.Background(), art)
	if err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	second, err := a.Verify(context.Background(), art)
	if err != nil {
		t.Fatalf("second Verify: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("warm-cache record differs (-first +second):\n%s", diff)
	}
	if stats := vc.Stats(); stats.Hits != 1 {
		t.Fatalf("cache stats = %+v, want 1 hit", stats)
	}
}

func TestRuleIDSetDeterministic(t *testing.T) {
	rec := &ComplianceRecord{
		Results: map[string]*governor.VerificationResult{
			"b": {Violations: []governor.Violation{{RuleID: "r2"}, {RuleID: "r1"}, {RuleID: "r1"}}},
			"a": {Violations: []governor.Violation{{RuleID: "r9"}}},
		},
	}
	got := rec.RuleIDSet()
	want := []string{"a:r9", "b:r1", "b:r2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("RuleIDSet mismatch:\n%s", diff)
	}
}
