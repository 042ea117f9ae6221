package governor

import (
	"context"
	"testing"

	"codewarden/internal/artifact"
)

func TestPatternGovernorClean(t *testing.T) {
	g := NewPatternGovernor("style", 1.0, DefaultStyleRules())
	art := artifact.New("package main\n\nfunc main() {}\n")

	res, err := g.Verify(context.Background(), art)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("clean artifact produced violations: %#v", res.Violations)
	}
	if res.Status != StatusOK {
		t.Fatalf("Status = %s, want ok", res.Status)
	}
	if res.Fingerprint != art.Fingerprint() {
		t.Fatal("result fingerprint does not match artifact")
	}
}

func TestPatternGovernorDetectsViolations(t *testing.T) {
	g := NewPatternGovernor("style", 1.0, DefaultStyleRules())
	art := artifact.New("// TODO: finish\nfunc MockClient() {}\npanic(\"not implemented\")\n")

	res, err := g.Verify(context.Background(), art)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}

	want := map[string]bool{
		"style/todo":            false,
		"style/mock":            false,
		"style/not-implemented": false,
	}
	for _, v := range res.Violations {
		if _, ok := want[v.RuleID]; ok {
			want[v.RuleID] = true
		}
		if v.Span == nil || v.Span.StartLine == 0 {
			t.Fatalf("violation %s missing span", v.RuleID)
		}
	}
	for rule, seen := range want {
		if !seen {
			t.Fatalf("missing violation %s in %#v", rule, res.Violations)
		}
	}
}

func TestPatternGovernorHonorsCancellation(t *testing.T) {
	g := NewPatternGovernor("style", 1.0, DefaultStyleRules())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Verify(ctx, artifact.New("x\n")); err == nil {
		t.Fatal("Verify with cancelled context should error")
	}
}

func TestSecurityGovernorBlockingGate(t *testing.T) {
	g := NewSecurityGovernor("security", 1.0, DefaultSecurityRules())
	art := artifact.New("cmd := exec.Command(\"rm\", \"-rf\")\npassword := \"hunter2\"\n")

	res, err := g.Verify(context.Background(), art)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking violations, got %#v", res.Violations)
	}

	ids := g.BlockingRuleIDs()
	if len(ids) == 0 {
		t.Fatal("security governor declares no blocking rules")
	}
}
