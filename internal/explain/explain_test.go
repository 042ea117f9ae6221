package explain

import (
	"strings"
	"testing"

	"codewarden/internal/aggregate"
	"codewarden/internal/artifact"
	"codewarden/internal/correction"
	"codewarden/internal/engine"
	"codewarden/internal/governor"
)

func sampleResult() *engine.RunResult {
	art := artifact.New("package main\n")
	failing := &aggregate.ComplianceRecord{
		Fingerprint: art.Fingerprint(),
		Results: map[string]*governor.VerificationResult{
			"security": {
				GovernorID:  "security",
				Fingerprint: art.Fingerprint(),
				Status:      governor.StatusOK,
				Violations: []governor.Violation{
					{GovernorID: "security", Severity: governor.SeverityBlocking, RuleID: "sec/exec", Message: "spawns processes"},
				},
			},
		},
		Score:  0.0,
		Passed: false,
	}
	passing := &aggregate.ComplianceRecord{
		Fingerprint: art.Fingerprint(),
		Results: map[string]*governor.VerificationResult{
			"security": {GovernorID: "security", Fingerprint: art.Fingerprint(), Status: governor.StatusOK},
		},
		Score:  1.0,
		Passed: true,
	}

	return &engine.RunResult{
		RunID: "run-123",
		State: engine.StateAccepted,
		History: []*engine.IterationRecord{
			{Index: 0, Artifact: art, Record: failing},
			{Index: 1, Artifact: art, Record: passing, DirectivesApplied: []correction.Directive{
				{Refs: []correction.ViolationRef{{GovernorID: "security", RuleID: "sec/exec"}}, Repeat: true},
			}},
		},
		FinalRecord:   passing,
		FinalArtifact: art,
	}
}

func TestRenderTrace(t *testing.T) {
	out := Render(sampleResult())

	for _, want := range []string{
		"# Run run-123",
		"ACCEPTED after 2 iteration(s)",
		"## Iteration 0",
		"1 blocking",
		"security:sec/exec (repeat, escalated)",
		"Compliance crossed the threshold here.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("trace missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFailedRun(t *testing.T) {
	res := sampleResult()
	res.State = engine.StateFailed
	res.Reason = engine.ReasonStalled

	out := Render(res)
	if !strings.Contains(out, "FAILED (stalled)") {
		t.Fatalf("trace missing failure reason:\n%s", out)
	}
}
