// Package explain projects a run's iteration history into a
// human-readable trace. Purely derived: it reads the history and
// allocates no new state.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"codewarden/internal/engine"
	"codewarden/internal/governor"
)

// Render produces a markdown trace of the run: which governors failed,
// which directives were issued, and when compliance crossed the
// threshold.
func Render(res *engine.RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Run %s\n\n", res.RunID)
	switch res.State {
	case engine.StateAccepted:
		fmt.Fprintf(&b, "**Terminal state:** ACCEPTED after %d iteration(s)\n\n", len(res.History))
	default:
		fmt.Fprintf(&b, "**Terminal state:** FAILED (%s) after %d iteration(s)\n\n", res.Reason, len(res.History))
	}

	for _, rec := range res.History {
		fmt.Fprintf(&b, "## Iteration %d\n\n", rec.Index)
		fmt.Fprintf(&b, "- artifact: `%s`\n", shortFingerprint(string(rec.Record.Fingerprint)))
		fmt.Fprintf(&b, "- score: %.3f, passed: %v\n", rec.Record.Score, rec.Record.Passed)

		if len(rec.DirectivesApplied) > 0 {
			fmt.Fprintf(&b, "- directives applied before this candidate: %d\n", len(rec.DirectivesApplied))
			for _, d := range rec.DirectivesApplied {
				for _, ref := range d.Refs {
					note := ""
					if d.Repeat {
						note = " (repeat, escalated)"
					}
					fmt.Fprintf(&b, "  - %s:%s%s\n", ref.GovernorID, ref.RuleID, note)
				}
			}
		}

		b.WriteString(renderGovernors(rec))
		if rec.Record.Passed {
			b.WriteString("Compliance crossed the threshold here.\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderGovernors lists each governor's outcome for one iteration,
// sorted by name for a stable trace.
func renderGovernors(rec *engine.IterationRecord) string {
	names := make([]string, 0, len(rec.Record.Results))
	for name := range rec.Record.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("\n| Governor | Status | Violations |\n|---|---|---|\n")
	for _, name := range names {
		r := rec.Record.Results[name]
		fmt.Fprintf(&b, "| %s | %s | %s |\n", name, r.Status, summarizeViolations(r.Violations))
	}
	b.WriteString("\n")
	return b.String()
}

func summarizeViolations(violations []governor.Violation) string {
	if len(violations) == 0 {
		return "none"
	}
	counts := make(map[governor.Severity]int)
	for _, v := range violations {
		counts[v.Severity]++
	}
	var parts []string
	for _, sev := range []governor.Severity{governor.SeverityBlocking, governor.SeverityError, governor.SeverityWarning, governor.SeverityInfo} {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}
	return strings.Join(parts, ", ")
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
