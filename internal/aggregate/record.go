// Package aggregate runs all registered governors against one artifact
// concurrently and merges their results into a single compliance record.
package aggregate

import (
	"sort"

	"codewarden/internal/artifact"
	"codewarden/internal/governor"
)

// ComplianceRecord is the merged judgment over one artifact.
// Derived, recomputed each iteration, never mutated after construction.
type ComplianceRecord struct {
	Fingerprint artifact.Fingerprint                      `json:"artifact_fingerprint"`
	Results     map[string]*governor.VerificationResult   `json:"per_governor_results"`
	Score       float64                                   `json:"score"`
	Passed      bool                                      `json:"passed"`
}

// HasBlocking reports whether any governor reported a blocking violation.
func (r *ComplianceRecord) HasBlocking() bool {
	for _, res := range r.Results {
		if res.HasBlocking() {
			return true
		}
	}
	return false
}

// Violations returns all violations across governors, ordered by
// governor name then rule ID so callers see a stable sequence.
func (r *ComplianceRecord) Violations() []governor.Violation {
	names := make([]string, 0, len(r.Results))
	for name := range r.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []governor.Violation
	for _, name := range names {
		vs := append([]governor.Violation(nil), r.Results[name].Violations...)
		sort.Slice(vs, func(i, j int) bool { return vs[i].RuleID < vs[j].RuleID })
		out = append(out, vs...)
	}
	return out
}

// RuleIDSet returns the sorted, de-duplicated set of
// "governor/rule_id" keys present in the record. Two records with equal
// score and equal rule-ID sets indicate a stalled run.
func (r *ComplianceRecord) RuleIDSet() []string {
	seen := make(map[string]struct{})
	for name, res := range r.Results {
		for _, v := range res.Violations {
			seen[name+":"+v.RuleID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
