// Package correction turns a failing compliance record into a bounded,
// deterministic sequence of directives for the generation collaborator.
package correction

import (
	"fmt"
	"sort"
	"strings"

	"codewarden/internal/aggregate"
	"codewarden/internal/governor"
	"codewarden/internal/logging"
)

// ViolationRef identifies a violation class independent of location.
type ViolationRef struct {
	GovernorID string `json:"governor_id"`
	RuleID     string `json:"rule_id"`
}

// Directive is one correction instruction. Consumed exactly once by the
// generation call that produces the next artifact.
type Directive struct {
	Refs        []ViolationRef `json:"violation_refs"`
	Instruction string         `json:"instruction_text"`
	Priority    int            `json:"priority"`
	Repeat      bool           `json:"repeat"`
}

// Priority bands. Repeat escalation lifts a directive above everything
// issued at its natural band.
const (
	priorityInfo     = 0
	priorityWarning  = 1000
	priorityError    = 2000
	priorityBlocking = 3000
	priorityEscalate = 5000
)

// Synthesizer builds directives from compliance records.
type Synthesizer struct {
	registry      *governor.Registry
	maxDirectives int
}

// New creates a synthesizer. maxDirectives caps output per iteration to
// keep the generation prompt bounded.
func New(registry *governor.Registry, maxDirectives int) *Synthesizer {
	if maxDirectives <= 0 {
		maxDirectives = 5
	}
	return &Synthesizer{registry: registry, maxDirectives: maxDirectives}
}

// group is one (governor, rule) violation class with its instances.
type group struct {
	ref       ViolationRef
	severity  governor.Severity
	weight    float64
	instances []governor.Violation
}

// Synthesize produces the ordered directive sequence for one failing
// record. applied holds refs already addressed in prior iterations of
// this run; regressed holds refs that reappeared after being fixed.
// Applied refs are skipped unless regressed, in which case the
// directive is re-issued with escalated priority and a repeat note.
//
// Ordering is deterministic: blocking first, then descending governor
// weight, then rule ID lexical order.
func (s *Synthesizer) Synthesize(rec *aggregate.ComplianceRecord, applied, regressed map[ViolationRef]bool) []Directive {
	groups := s.collect(rec)

	sort.Slice(groups, func(i, j int) bool {
		gi, gj := groups[i], groups[j]
		iBlocking := gi.severity == governor.SeverityBlocking
		jBlocking := gj.severity == governor.SeverityBlocking
		if iBlocking != jBlocking {
			return iBlocking
		}
		if gi.weight != gj.weight {
			return gi.weight > gj.weight
		}
		if gi.ref.GovernorID != gj.ref.GovernorID {
			return gi.ref.GovernorID < gj.ref.GovernorID
		}
		return gi.ref.RuleID < gj.ref.RuleID
	})

	var directives []Directive
	for _, g := range groups {
		if len(directives) >= s.maxDirectives {
			break
		}
		repeat := regressed[g.ref]
		if applied[g.ref] && !repeat {
			continue
		}
		directives = append(directives, Directive{
			Refs:        []ViolationRef{g.ref},
			Instruction: instructionFor(g, repeat),
			Priority:    priorityFor(g.severity, repeat),
			Repeat:      repeat,
		})
	}

	logging.Get(logging.CategoryCorrection).Debug("synthesized %d directives for %s", len(directives), rec.Fingerprint)
	return directives
}

// collect groups the record's violations by (governor, rule).
func (s *Synthesizer) collect(rec *aggregate.ComplianceRecord) []group {
	byRef := make(map[ViolationRef]*group)
	for _, v := range rec.Violations() {
		ref := ViolationRef{GovernorID: v.GovernorID, RuleID: v.RuleID}
		g, ok := byRef[ref]
		if !ok {
			weight := 1.0
			if gov := s.registry.Get(v.GovernorID); gov != nil {
				weight = gov.Weight()
			}
			g = &group{ref: ref, severity: v.Severity, weight: weight}
			byRef[ref] = g
		}
		if v.Severity.Rank() > g.severity.Rank() {
			g.severity = v.Severity
		}
		g.instances = append(g.instances, v)
	}

	out := make([]group, 0, len(byRef))
	for _, g := range byRef {
		out = append(out, *g)
	}
	return out
}

func priorityFor(sev governor.Severity, repeat bool) int {
	p := priorityInfo
	switch sev {
	case governor.SeverityBlocking:
		p = priorityBlocking
	case governor.SeverityError:
		p = priorityError
	case governor.SeverityWarning:
		p = priorityWarning
	}
	if repeat {
		p += priorityEscalate
	}
	return p
}

// instructionFor renders one directive's instruction text.
func instructionFor(g group, repeat bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Fix Required: %s (%s, %s)\n", g.ref.RuleID, g.ref.GovernorID, g.severity)
	for _, v := range g.instances {
		if v.Span != nil {
			fmt.Fprintf(&b, "- line %d: %s\n", v.Span.StartLine, v.Message)
		} else {
			fmt.Fprintf(&b, "- %s\n", v.Message)
		}
	}
	if repeat {
		b.WriteString("\n## REPEAT VIOLATION\n")
		b.WriteString("This violation reappeared after an earlier correction. The previous fix regressed; address the root cause this time.\n")
	}
	return b.String()
}

// FormatContext assembles the directives into the generation context
// for the next iteration, most urgent first.
func FormatContext(directives []Directive) string {
	var b strings.Builder
	b.WriteString("## Previous Attempt Failed Verification\n")
	b.WriteString("Apply every correction below. Do not reintroduce fixed violations.\n\n")
	for _, d := range directives {
		b.WriteString(d.Instruction)
		b.WriteString("\n")
	}
	return b.String()
}
