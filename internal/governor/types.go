// Package governor defines the pluggable verification unit contract and
// the built-in governor kinds. The engine treats every governor
// identically: it never branches on governor type, only on the declared
// metadata (name, weight, blocking rule IDs).
package governor

import (
	"time"

	"codewarden/internal/artifact"
)

// Severity classifies how serious a violation is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityBlocking Severity = "blocking"
)

// Rank orders severities for directive prioritization. Higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityBlocking:
		return 3
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Span locates a violation within an artifact. Lines are 1-based.
type Span struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Violation is a single finding produced by one governor over one artifact.
// Immutable once constructed.
type Violation struct {
	GovernorID string   `json:"governor_id"`
	Severity   Severity `json:"severity"`
	Span       *Span    `json:"span,omitempty"`
	Message    string   `json:"message"`
	RuleID     string   `json:"rule_id"`
}

// Status reports how a verification pass ended.
type Status string

const (
	StatusOK      Status = "ok"
	StatusTimeout Status = "timeout"
	StatusCrashed Status = "crashed"
)

// VerificationResult is the outcome of one (governor, artifact) pass.
type VerificationResult struct {
	GovernorID  string               `json:"governor_id"`
	Fingerprint artifact.Fingerprint `json:"artifact_fingerprint"`
	Violations  []Violation          `json:"violations"`
	Duration    time.Duration        `json:"duration"`
	Status      Status               `json:"status"`
}

// HasBlocking reports whether any violation is blocking.
func (r *VerificationResult) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}

// Clean reports whether this pass counts toward the compliance score:
// status ok and no error or blocking violations. Timeout and crashed
// results are never clean (fail-closed).
func (r *VerificationResult) Clean() bool {
	if r.Status != StatusOK {
		return false
	}
	for _, v := range r.Violations {
		if v.Severity == SeverityError || v.Severity == SeverityBlocking {
			return false
		}
	}
	return true
}

// WarningCount counts warning-severity violations.
func (r *VerificationResult) WarningCount() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == SeverityWarning {
			n++
		}
	}
	return n
}
