package governor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"codewarden/internal/artifact"
)

// scriptAllowedImports whitelists the stdlib packages a rule script may
// use. Filesystem, network and process access are deliberately absent:
// a governor must be pure with respect to engine state.
var scriptAllowedImports = map[string]bool{
	"strings":       true,
	"strconv":       true,
	"fmt":           true,
	"math":          true,
	"regexp":        true,
	"encoding/json": true,
	"sort":          true,
	"bytes":         true,
	"unicode":       true,
}

var scriptImportRegex = regexp.MustCompile(`(?m)^\s*(?:import\s+)?"([^"]+)"`)

// scriptFinding is the JSON shape a rule script reports.
type scriptFinding struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// ScriptGovernor runs a user-supplied Go rule script in a sandboxed
// yaegi interpreter. The script must define
//
//	func Check(source string) (string, error)
//
// returning a JSON array of findings. This is the plugin mechanism:
// new governors load from plain .go files with no recompilation.
type ScriptGovernor struct {
	name     string
	weight   float64
	code     string
	blocking []string
}

// NewScriptGovernor creates a governor from rule script source.
func NewScriptGovernor(name string, weight float64, code string, blocking []string) (*ScriptGovernor, error) {
	if err := validateScriptImports(code); err != nil {
		return nil, fmt.Errorf("invalid rule script: %w", err)
	}
	return &ScriptGovernor{name: name, weight: weight, code: code, blocking: blocking}, nil
}

// LoadScriptGovernor reads a rule script from disk.
func LoadScriptGovernor(name string, weight float64, path string, blocking []string) (*ScriptGovernor, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule script %s: %w", path, err)
	}
	return NewScriptGovernor(name, weight, string(code), blocking)
}

func (g *ScriptGovernor) Name() string              { return g.name }
func (g *ScriptGovernor) Weight() float64           { return g.weight }
func (g *ScriptGovernor) BlockingRuleIDs() []string { return g.blocking }

func (g *ScriptGovernor) Verify(ctx context.Context, art *artifact.Artifact) (*VerificationResult, error) {
	start := time.Now()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib symbols: %w", err)
	}

	if _, err := i.Eval(wrapScript(g.code)); err != nil {
		return nil, fmt.Errorf("rule script evaluation failed: %w", err)
	}

	checkVal, err := i.Eval("main.Check")
	if err != nil {
		return nil, fmt.Errorf("rule script has no Check function: %w", err)
	}
	check, ok := checkVal.Interface().(func(string) (string, error))
	if !ok {
		return nil, fmt.Errorf("Check has wrong signature (want func(string) (string, error))")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := check(art.Text())
	if err != nil {
		return nil, fmt.Errorf("rule script Check failed: %w", err)
	}

	var findings []scriptFinding
	if raw = strings.TrimSpace(raw); raw != "" {
		if err := json.Unmarshal([]byte(raw), &findings); err != nil {
			return nil, fmt.Errorf("rule script returned invalid findings JSON: %w", err)
		}
	}

	violations := make([]Violation, 0, len(findings))
	for _, f := range findings {
		v := Violation{
			GovernorID: g.name,
			Severity:   Severity(f.Severity),
			Message:    f.Message,
			RuleID:     f.RuleID,
		}
		if f.Line > 0 {
			v.Span = &Span{StartLine: f.Line, EndLine: f.Line}
		}
		violations = append(violations, v)
	}

	return &VerificationResult{
		GovernorID:  g.name,
		Fingerprint: art.Fingerprint(),
		Violations:  violations,
		Duration:    time.Since(start),
		Status:      StatusOK,
	}, nil
}

// validateScriptImports rejects scripts importing outside the whitelist.
func validateScriptImports(code string) error {
	for _, match := range scriptImportRegex.FindAllStringSubmatch(code, -1) {
		pkg := match[1]
		if !scriptAllowedImports[pkg] {
			return fmt.Errorf("import %q not allowed in rule scripts", pkg)
		}
	}
	return nil
}

// wrapScript ensures the script has a package clause.
func wrapScript(code string) string {
	if strings.Contains(code, "package ") {
		return code
	}
	return "package main\n\n" + code
}
