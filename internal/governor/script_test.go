package governor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"codewarden/internal/artifact"
)

const testScript = `
import (
	"encoding/json"
	"strings"
)

func Check(source string) (string, error) {
	type finding struct {
		RuleID   string ` + "`json:\"rule_id\"`" + `
		Severity string ` + "`json:\"severity\"`" + `
		Line     int    ` + "`json:\"line\"`" + `
		Message  string ` + "`json:\"message\"`" + `
	}
	var findings []finding
	for i, line := range strings.Split(source, "\n") {
		if strings.Contains(line, "init()") {
			findings = append(findings, finding{
				RuleID:   "script/no-init",
				Severity: "error",
				Line:     i + 1,
				Message:  "init functions are forbidden",
			})
		}
	}
	out, err := json.Marshal(findings)
	return string(out), err
}
`

func TestScriptGovernorReportsFindings(t *testing.T) {
	g, err := NewScriptGovernor("house-rules", 1.0, testScript, nil)
	require.NoError(t, err)

	res, err := g.Verify(context.Background(), artifact.New("package main\nfunc init() {}\n"))
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	require.Equal(t, "script/no-init", res.Violations[0].RuleID)
	require.Equal(t, SeverityError, res.Violations[0].Severity)
	require.Equal(t, 2, res.Violations[0].Span.StartLine)
}

func TestScriptGovernorCleanOutput(t *testing.T) {
	g, err := NewScriptGovernor("house-rules", 1.0, testScript, nil)
	require.NoError(t, err)

	res, err := g.Verify(context.Background(), artifact.New("package main\n"))
	require.NoError(t, err)
	require.Empty(t, res.Violations)
}

func TestScriptGovernorRejectsUnsafeImports(t *testing.T) {
	unsafe := `
import "os/exec"

func Check(source string) (string, error) { return "[]", nil }
`
	_, err := NewScriptGovernor("bad", 1.0, unsafe, nil)
	require.Error(t, err)
}

func TestScriptGovernorMissingCheck(t *testing.T) {
	g, err := NewScriptGovernor("empty", 1.0, `func Other() {}`, nil)
	require.NoError(t, err)

	_, err = g.Verify(context.Background(), artifact.New("x"))
	require.Error(t, err)
}
