package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/config"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

// runCLI executes the CLI against an isolated config, log and history
func runCLI(t *testing.T, dir string, stdin string, args ...string) cliResult {
	t.Helper()
	t.Setenv(config.EnvLogLevel, "none")
	t.Setenv(config.EnvHistoryPath, filepath.Join(dir, "history.db"))
	t.Setenv(config.EnvUnaryPlus, "")
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", filepath.Join(dir, "config.json")}, args...)
	code := execute(full, strings.NewReader(stdin), &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestCalculateArgs(t *testing.T) {
	dir := t.TempDir()

	res := runCLI(t, dir, "", "2", "+", "3", "*", "4")
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "14\n", res.stdout)

	res = runCLI(t, dir, "", "--", "-(2 + 3)")
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "-5\n", res.stdout)

	res = runCLI(t, dir, "", "--precision", "2", "1/3")
	assert.Equal(t, "0.33\n", res.stdout)
}

func TestCalculateExitCodes(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		expr string
		code int
		msg  string
	}{
		{"2 & 3", exitLexical, "lexical error: invalid character '&' at position 2"},
		{"(2 + 3", exitSyntax, "syntax error: unbalanced parentheses"},
		{"10 / 0", exitEvaluation, "evaluation error: division by zero"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res := runCLI(t, dir, "", tt.expr)
			assert.Equal(t, tt.code, res.code)
			assert.Empty(t, res.stdout)
			assert.Contains(t, res.stderr, tt.msg)
		})
	}
}

func TestUnaryPlusFlag(t *testing.T) {
	dir := t.TempDir()

	res := runCLI(t, dir, "", "5-+3")
	assert.Equal(t, exitLexical, res.code)

	res = runCLI(t, dir, "", "--unary-plus", "5-+3")
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "2\n", res.stdout)
}

func TestConfigFileApplies(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnaryPlus = true
	cfg.Precision = 1
	cfg.LogPath = filepath.Join(dir, "exprcalc.log")
	require.NoError(t, cfg.Save(filepath.Join(dir, "config.json")))

	res := runCLI(t, dir, "", "+7 / 2")
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "3.5\n", res.stdout)
}

func TestLineModeFromStdin(t *testing.T) {
	dir := t.TempDir()

	res := runCLI(t, dir, "1 + 1\n2 * (3 + 4)\n1 / 0\n")
	assert.Equal(t, exitOK, res.code, res.stderr)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "2", lines[0])
	assert.Equal(t, "14", lines[1])
	assert.Contains(t, res.stdout, "evaluation error: division by zero")
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()

	runCLI(t, dir, "", "6 * 7")
	runCLI(t, dir, "", "1 / 0")

	res := runCLI(t, dir, "", "history")
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "6 * 7 = 42")
	assert.Contains(t, res.stdout, "evaluation: division by zero")
	assert.Less(t, strings.Index(res.stdout, "6 * 7"), strings.Index(res.stdout, "1 / 0"), "oldest first")

	res = runCLI(t, dir, "", "history", "--stats")
	assert.Contains(t, res.stdout, "total 2, ok 1")

	res = runCLI(t, dir, "", "history", "--expression", "6*7")
	assert.Contains(t, res.stdout, "6 * 7")
	assert.NotContains(t, res.stdout, "1 / 0")

	res = runCLI(t, dir, "", "history", "--clear")
	assert.Contains(t, res.stdout, "History cleared.")

	res = runCLI(t, dir, "", "history")
	assert.Empty(t, res.stdout)

	res = runCLI(t, dir, "", "history", "--limit", "0")
	assert.Equal(t, exitFailure, res.code)
}

func TestNoHistory(t *testing.T) {
	dir := t.TempDir()

	runCLI(t, dir, "", "--no-history", "1 + 1")
	_, err := os.Stat(filepath.Join(dir, "history.db"))
	assert.True(t, os.IsNotExist(err))

	res := runCLI(t, dir, "", "--no-history", "history")
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stderr, "history is disabled")
}

func TestSuiteCommands(t *testing.T) {
	dir := t.TempDir()

	res := runCLI(t, dir, "", "suite", "list")
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "builtin")
	assert.Contains(t, res.stdout, "functional")

	res = runCLI(t, dir, "", "suite", "run")
	assert.Equal(t, exitOK, res.code, res.stdout+res.stderr)
	assert.Contains(t, res.stdout, "PASS")
	assert.Contains(t, res.stdout, "builtin")

	res = runCLI(t, dir, "", "suite", "run", "--all", "--report")
	assert.Equal(t, exitOK, res.code, res.stdout+res.stderr)
	assert.Contains(t, res.stdout, "All cases passed")
}

func TestSuiteRunFailures(t *testing.T) {
	dir := t.TempDir()
	suiteDir := filepath.Join(dir, "suites")
	require.NoError(t, os.MkdirAll(suiteDir, 0755))
	data := `{"id": "broken", "cases": [{"id": "wrong", "expression": "1+1", "expect": 3}]}`
	require.NoError(t, os.WriteFile(filepath.Join(suiteDir, "broken.json"), []byte(data), 0644))

	res := runCLI(t, dir, "", "suite", "run", "--dir", suiteDir, "broken")
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stdout, "FAIL")
	assert.Contains(t, res.stdout, "wrong")

	res = runCLI(t, dir, "", "suite", "run", "missing")
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stderr, "suite not found")
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, exitOK, exitCodeFor(nil))
	assert.Equal(t, exitFailure, exitCodeFor(errors.New("other")))

	_, err := calc.Calculate("1 / 0")
	assert.Equal(t, exitEvaluation, exitCodeFor(err))
}
