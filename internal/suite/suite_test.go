package suite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/history"
)

func ptr(v float64) *float64 { return &v }

func TestBuiltinSuitesPass(t *testing.T) {
	suites, err := Builtin()
	require.NoError(t, err)
	require.Contains(t, suites, "builtin")
	require.Contains(t, suites, "functional")

	runner := NewRunner(nil, calc.Options{}, 4)
	for id, s := range suites {
		t.Run(id, func(t *testing.T) {
			assert.Equal(t, SourceBuiltin, s.Source)

			report, err := runner.Run(context.Background(), s)
			require.NoError(t, err)

			for _, f := range report.Failures() {
				t.Errorf("case %s (%q): expected %s, got %s %s", f.CaseID, f.Expression, f.Expected, f.Actual, f.Error)
			}
			assert.Equal(t, len(s.Cases), report.Stats.Total)
			assert.Equal(t, 1.0, report.Stats.PassRate)
			assert.Equal(t, history.RunCompleted, report.Run.Status)
		})
	}
}

func TestFunctionalSuiteCoverage(t *testing.T) {
	suites, err := Builtin()
	require.NoError(t, err)
	s := suites["functional"]
	require.NotNil(t, s)

	byExpr := make(map[string]Case, len(s.Cases))
	for _, c := range s.Cases {
		byExpr[c.Expression] = c
	}

	rejected := map[string]string{
		"hello":  "invalid_character",
		"5/2+":   "unexpected_token",
		"5/2*3/": "unexpected_token",
		"5*(2+3": "unbalanced_parentheses",
		"5//2":   "unexpected_token",
		"5**2":   "unexpected_token",
		"()":     "empty_expression",
	}
	for expr, kind := range rejected {
		c, ok := byExpr[expr]
		if assert.True(t, ok, "missing case for %q", expr) {
			assert.Equal(t, kind, c.ExpectError, expr)
		}
	}

	for _, expr := range []string{"5+2*3-4/2", "-(5+2)*-3", "-((2+3)*((2+3)*2))", "5-2/3*4+1", "-5*-2*3"} {
		assert.Contains(t, byExpr, expr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		suite Suite
		ok    bool
	}{
		{"valid value", Suite{ID: "s", Cases: []Case{{ID: "a", Expression: "1", Expect: ptr(1)}}}, true},
		{"valid error", Suite{ID: "s", Cases: []Case{{ID: "a", Expression: "1/0", ExpectError: "division_by_zero"}}}, true},
		{"valid class", Suite{ID: "s", Cases: []Case{{ID: "a", Expression: "(", ExpectError: "syntax"}}}, true},
		{"missing id", Suite{Cases: []Case{{ID: "a", Expect: ptr(1)}}}, false},
		{"no cases", Suite{ID: "s"}, false},
		{"no expectation", Suite{ID: "s", Cases: []Case{{ID: "a", Expression: "1"}}}, false},
		{"both expectations", Suite{ID: "s", Cases: []Case{{ID: "a", Expect: ptr(1), ExpectError: "overflow"}}}, false},
		{"unknown kind", Suite{ID: "s", Cases: []Case{{ID: "a", ExpectError: "kaboom"}}}, false},
		{"negative tolerance", Suite{ID: "s", Cases: []Case{{ID: "a", Expect: ptr(1), Tolerance: -1}}}, false},
		{"duplicate case", Suite{ID: "s", Cases: []Case{{ID: "a", Expect: ptr(1)}, {ID: "a", Expect: ptr(2)}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.suite.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestWithin(t *testing.T) {
	assert.True(t, Within(0.1+0.2, 0.3, 1e-9))
	assert.True(t, Within(1e-12, 0, 1e-9), "absolute near zero")
	assert.True(t, Within(2.0000000015e18, 2e18, 1e-6), "relative for large values")
	assert.False(t, Within(1.1, 1, 1e-9))
	assert.False(t, Within(-1, 1, 1e-9))
}

func TestParseFormats(t *testing.T) {
	js := `{"id": "j", "cases": [{"id": "a", "expression": "2*3", "expect": 6}]}`
	s, err := Parse("suite.json", []byte(js))
	require.NoError(t, err)
	assert.Equal(t, "j", s.ID)
	require.Len(t, s.Cases, 1)
	assert.Equal(t, 6.0, *s.Cases[0].Expect)

	y := "id: y\ncases:\n  - id: a\n    expression: \"1/0\"\n    expect_error: division_by_zero\n"
	s, err = Parse("suite.YML", []byte(y))
	require.NoError(t, err)
	assert.Equal(t, "y", s.ID)
	assert.Nil(t, s.Cases[0].Expect)
	assert.Equal(t, "division_by_zero", s.Cases[0].ExpectError)

	_, err = Parse("bad.json", []byte("{"))
	assert.Error(t, err)
}

func TestLoaderDirectory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	}

	write("extra/suite.json", `{"id": "extra", "cases": [{"id": "a", "expression": "1+1", "expect": 2}]}`)
	write("named.yaml", "cases:\n  - id: a\n    expression: \"3\"\n    expect: 3\n")
	write("broken.yaml", "cases: [")
	write("dup.json", `{"id": "builtin", "cases": [{"id": "a", "expression": "1", "expect": 1}]}`)
	write("notes.txt", "ignored")

	loader := NewLoader(dir)
	suites, err := loader.LoadAll()
	require.NoError(t, err)

	assert.Contains(t, suites, "extra")
	assert.Contains(t, suites, "named", "ID falls back to the file name")
	assert.Equal(t, SourceBuiltin, suites["builtin"].Source, "builtin is not shadowed")
	assert.Len(t, suites, 4)

	s, err := loader.Load("extra")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "extra", "suite.json"), s.Source)

	_, err = loader.Load("missing")
	assert.Error(t, err)

	list, err := loader.List()
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"builtin", "extra", "functional", "named"}, ids)
}

func TestLoaderMissingDirectory(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope")).LoadAll()
	assert.Error(t, err)

	suites, err := NewLoader("").LoadAll()
	require.NoError(t, err)
	assert.Len(t, suites, 2)
}

func TestRunnerStoresResults(t *testing.T) {
	db, err := history.Open(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	defer db.Close()

	s := &Suite{ID: "mixed", Cases: []Case{
		{ID: "ok", Expression: "2 + 2", Expect: ptr(4)},
		{ID: "wrong", Expression: "2 + 2", Expect: ptr(5)},
		{ID: "err-ok", Expression: "1 / 0", ExpectError: "evaluation"},
		{ID: "err-wrong", Expression: "1 / 1", ExpectError: "division_by_zero"},
		{ID: "err-instead", Expression: "1 &", Expect: ptr(1)},
	}}

	var mu sync.Mutex
	var seen []string
	runner := NewRunner(db, calc.Options{}, 2)
	runner.OnResult = func(suiteID string, r *history.SuiteResult) {
		mu.Lock()
		seen = append(seen, suiteID+"/"+r.CaseID)
		mu.Unlock()
	}

	report, err := runner.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Stats.Passed)
	assert.Equal(t, 3, report.Stats.Failed)
	assert.InDelta(t, 0.4, report.Stats.PassRate, 1e-9)
	assert.Len(t, seen, 5)

	run, err := db.GetRun(report.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, history.RunCompleted, run.Status)
	assert.Equal(t, 2, run.Passed)

	results, err := db.Results(report.Run.ID)
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, "ok", results[0].CaseID, "results keep case order")
	assert.Equal(t, "5", results[1].Expected)
	assert.Equal(t, "4", results[1].Actual)
	assert.Equal(t, "1", results[3].Actual)
	assert.Equal(t, "invalid_character", results[4].Actual)
	assert.Contains(t, results[4].Error, "invalid character")
}

func TestRunnerUnaryPlusPerSuite(t *testing.T) {
	s := &Suite{ID: "plus", Cases: []Case{{ID: "a", Expression: "5-+3", Expect: ptr(2)}}}
	runner := NewRunner(nil, calc.Options{}, 1)

	report, err := runner.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stats.Failed)

	s.AllowUnaryPlus = true
	report, err = runner.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stats.Passed)
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Suite{ID: "c", Cases: []Case{{ID: "a", Expression: "1", Expect: ptr(1)}}}
	_, err := NewRunner(nil, calc.Options{}, 1).Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderMarkdown(t *testing.T) {
	s := &Suite{ID: "md", Name: "Markdown", Cases: []Case{
		{ID: "ok", Expression: "1", Expect: ptr(1)},
		{ID: "bad", Expression: "1 | 2", Expect: ptr(3)},
	}}
	report, err := NewRunner(nil, calc.Options{}, 1).Run(context.Background(), s)
	require.NoError(t, err)

	md := RenderMarkdown(s, report)
	assert.True(t, strings.HasPrefix(md, "# Markdown\n"))
	assert.Contains(t, md, "50.0%")
	assert.Contains(t, md, "## Failures")
	assert.Contains(t, md, "`1 \\| 2`")
	assert.NotContains(t, md, "| ok |")

	s.Cases = s.Cases[:1]
	report, err = NewRunner(nil, calc.Options{}, 1).Run(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, RenderMarkdown(s, report), "All cases passed.")
}
