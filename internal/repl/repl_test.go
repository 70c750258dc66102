package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/history"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/logger"
)

type memRecorder struct {
	entries []*history.Entry
}

func (r *memRecorder) Record(e *history.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func TestRunLines(t *testing.T) {
	in := strings.NewReader("2 + 3 * 4\n\n10 / 0\n(1 + 2\n-(2 + 3)\n")
	var out bytes.Buffer
	rec := &memRecorder{}

	err := RunLines(context.Background(), Options{
		Precision: -1,
		Recorder:  rec,
		In:        in,
		Out:       &out,
		Logger:    logger.Discard(),
	})
	require.NoError(t, err)

	output := out.String()
	assert.True(t, strings.HasPrefix(output, "14\n"), output)
	assert.Contains(t, output, "evaluation error: division by zero")
	assert.Contains(t, output, "syntax error: unbalanced parentheses")
	assert.True(t, strings.HasSuffix(output, "-5\n"), output)

	require.Len(t, rec.entries, 4, "blank lines are skipped")
	assert.Equal(t, history.SourceREPL, rec.entries[0].Source)
	assert.Equal(t, "division_by_zero", rec.entries[1].ErrorKind)
	assert.Equal(t, "syntax", rec.entries[2].ErrorClass)
}

func TestRunLinesQuitAndHelp(t *testing.T) {
	in := strings.NewReader(":help\n1+1\n:q\n2+2\n")
	var out bytes.Buffer

	err := RunLines(context.Background(), Options{Precision: -1, In: in, Out: &out, Logger: logger.Discard()})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Commands:")
	assert.Contains(t, out.String(), "2\n")
	assert.NotContains(t, out.String(), "4\n", "input after :q is ignored")
}

func TestRunLinesOptions(t *testing.T) {
	in := strings.NewReader("5-+3\n1/3\n")
	var out bytes.Buffer

	err := RunLines(context.Background(), Options{
		Evaluator: calc.New(calc.Options{AllowUnaryPlus: true}),
		Precision: 3,
		In:        in,
		Out:       &out,
		Logger:    logger.Discard(),
	})
	require.NoError(t, err)
	assert.Equal(t, "2.000\n0.333\n", out.String())
}

func TestRunLinesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunLines(ctx, Options{In: strings.NewReader("1\n"), Out: &bytes.Buffer{}, Logger: logger.Discard()})
	assert.ErrorIs(t, err, context.Canceled)
}

func typeLine(t *testing.T, m tea.Model, line string) tea.Model {
	t.Helper()
	for _, r := range line {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func newTestModel(rec Recorder) model {
	return newModel((&Options{Precision: -1, Recorder: rec, Logger: logger.Discard()}).session())
}

func TestModelEvaluatesOnEnter(t *testing.T) {
	rec := &memRecorder{}
	var m tea.Model = newTestModel(rec)

	m = typeLine(t, m, "6*7")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	mm := m.(model)
	require.Len(t, mm.results, 1)
	assert.Equal(t, "42", mm.results[0].output)
	assert.Empty(t, mm.input.Value())
	assert.Contains(t, m.View(), "= 42")
	assert.Len(t, rec.entries, 1)

	m = typeLine(t, m, "1 & 2")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	mm = m.(model)
	require.Len(t, mm.results, 2)
	assert.Error(t, mm.results[1].err)
	assert.Contains(t, m.View(), "lexical error")
}

func TestModelHistoryRecall(t *testing.T) {
	var m tea.Model = newTestModel(nil)

	for _, line := range []string{"1+1", "2+2"} {
		m = typeLine(t, m, line)
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}
	m = typeLine(t, m, "3")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "2+2", m.(model).input.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "1+1", m.(model).input.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "1+1", m.(model).input.Value(), "stops at the oldest line")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "2+2", m.(model).input.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "3", m.(model).input.Value(), "restores the draft")
}

func TestModelCommands(t *testing.T) {
	var m tea.Model = newTestModel(nil)

	m = typeLine(t, m, "1")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = typeLine(t, m, ":clear")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.(model).results)

	m = typeLine(t, m, ":help")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "Commands:")

	m = typeLine(t, m, ":q")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestModelEscQuits(t *testing.T) {
	var m tea.Model = newTestModel(nil)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.(model).quitting)
}

func TestModelScrollbackBounded(t *testing.T) {
	var m tea.Model = newTestModel(nil)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 10})

	for i := 0; i < maxScrollback+5; i++ {
		m = typeLine(t, m, "1")
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}
	assert.Len(t, m.(model).results, maxScrollback)
	assert.LessOrEqual(t, strings.Count(m.View(), "\n"), 10)
}
