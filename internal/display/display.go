// Package display renders evaluation results and errors for people.
package display

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
)

// Number formats v with precision digits after the decimal point.
// A negative precision selects the shortest representation that
// round-trips. Negative zero prints as 0.
func Number(v float64, precision int) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	if precision < 0 {
		// avoid exponent notation for the integers people type in
		if v == math.Trunc(v) && math.Abs(v) < 1e21 {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// Position returns the byte offset an evaluation error points at, or -1.
func Position(err error) int {
	var lexErr *calc.LexError
	if errors.As(err, &lexErr) {
		return lexErr.Position
	}
	var synErr *calc.SyntaxError
	if errors.As(err, &synErr) {
		return synErr.Position
	}
	var evalErr *calc.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Position
	}
	return -1
}

// Caret renders expr with a marker under the byte the error points at.
// It returns an empty string when the error has no usable position.
func Caret(expr string, err error) string {
	pos := Position(err)
	if pos < 0 || pos > len(expr) || strings.ContainsAny(expr, "\n\r") {
		return ""
	}

	// align by runes so multibyte characters keep the marker in place
	col := len([]rune(expr[:pos]))
	var b strings.Builder
	b.WriteString(expr)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", col))
	b.WriteByte('^')
	return b.String()
}

// Error formats err as "<class> error: <message>" with a caret line when
// available.
func Error(expr string, err error) string {
	class, _ := calc.Classify(err)

	var b strings.Builder
	if class != calc.ClassUnknown && class != calc.ClassNone {
		b.WriteString(string(class))
		b.WriteString(" error: ")
	} else {
		b.WriteString("error: ")
	}
	b.WriteString(err.Error())

	if caret := Caret(expr, err); caret != "" {
		b.WriteByte('\n')
		b.WriteString(caret)
	}
	return b.String()
}
