// Package repl implements the interactive read-eval-print loop.
package repl

import (
	"strings"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/display"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/history"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/logger"
)

// Recorder stores evaluations. *history.Database implements it.
type Recorder interface {
	Record(entry *history.Entry) error
}

// result is the outcome of one submitted line
type result struct {
	expr   string
	output string
	err    error
}

// command is a line that controls the loop instead of being evaluated
type command int

const (
	cmdNone command = iota
	cmdQuit
	cmdHelp
	cmdClear
)

const helpText = `Enter an arithmetic expression such as (2 + 3) * -4.
Operators: + - * /, unary minus, parentheses.
Commands: :help, :clear, :q`

func parseCommand(line string) command {
	switch strings.TrimSpace(line) {
	case ":q", ":quit", "exit", "quit":
		return cmdQuit
	case ":help", ":h", "help":
		return cmdHelp
	case ":clear":
		return cmdClear
	}
	return cmdNone
}

// session evaluates lines and records them
type session struct {
	evaluator *calc.Evaluator
	precision int
	recorder  Recorder
	source    string
	log       *logger.Logger
}

func (s *session) eval(expr string) result {
	value, err := s.evaluator.Calculate(expr)
	res := result{expr: expr, err: err}
	entry := &history.Entry{Expression: expr, Source: s.source}

	if err != nil {
		res.output = display.Error(expr, err)
		class, kind := calc.Classify(err)
		entry.ErrorClass = string(class)
		entry.ErrorKind = kind
		entry.ErrorMessage = err.Error()
	} else {
		res.output = display.Number(value, s.precision)
		entry.Result = &value
	}

	if s.recorder != nil {
		if err := s.recorder.Record(entry); err != nil {
			s.log.Warn("failed to record %q: %v", expr, err)
		}
	}
	return res
}
