package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/logger"
)

// Exit codes
const (
	exitOK         = 0
	exitFailure    = 1
	exitLexical    = 2
	exitSyntax     = 3
	exitEvaluation = 4
)

// exitError carries a process exit code. Its message has already been
// written by the time it is returned.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCodeFor maps an evaluation error to the process exit code
func exitCodeFor(err error) int {
	class, _ := calc.Classify(err)
	switch class {
	case calc.ClassNone:
		return exitOK
	case calc.ClassLexical:
		return exitLexical
	case calc.ClassSyntax:
		return exitSyntax
	case calc.ClassEvaluation:
		return exitEvaluation
	default:
		return exitFailure
	}
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the CLI and returns the exit code
func execute(args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if a.loggerReady {
		logger.Error("Fatal error: %v", err)
	}
	fmt.Fprintf(errOut, "Error: %v\n", err)
	return exitFailure
}
