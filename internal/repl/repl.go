package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/history"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/logger"
)

// Options configure a REPL
type Options struct {
	Evaluator *calc.Evaluator
	Precision int
	Recorder  Recorder // nil disables recording
	In        io.Reader
	Out       io.Writer
	Logger    *logger.Logger
}

func (o *Options) session() *session {
	evaluator := o.Evaluator
	if evaluator == nil {
		evaluator = &calc.Evaluator{}
	}
	log := o.Logger
	if log == nil {
		log = logger.Global().WithPrefix("repl")
	}
	return &session{
		evaluator: evaluator,
		precision: o.Precision,
		recorder:  o.Recorder,
		source:    history.SourceREPL,
		log:       log,
	}
}

// Run starts the full-screen loop when both ends are terminals and the
// line-oriented loop otherwise.
func Run(ctx context.Context, opts Options) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if isTerminal(opts.In) && isTerminal(opts.Out) {
		return runProgram(ctx, opts)
	}
	return RunLines(ctx, opts)
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// RunLines reads one expression per line from opts.In and writes one
// result per line to opts.Out. Errors are written in place of results and
// do not stop the loop.
func RunLines(ctx context.Context, opts Options) error {
	sess := opts.session()
	scanner := bufio.NewScanner(opts.In)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		switch parseCommand(line) {
		case cmdQuit:
			return nil
		case cmdHelp:
			fmt.Fprintln(opts.Out, helpText)
			continue
		case cmdClear:
			continue
		}

		res := sess.eval(line)
		if _, err := fmt.Fprintln(opts.Out, res.output); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func runProgram(ctx context.Context, opts Options) error {
	m := newModel(opts.session())
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(opts.In),
		tea.WithOutput(opts.Out),
	)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
