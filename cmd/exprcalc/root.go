package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/config"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/display"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/history"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/logger"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/repl"
)

// app holds state shared by all commands
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configFile string
	precision  int
	unaryPlus  bool
	noHistory  bool

	precisionSet bool
	unaryPlusSet bool

	cfg         *config.Config
	configPath  string
	store       *history.Database
	loggerReady bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "exprcalc [expression...]",
		Short: "Safe arithmetic expression calculator",
		Long: `exprcalc evaluates arithmetic expressions without handing them to an interpreter.

Expressions may use decimal numbers, + - * /, unary minus and parentheses.
Arguments are joined with spaces, so quoting is optional:

  exprcalc '2 + 3 * 4'
  exprcalc -- -(2 + 3) / 4

Without arguments an interactive session starts; when stdin is not a
terminal, each input line is evaluated.

Exit codes: 0 success, 1 other failure, 2 lexical error, 3 syntax error,
4 evaluation error.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.runREPL(cmd)
			}
			return a.calculate(strings.Join(args, " "))
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Configuration file (JSON, default "+config.GetConfigPath()+")")
	root.PersistentFlags().IntVarP(&a.precision, "precision", "p", -1, "Digits after the decimal point (-1 for shortest exact form)")
	root.PersistentFlags().BoolVar(&a.unaryPlus, "unary-plus", false, "Accept a leading '+' as a no-op sign")
	root.PersistentFlags().BoolVar(&a.noHistory, "no-history", false, "Do not record evaluations")

	root.AddCommand(newREPLCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newSuiteCmd(a))
	root.AddCommand(newHistoryCmd(a))
	return root
}

// setup loads config, applies environment and flag overrides, and
// initializes the logger and history store.
func (a *app) setup(cmd *cobra.Command) error {
	a.configPath = a.configFile
	if a.configPath == "" {
		a.configPath = config.GetConfigPath()
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	a.precisionSet = flags.Changed("precision")
	a.unaryPlusSet = flags.Changed("unary-plus")

	a.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.loggerReady = true
	logger.Debug("exprcalc starting: config=%s log_level=%s history=%v", a.configPath, cfg.LogLevel, cfg.HistoryEnabled)

	if cfg.HistoryEnabled && cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			// history is best effort; evaluation still works without it
			logger.Warn("history disabled: %v", err)
		} else {
			a.store = store
		}
	}
	return nil
}

// applyOverrides layers environment variables and explicit flags over a
// config read from disk.
func (a *app) applyOverrides(cfg *config.Config) {
	cfg.ApplyEnv(os.Getenv)
	if a.precisionSet {
		cfg.Precision = a.precision
	}
	if a.unaryPlusSet {
		cfg.AllowUnaryPlus = a.unaryPlus
	}
	if a.noHistory {
		cfg.HistoryEnabled = false
	}
}

// reloadConfig wraps apply so reloaded files keep the same overrides as
// the config loaded at startup.
func (a *app) reloadConfig(apply func(*config.Config)) func(*config.Config) {
	return func(cfg *config.Config) {
		a.applyOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			logger.Warn("ignoring reloaded config: %v", err)
			return
		}
		apply(cfg)
	}
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("failed to close history: %v", err)
		}
		a.store = nil
	}
	if a.loggerReady {
		if err := logger.Global().Close(); err != nil {
			fmt.Fprintf(a.errOut, "Warning: failed to close logger: %v\n", err)
		}
		a.loggerReady = false
	}
}

func (a *app) evaluator() *calc.Evaluator {
	return calc.New(a.cfg.EvaluatorOptions())
}

// recorder returns the store as a repl.Recorder, or nil when disabled
func (a *app) recorder() repl.Recorder {
	if a.store == nil {
		return nil
	}
	return a.store
}

// calculate evaluates one expression from the command line
func (a *app) calculate(expr string) error {
	value, err := a.evaluator().Calculate(expr)

	entry := &history.Entry{Expression: expr, Source: history.SourceCLI}
	if err != nil {
		class, kind := calc.Classify(err)
		entry.ErrorClass = string(class)
		entry.ErrorKind = kind
		entry.ErrorMessage = err.Error()
	} else {
		entry.Result = &value
	}
	if a.store != nil {
		if recErr := a.store.Record(entry); recErr != nil {
			logger.Warn("failed to record evaluation: %v", recErr)
		}
	}

	if err != nil {
		logger.Debug("evaluation of %q failed: %v", expr, err)
		fmt.Fprintln(a.errOut, color.RedString("%s", display.Error(expr, err)))
		return &exitError{code: exitCodeFor(err), err: err}
	}

	fmt.Fprintln(a.out, display.Number(value, a.cfg.Precision))
	return nil
}

func (a *app) runREPL(cmd *cobra.Command) error {
	return repl.Run(cmd.Context(), repl.Options{
		Evaluator: a.evaluator(),
		Precision: a.cfg.Precision,
		Recorder:  a.recorder(),
		In:        a.in,
		Out:       a.out,
		Logger:    logger.Global().WithPrefix("repl"),
	})
}

func newREPLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL(cmd)
		},
	}
}
