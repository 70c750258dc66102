package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/logger"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/suite"
)

func newSuiteCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "suite",
		Short: "List and run conformance suites",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Directory with additional suite files (default from config)")

	loader := func() *suite.Loader {
		if dir == "" {
			dir = a.cfg.SuiteDir
		}
		return suite.NewLoader(dir)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available suites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suites, err := loader().List()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCASES\tSOURCE\tNAME")
			for _, s := range suites {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.ID, len(s.Cases), s.Source, s.Name)
			}
			return tw.Flush()
		},
	}

	var (
		all    bool
		report bool
	)
	runCmd := &cobra.Command{
		Use:   "run [id...]",
		Short: "Run suites (default: builtin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			l := loader()

			var suites []*suite.Suite
			switch {
			case all:
				list, err := l.List()
				if err != nil {
					return err
				}
				suites = list
			case len(args) == 0:
				args = []string{"builtin"}
				fallthrough
			default:
				for _, id := range args {
					s, err := l.Load(id)
					if err != nil {
						return err
					}
					suites = append(suites, s)
				}
			}

			var store suite.Store
			if a.store != nil {
				store = a.store
			}
			runner := suite.NewRunner(store, a.cfg.EvaluatorOptions(), a.cfg.SuiteWorkers)

			failed := 0
			for _, s := range suites {
				rep, err := runner.Run(cmd.Context(), s)
				if err != nil {
					return err
				}
				failed += rep.Stats.Failed

				if report {
					if err := a.renderReport(s, rep); err != nil {
						return err
					}
					continue
				}
				a.printSummary(s, rep)
			}

			if failed > 0 {
				return &exitError{code: exitFailure, err: fmt.Errorf("%d cases failed", failed)}
			}
			return nil
		},
	}
	runCmd.Flags().BoolVar(&all, "all", false, "Run every available suite")
	runCmd.Flags().BoolVar(&report, "report", false, "Print a formatted markdown report")

	cmd.AddCommand(listCmd, runCmd)
	return cmd
}

func (a *app) printSummary(s *suite.Suite, rep *suite.Report) {
	status := color.GreenString("PASS")
	if rep.Stats.Failed > 0 {
		status = color.RedString("FAIL")
	}
	fmt.Fprintf(a.out, "%s %s: %d/%d passed (%.1f%%) in %s\n",
		status, color.CyanString("%s", s.ID), rep.Stats.Passed, rep.Stats.Total,
		rep.Stats.PassRate*100, rep.Stats.Duration)

	for _, f := range rep.Failures() {
		got := f.Actual
		if f.Error != "" {
			got = f.Error
		}
		fmt.Fprintf(a.out, "  %s %s: %q expected %s, got %s\n",
			color.RedString("✗"), f.CaseID, f.Expression, f.Expected, color.YellowString("%s", got))
	}
}

// renderReport prints the markdown report, styled when glamour can render it
func (a *app) renderReport(s *suite.Suite, rep *suite.Report) error {
	md := suite.RenderMarkdown(s, rep)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		logger.Warn("failed to create markdown renderer: %v", err)
		_, err = fmt.Fprint(a.out, md)
		return err
	}

	out, err := renderer.Render(md)
	if err != nil {
		logger.Warn("failed to render report: %v", err)
		out = md
	}
	_, err = fmt.Fprint(a.out, out)
	return err
}
