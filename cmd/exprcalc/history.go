package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/consts"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/display"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit    int
		clearAll bool
		stats    bool
		match    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded evaluations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return errors.New("history is disabled")
			}

			if clearAll {
				if err := a.store.Clear(); err != nil {
					return fmt.Errorf("failed to clear history: %w", err)
				}
				fmt.Fprintln(a.out, "History cleared.")
				return nil
			}

			if stats {
				st, err := a.store.Stats()
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "total %d, ok %d, lexical %d, syntax %d, evaluation %d\n",
					st.Total, st.Succeeded, st.Lexical, st.Syntax, st.Evaluation)
				return nil
			}

			if limit < 1 || limit > consts.MaxHistoryLimit {
				return fmt.Errorf("limit must be between 1 and %d", consts.MaxHistoryLimit)
			}

			var (
				entries []*history.Entry
				err     error
			)
			if match != "" {
				entries, err = a.store.ByFingerprint(match)
				if len(entries) > limit {
					entries = entries[:limit]
				}
			} else {
				entries, err = a.store.Recent(limit)
			}
			if err != nil {
				return err
			}

			// oldest first so the newest ends up next to the prompt
			for i := len(entries) - 1; i >= 0; i-- {
				a.printEntry(entries[i])
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", consts.DefaultHistoryLimit, "Number of entries to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all recorded evaluations")
	cmd.Flags().BoolVar(&stats, "stats", false, "Show counts by outcome")
	cmd.Flags().StringVar(&match, "expression", "", "Only show evaluations of this expression (whitespace ignored)")
	return cmd
}

func (a *app) printEntry(e *history.Entry) {
	when := e.CreatedAt.Local().Format("2006-01-02 15:04:05")
	if e.OK() && e.Result != nil {
		fmt.Fprintf(a.out, "%s  %-6s %s = %s\n", color.HiBlackString("%s", when), e.Source, e.Expression,
			color.GreenString("%s", display.Number(*e.Result, a.cfg.Precision)))
		return
	}
	fmt.Fprintf(a.out, "%s  %-6s %s  %s\n", color.HiBlackString("%s", when), e.Source, e.Expression,
		color.RedString("%s: %s", e.ErrorClass, e.ErrorMessage))
}
