package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/config"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/logger"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/server"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/suite"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		suiteDir string
		noWatch  bool
		toStderr bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		Long: `Start an HTTP server exposing the calculator:

  POST /api/calculate      {"expression": "2 + 3"}
  GET  /api/history        recent evaluations
  GET  /api/suites         available suites
  POST /api/suites/:id/run run a suite
  GET  /api/runs/:run_id   results of a run
  GET  /ws                 websocket, one expression per message
  GET  /metrics            prometheus metrics

The config file is watched; evaluator settings apply without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if suiteDir != "" {
				cfg.SuiteDir = suiteDir
			}

			srvLog := logger.Global().WithPrefix("server")
			if toStderr {
				srvLog = logger.NewWriter(logger.ParseLevel(cfg.LogLevel), a.errOut, "server")
			}

			srv := server.New(server.Options{
				Config:       cfg.Server,
				Evaluator:    cfg.EvaluatorOptions(),
				Precision:    cfg.Precision,
				Store:        a.store,
				Suites:       suite.NewLoader(cfg.SuiteDir),
				SuiteWorkers: cfg.SuiteWorkers,
				Logger:       srvLog,
			})

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.Start(ctx)
			})

			if !noWatch {
				if _, err := os.Stat(a.configPath); err == nil {
					watcher, err := config.NewWatcher(a.configPath, a.reloadConfig(srv.ApplyConfig))
					if err != nil {
						logger.Warn("config reload disabled: %v", err)
					} else {
						g.Go(func() error {
							if err := watcher.Run(ctx); !errors.Is(err, context.Canceled) {
								return err
							}
							return nil
						})
					}
				}
			}

			fmt.Fprintf(a.out, "exprcalc listening on %s\n", cfg.Server.Addr)
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, "+config.DefaultConfig().Server.Addr+")")
	cmd.Flags().StringVar(&suiteDir, "suites", "", "Directory with additional suite files")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the config file on change")
	cmd.Flags().BoolVar(&toStderr, "log-stderr", false, "Write server logs to stderr instead of the log file")
	return cmd
}
