package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"expenseai/internal/backend"
	"expenseai/internal/cli"
	"expenseai/internal/config"
	applog "expenseai/internal/log"
)

const traceFlushTimeout = 5 * time.Second

type rootOptions struct {
	timeout time.Duration
	noSeed  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "expensectl",
		Short:         "Operate the expense assistant from the terminal",
		Long:          "Chat with the expense assistant, generate monthly insights and inspect totals using the same configuration as the server.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Deadline for a single command")
	root.PersistentFlags().BoolVar(&opts.noSeed, "no-seed", false, "Do not seed sample expenses into an empty store")

	root.AddCommand(
		newChatCmd(opts),
		newInsightCmd(opts),
		newClassifyCmd(opts),
		newTotalsCmd(opts),
		newSeedCmd(opts),
	)
	return root
}

// withApp loads configuration, builds the service graph and runs fn under the command deadline.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, app *backend.App) error) error {
	cli.LoadEnvFile()
	cfg := config.Load()

	logCfg := applog.DefaultConfig()
	logCfg.Level = slog.LevelWarn
	if lvl, err := applog.ParseLevel(cfg.LogLevel); err == nil && lvl > logCfg.Level {
		logCfg.Level = lvl
	}
	logCfg.Format = cfg.LogFormat
	logCfg.Component = applog.ComponentCLI
	logCfg.Output = cmd.ErrOrStderr()
	logger := applog.New(logCfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}

	shutdownTracing, err := cli.SetupTracing(cmd.Context(), cfg, applog.ComponentCLI)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), traceFlushTimeout)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	app, err := backend.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.SeedSampleData && !opts.noSeed {
		if _, err := app.Expenses.SeedIfEmpty(ctx); err != nil {
			return fmt.Errorf("seed sample expenses: %w", err)
		}
	}
	return fn(ctx, app)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
