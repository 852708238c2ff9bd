package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"expenseai/internal/backend"
	"expenseai/internal/core"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one message, or read messages line by line from stdin",
		Example: `  expensectl chat "I spent 12.50 on lunch today"
  echo "How much did I spend in June 2025?" | expensectl chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *backend.App) error {
				if len(args) > 0 {
					return chatOnce(ctx, cmd, app, strings.Join(args, " "))
				}
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					line := strings.TrimSpace(sc.Text())
					if line == "" {
						continue
					}
					if err := chatOnce(ctx, cmd, app, line); err != nil {
						return err
					}
				}
				return sc.Err()
			})
		},
	}
}

func chatOnce(ctx context.Context, cmd *cobra.Command, app *backend.App, message string) error {
	reply, err := app.Assistant.Chat(ctx, message)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}

func newInsightCmd(opts *rootOptions) *cobra.Command {
	var lang, currency string
	cmd := &cobra.Command{
		Use:   "insight <yyyy-MM>",
		Short: "Generate a narrative insight for a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := core.ParseMonth(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, app *backend.App) error {
				insight, err := app.Insights.Analyze(ctx, month, lang, currency)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), insight.Content)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "en", "Language of the insight")
	cmd.Flags().StringVar(&currency, "currency", "", "Currency label used in the narrative")
	return cmd
}

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify free text into an expense category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *backend.App) error {
				category, err := app.Models.Classifier.Classify(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), category)
				return nil
			})
		},
	}
}

func newTotalsCmd(opts *rootOptions) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "totals <yyyy-MM>",
		Short: "Print per-category totals for a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := core.ParseMonth(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, app *backend.App) error {
				if summary {
					s, err := app.Expenses.MonthlySummary(ctx, month)
					if err != nil {
						return err
					}
					return printJSON(cmd, s)
				}
				totals, err := app.Expenses.MonthlyTotals(ctx, month)
				if err != nil {
					return err
				}
				return printJSON(cmd, totals)
			})
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "Print the full monthly summary used for insights")
	return cmd
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Store the sample expenses when the store is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seedOpts := *opts
			seedOpts.noSeed = true
			return withApp(cmd, &seedOpts, func(ctx context.Context, app *backend.App) error {
				n, err := app.Expenses.SeedIfEmpty(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d expenses\n", n)
				return nil
			})
		},
	}
}
