// Command sprintcheck re-checks sprint completion for sprints that ended
// recently and generates any missing release notes. Meant to run from cron.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/app"
	"github.com/cleberrangel/clientflow-api/internal/config"
	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/service"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		window   time.Duration
		sprintID string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "sprintcheck",
		Short: "Re-check sprint completion and generate missing release notes",
		Long: `Finds every sprint whose end date falls within --window of now and runs
the completion check on it. A completed sprint without release notes gets
them generated; sprints that already have notes are skipped.

Example usage:
  sprintcheck                     # sprints that ended in the last 7 days
  sprintcheck --window 72h
  sprintcheck --sprint <id>       # check a single sprint`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, File: cfg.LogFile})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := app.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !cmd.Flags().Changed("window") && cfg.SprintCheckWindow > 0 {
				window = cfg.SprintCheckWindow
			}
			results, err := run(ctx, rt.Engine, sprintID, window)
			if err != nil {
				return err
			}
			return report(cmd, results, asJSON)
		},
	}

	cmd.Flags().DurationVar(&window, "window", service.DefaultCompletionWindow, "how far back to look for ended sprints")
	cmd.Flags().StringVar(&sprintID, "sprint", "", "check a single sprint by id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")

	return cmd
}

type checker interface {
	CheckSprintCompletion(ctx context.Context, id string) (*service.SprintCheckResult, error)
	CheckRecentSprintCompletions(ctx context.Context, window time.Duration) ([]service.SprintCheckResult, error)
}

func run(ctx context.Context, c checker, sprintID string, window time.Duration) ([]service.SprintCheckResult, error) {
	if sprintID != "" {
		res, err := c.CheckSprintCompletion(ctx, sprintID)
		if err != nil {
			return nil, err
		}
		return []service.SprintCheckResult{*res}, nil
	}
	return c.CheckRecentSprintCompletions(ctx, window)
}

func report(cmd *cobra.Command, results []service.SprintCheckResult, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	generated := 0
	for _, r := range results {
		state := "in progress"
		switch {
		case r.Generated:
			state = "release notes generated"
			generated++
		case r.Skipped:
			state = "release notes already present"
		case r.Complete:
			state = "complete"
		}
		fmt.Fprintf(out, "%s\t%s\n", r.SprintID, state)
	}
	fmt.Fprintf(out, "%d sprint(s) checked, %d release note(s) generated\n", len(results), generated)
	return nil
}
