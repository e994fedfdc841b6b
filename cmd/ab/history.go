package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/config"
	"github.com/abacushq/abacus/internal/history"
	"github.com/abacushq/abacus/internal/ui"
)

// openHistory opens the velocity ledger per config: embedded Dolt under the
// .abacus directory (or --db/AB_DB), or a dolt sql-server when
// history.mode is "server".
func openHistory(ctx context.Context) (*history.Store, error) {
	settings := config.GetHistorySettings()
	cfg := history.Config{
		Database:       settings.Database,
		ServerMode:     settings.Mode == config.HistoryModeServer,
		ServerHost:     settings.ServerHost,
		ServerPort:     settings.ServerPort,
		ServerUser:     settings.ServerUser,
		ServerPassword: settings.ServerPassword,
		ServerTLS:      settings.ServerTLS,
	}
	if !cfg.ServerMode {
		cfg.Dir = config.GetString("db")
		if cfg.Dir == "" {
			cfg.Dir = filepath.Join(findAbacusDir(), "history")
		}
	}
	return history.Open(ctx, cfg)
}

// nextCycleNumber returns one past the most recently recorded cycle, or 1
// for a team with no history yet.
func nextCycleNumber(ctx context.Context, store *history.Store, team string) (int, error) {
	samples, err := store.Samples(ctx, team, 1)
	if err != nil {
		if errors.Is(err, history.ErrNoSamples) {
			return 1, nil
		}
		return 0, err
	}
	if len(samples) == 0 {
		return 1, nil
	}
	return samples[len(samples)-1].Cycle + 1, nil
}

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "Manage the velocity history store",
	GroupID: "data",
}

var historyRecordCmd = &cobra.Command{
	Use:   "record <points> [cycle]",
	Short: "Record completed points for a cycle",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		team := resolveTeam()
		if team == "" {
			fatal(fmt.Errorf("no team configured (set --team or a teams roster in config)"))
		}
		points, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			fatal(fmt.Errorf("invalid points %q: %w", args[0], err))
		}

		store, err := openHistory(rootCtx)
		if err != nil {
			fatal(err)
		}
		defer func() { _ = store.Close() }()

		var cycle int
		if len(args) > 1 {
			cycle, err = strconv.Atoi(args[1])
			if err != nil {
				fatal(fmt.Errorf("invalid cycle %q: %w", args[1], err))
			}
		} else {
			cycle, err = nextCycleNumber(rootCtx, store, team)
			if err != nil {
				fatal(err)
			}
		}

		if err := store.Record(rootCtx, team, cycle, points, effectiveCycleDays()); err != nil {
			fatal(err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"team": team, "cycle": cycle, "points": points})
			return
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Recorded %.1f points for %s cycle %d\n", green("✓"), points, team, cycle)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded velocity samples",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		team := resolveTeam()
		if team == "" {
			fatal(fmt.Errorf("no team configured (set --team or a teams roster in config)"))
		}

		store, err := openHistory(rootCtx)
		if err != nil {
			fatal(err)
		}
		defer func() { _ = store.Close() }()

		samples, err := store.Samples(rootCtx, team, limit)
		if err != nil && !errors.Is(err, history.ErrNoSamples) {
			fatal(err)
		}

		if jsonOutput {
			if samples == nil {
				samples = []history.Sample{}
			}
			outputJSON(samples)
			return
		}
		if len(samples) == 0 {
			fmt.Printf("No samples recorded for %s yet. Use 'ab history record'.\n", team)
			return
		}
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Velocity samples for %s:\n\n", cyan("▸"), team)
		for _, s := range samples {
			fmt.Printf("  cycle %3d  %6.1f pts / %d days  (%s)\n",
				s.Cycle, s.Points, s.CycleDays, s.RecordedAt.Format("2006-01-02"))
		}
		fmt.Println()
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show derived velocity statistics",
	Run: func(cmd *cobra.Command, args []string) {
		team := resolveTeam()
		if team == "" {
			fatal(fmt.Errorf("no team configured (set --team or a teams roster in config)"))
		}

		store, err := openHistory(rootCtx)
		if err != nil {
			fatal(err)
		}
		defer func() { _ = store.Close() }()

		derived, err := store.Velocity(rootCtx, team, effectiveCycleDays())
		if err != nil {
			if errors.Is(err, history.ErrNoSamples) {
				fatal(fmt.Errorf("no samples recorded for %s yet (use 'ab history record')", team))
			}
			fatal(err)
		}

		if jsonOutput {
			outputJSON(derived)
			return
		}
		fmt.Printf("\nVelocity for %s over %d samples:\n", team, len(derived.Samples))
		fmt.Printf("  average:    %s pts/day\n", ui.RenderAccent(fmt.Sprintf("%.2f", derived.AvgPerDay)))
		fmt.Printf("  trend:      %s\n", derived.Trend)
		fmt.Printf("  confidence: %s\n", derived.Confidence)
		fmt.Println()
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 0, "Maximum samples to list (0 = derivation window)")
	historyCmd.AddCommand(historyRecordCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyStatsCmd)
	rootCmd.AddCommand(historyCmd)
}
