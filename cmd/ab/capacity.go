package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/capacity"
	"github.com/abacushq/abacus/internal/types"
	"github.com/abacushq/abacus/internal/ui"
)

var capacityCmd = &cobra.Command{
	Use:     "capacity [snapshot]",
	Short:   "Estimate the capacity budget for the next cycle",
	GroupID: "planning",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fromHistory, _ := cmd.Flags().GetBool("from-history")

		var history types.VelocityHistory
		var health types.CycleHealth
		if fromHistory {
			team := resolveTeam()
			if team == "" {
				fatal(fmt.Errorf("--from-history needs a team (set --team or a teams roster in config)"))
			}
			store, err := openHistory(rootCtx)
			if err != nil {
				fatal(err)
			}
			defer func() { _ = store.Close() }()
			history, err = store.Velocity(rootCtx, team, effectiveCycleDays())
			if err != nil {
				fatal(err)
			}
			// No live cycle data without a snapshot; estimate as on_track
			health = types.CycleHealth{Status: types.HealthOnTrack}
		} else {
			snap, _, err := loadSnapshotArg(args)
			if err != nil {
				fatal(err)
			}
			if len(snap.HistoricalVelocity.Samples) > 0 && snap.HistoricalVelocity.AvgPerDay <= 0 {
				derived := types.DeriveVelocity(snap.HistoricalVelocity.Samples, effectiveCycleDays())
				snap.HistoricalVelocity.AvgPerDay = derived.AvgPerDay
			}
			history = *snap.HistoricalVelocity
			health = *snap.CurrentCycleHealth
		}

		estimator := capacity.NewEstimator(resolveCycleDays())
		budget := estimator.Estimate(history, health)

		if jsonOutput {
			outputJSON(budget)
			return
		}

		fmt.Printf("\nCapacity budget: %s points over %d days\n",
			ui.RenderAccent(fmt.Sprintf("%.1f", budget.Points)), effectiveCycleDays())
		fmt.Printf("  velocity: %.2f pts/day, confidence %s, trend %s\n",
			history.AvgPerDay, history.Confidence, history.Trend)
		fmt.Printf("  health:   %s\n", ui.RenderHealth(health.Status))
		if budget.ConfidenceAdjusted {
			fmt.Printf("  %s reduced for %s velocity confidence\n", ui.RenderInfoIcon(), history.Confidence)
		}
		if budget.BufferApplied {
			fmt.Printf("  %s safety buffer applied (x%.2f)\n", ui.RenderInfoIcon(), capacity.BufferFactor)
		}
		if capacity.Exhausted(budget) {
			fmt.Printf("  %s capacity is exhausted; nothing can be selected\n", ui.RenderWarnIcon())
		}
		fmt.Println()
	},
}

func init() {
	capacityCmd.Flags().Bool("from-history", false, "Derive velocity from the history store instead of a snapshot")
	rootCmd.AddCommand(capacityCmd)
}
