package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/ui"
)

var selectCmd = &cobra.Command{
	Use:     "select [snapshot]",
	Short:   "Show the greedy selection for the next cycle",
	GroupID: "planning",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		snap, _, err := loadSnapshotArg(args)
		if err != nil {
			fatal(err)
		}

		result, err := runPipeline(rootCtx, snap, 0)
		if err != nil {
			fatal(err)
		}
		sel := result.Selection

		if jsonOutput {
			outputJSON(sel)
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Selected work (%d items, %d of %.1f points):\n\n",
			cyan("▸"), len(sel.Items), sel.TotalEffort, result.Capacity.Points)
		for i, s := range sel.Items {
			kind := "feature"
			if s.Item.Type.IsDebt() {
				kind = "debt"
			}
			fmt.Printf("%d. %s %s %s (%d pts, %s): %s\n", i+1,
				ui.RenderScore(s.Score), ui.RenderTier(s.Item.Tier), s.Item.ID,
				s.Item.EffortPoints(), kind, ui.TruncateSimple(s.Item.Title, 50))
		}
		fmt.Printf("\n  debt ratio %.0f%%, utilization %.0f%%\n",
			sel.DebtRatio*100, sel.Utilization*100)
		if n := len(result.Risk.BlockedExcluded) + len(result.Risk.CircularExcluded); n > 0 {
			fmt.Printf("  %s %d items excluded for dependency risk (see 'ab plan')\n",
				ui.RenderWarnIcon(), n)
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(selectCmd)
}
