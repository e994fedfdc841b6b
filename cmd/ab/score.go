package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/scoring"
	"github.com/abacushq/abacus/internal/ui"
)

var scoreCmd = &cobra.Command{
	Use:     "score [snapshot]",
	Short:   "Score the backlog without selecting",
	GroupID: "planning",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		top, _ := cmd.Flags().GetInt("top")

		snap, _, err := loadSnapshotArg(args)
		if err != nil {
			fatal(err)
		}

		scored := scoring.NewScorer().ScoreAll(snap.Items())
		// Stable keeps snapshot order for ties, matching the selector
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Score > scored[j].Score
		})
		if top > 0 && top < len(scored) {
			scored = scored[:top]
		}

		if jsonOutput {
			outputJSON(scored)
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Scored backlog (%d items):\n\n", cyan("▸"), len(scored))
		for i, s := range scored {
			fmt.Printf("%d. %s %s %s: %s\n", i+1,
				ui.RenderScore(s.Score), ui.RenderTier(s.Item.Tier), s.Item.ID,
				ui.TruncateSimple(s.Item.Title, 60))
			fmt.Printf("   value %.0f  complexity %.0f  risk %.0f  age %.0f  debt %.0f\n",
				s.Scores.BusinessValue, s.Scores.Complexity, s.Scores.Risk,
				s.Scores.Age, s.Scores.DebtImpact)
		}
		fmt.Println()
	},
}

func init() {
	scoreCmd.Flags().Int("top", 0, "Show only the N highest-scoring items")
	rootCmd.AddCommand(scoreCmd)
}
