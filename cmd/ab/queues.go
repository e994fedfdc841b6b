package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/types"
	"github.com/abacushq/abacus/internal/ui"
)

var queuesCmd = &cobra.Command{
	Use:     "queues [snapshot]",
	Short:   "Show the execution-queue assignment of the selection",
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

		if jsonOutput {
			outputJSON(result.Queues)
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Execution queues (%d items):\n\n", cyan("▸"), result.Queues.Total())
		printQueue(types.QueueExecutor, result.Queues.Executor)
		printQueue(types.QueueGuardian, result.Queues.Guardian)
		printQueue(types.QueueAuditor, result.Queues.Auditor)
		fmt.Println()
	},
}

func printQueue(q types.Queue, ids []string) {
	fmt.Printf("  %s (%d)\n", ui.RenderQueue(q), len(ids))
	for _, id := range ids {
		fmt.Printf("    - %s\n", id)
	}
}

func init() {
	rootCmd.AddCommand(queuesCmd)
}
