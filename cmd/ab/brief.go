package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/brief"
	"github.com/abacushq/abacus/internal/config"
	"github.com/abacushq/abacus/internal/configfile"
	"github.com/abacushq/abacus/internal/types"
	"github.com/abacushq/abacus/internal/ui"
)

var briefCmd = &cobra.Command{
	Use:     "brief [results.json]",
	Short:   "Generate an AI kickoff brief for a plan",
	GroupID: "planning",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path, err := resolveResultsPath(args)
		if err != nil {
			fatal(err)
		}
		result, err := loadPlanResult(path)
		if err != nil {
			fatal(err)
		}

		var opts []brief.Option
		if model := config.GetString("brief.model"); model != "" {
			opts = append(opts, brief.WithModel(model))
		}
		writer, err := brief.New(config.GetString("anthropic.api_key"), opts...)
		if err != nil {
			fatal(err)
		}

		text, err := writer.Write(rootCtx, result, resolveTeam(), effectiveCycleDays())
		if err != nil {
			fatal(err)
		}

		if jsonOutput {
			outputJSON(map[string]string{"brief": text})
			return
		}
		fmt.Print(ui.RenderMarkdown(text))
	},
}

// resolveResultsPath picks the plan result file: an explicit argument, or
// the most recent `ab plan --out` path from metadata.json.
func resolveResultsPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	meta, err := configfile.Load(findAbacusDir())
	if err != nil {
		return "", err
	}
	if meta == nil || meta.LastPlanOut == "" {
		return "", fmt.Errorf("no plan results found (run 'ab plan --out results.json' or pass a file)")
	}
	return meta.LastPlanOut, nil
}

func loadPlanResult(path string) (*types.PlanResult, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path chosen by the user
	if err != nil {
		return nil, fmt.Errorf("read plan results: %w", err)
	}
	var result types.PlanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse plan results %s: %w", path, err)
	}
	return &result, nil
}

func init() {
	rootCmd.AddCommand(briefCmd)
}
