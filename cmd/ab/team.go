package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/config"
	"github.com/abacushq/abacus/internal/ui"
)

var teamCmd = &cobra.Command{
	Use:     "team",
	Short:   "Manage the team roster in config.yaml",
	GroupID: "setup",
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured teams",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := config.FindConfigYAMLPath()
		if err != nil {
			fatal(err)
		}
		teams, err := config.ListTeams(configPath)
		if err != nil {
			fatal(err)
		}

		if jsonOutput {
			outputJSON(teams)
			return
		}
		if teams.Primary == "" && len(teams.Additional) == 0 {
			fmt.Println("No teams configured. Use 'ab team add <key>'.")
			return
		}
		if teams.Primary != "" {
			fmt.Printf("  %s %s\n", teams.Primary, ui.RenderMuted("(primary)"))
		}
		for _, t := range teams.Additional {
			fmt.Printf("  %s\n", t)
		}
	},
}

var teamAddCmd = &cobra.Command{
	Use:   "add <key>",
	Short: "Add a team to the roster (first team becomes primary)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := config.FindConfigYAMLPath()
		if err != nil {
			fatal(err)
		}
		if err := config.AddTeam(configPath, args[0]); err != nil {
			fatal(err)
		}
		fmt.Printf("%s Added team %s\n", ui.RenderPassIcon(), args[0])
	},
}

var teamRemoveCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Remove a team from the roster",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := config.FindConfigYAMLPath()
		if err != nil {
			fatal(err)
		}
		if err := config.RemoveTeam(configPath, args[0]); err != nil {
			fatal(err)
		}
		fmt.Printf("%s Removed team %s\n", ui.RenderPassIcon(), args[0])
	},
}

func init() {
	teamCmd.AddCommand(teamListCmd)
	teamCmd.AddCommand(teamAddCmd)
	teamCmd.AddCommand(teamRemoveCmd)
	rootCmd.AddCommand(teamCmd)
}
