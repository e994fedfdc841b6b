package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/config"
	"github.com/abacushq/abacus/internal/configfile"
	"github.com/abacushq/abacus/internal/types"
	"github.com/abacushq/abacus/internal/ui"
)

// initialConfigYAML is written by `ab init`. Commented keys document the
// defaults so `ab config set` can later uncomment them in place.
const initialConfigYAML = `# abacus project configuration
# days: 14
# team: ""
# history.mode: embedded
`

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the .abacus directory for this project",
	GroupID: "setup",
	Run: func(cmd *cobra.Command, args []string) {
		dir := configDir
		if dir == "" {
			dir = config.DirName
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			fatal(fmt.Errorf("create %s: %w", dir, err))
		}

		configPath := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := os.WriteFile(configPath, []byte(initialConfigYAML), 0600); err != nil {
				fatal(fmt.Errorf("write config.yaml: %w", err))
			}
		}

		meta, err := configfile.LoadOrDefault(dir)
		if err != nil {
			fatal(err)
		}
		if teamFlag != "" {
			meta.Team = teamFlag
		}
		if daysFlag > 0 {
			meta.CycleDays = daysFlag
		} else if meta.CycleDays == 0 {
			meta.CycleDays = types.DefaultCycleDays
		}
		if err := meta.Save(dir); err != nil {
			fatal(err)
		}

		if teamFlag != "" {
			if err := config.AddTeam(configPath, teamFlag); err != nil {
				fatal(err)
			}
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"dir":       dir,
				"team":      meta.Team,
				"cycleDays": meta.CycleDays,
				"createdAt": time.Now().Format(time.RFC3339),
			})
			return
		}
		fmt.Printf("%s Initialized %s\n", ui.RenderPassIcon(), dir)
		if meta.Team == "" {
			fmt.Printf("  next: ab team add <key>, then ab fetch\n")
		} else {
			fmt.Printf("  team %s, %d-day cycles. Next: ab fetch\n", meta.Team, meta.CycleDays)
		}
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
