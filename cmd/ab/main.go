package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/config"
	"github.com/abacushq/abacus/internal/configfile"
	"github.com/abacushq/abacus/internal/telemetry"
	"github.com/abacushq/abacus/internal/ui"
)

var (
	jsonOutput bool
	noColor    bool
	teamFlag   string
	daysFlag   int
	configDir  string

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func init() {
	// Initialize viper configuration
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&teamFlag, "team", "", "Linear team key (default: config teams.primary)")
	rootCmd.PersistentFlags().IntVar(&daysFlag, "days", 0, "Cycle length in days (default: config days, then 14)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Path to the .abacus directory (default: auto-discover)")

	// Add --version flag to root command (same behavior as version subcommand)
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")

	// Command groups for organized help output
	rootCmd.AddGroup(&cobra.Group{ID: "planning", Title: "Planning:"})
	rootCmd.AddGroup(&cobra.Group{ID: "data", Title: "Data & Integrations:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup & Configuration:"})
}

var rootCmd = &cobra.Command{
	Use:   "ab",
	Short: "ab - Cycle capacity and work-selection planner",
	Long: `Counting frames for planning cycles. ab turns a backlog snapshot and
velocity history into a bounded, prioritized set of work for the next cycle.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Handle --version flag on root command
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("ab version %s (%s)\n", Version, Build)
			return
		}
		// No subcommand - show help
		_ = cmd.Help() // Help() always returns nil for cobra commands
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupSignalContext()
		applyViperOverrides(cmd)

		if err := telemetry.Init(rootCtx, "abacus", Version); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: telemetry init failed: %v\n", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		telemetry.Shutdown(context.Background())
		if rootCancel != nil {
			rootCancel()
		}
	},
}

// setupSignalContext creates the root context canceled on SIGINT/SIGTERM so
// in-flight HTTP and SQL calls unwind instead of dying mid-write.
func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// applyViperOverrides resolves the flag > env > config.yaml precedence for
// the persistent flags: a flag the user did not set on the command line
// falls back to the config value, and a flag they did set is pushed into
// config so downstream readers see one consistent answer.
func applyViperOverrides(cmd *cobra.Command) {
	if !cmd.Flags().Changed("json") {
		jsonOutput = config.GetBool("json")
	} else {
		config.Set("json", jsonOutput)
	}
	if !cmd.Flags().Changed("no-color") {
		noColor = config.GetBool("no-color")
	} else {
		config.Set("no-color", noColor)
	}
	if !cmd.Flags().Changed("team") {
		teamFlag = config.GetString("team")
	} else {
		config.Set("team", teamFlag)
	}
	if !cmd.Flags().Changed("days") {
		daysFlag = config.GetInt("days")
	} else {
		config.Set("days", daysFlag)
	}

	// Agent environments get machine-readable output without asking
	if ui.IsAgentMode() {
		jsonOutput = true
	}
	if noColor {
		os.Setenv("NO_COLOR", "1")
	}
}

// findAbacusDir resolves the .abacus directory: --config-dir wins, then the
// nearest .abacus walking up from CWD, then ./.abacus for commands that
// create it.
func findAbacusDir() string {
	if configDir != "" {
		return configDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return config.DirName
	}
	for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, config.DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return config.DirName
}

// resolveTeam returns the team key: --team flag (already config-merged),
// then the teams roster primary, then metadata.json.
func resolveTeam() string {
	if teamFlag != "" {
		return teamFlag
	}
	if tc := config.GetTeamsConfig(); tc != nil && tc.Primary != "" {
		return tc.Primary
	}
	if meta, err := configfile.Load(findAbacusDir()); err == nil && meta != nil {
		return meta.Team
	}
	return ""
}

// resolveCycleDays returns the cycle length: --days flag (config-merged),
// then metadata.json, then the default.
func resolveCycleDays() int {
	if daysFlag > 0 {
		return daysFlag
	}
	if meta, err := configfile.Load(findAbacusDir()); err == nil && meta != nil && meta.CycleDays > 0 {
		return meta.CycleDays
	}
	return 0 // planner substitutes types.DefaultCycleDays
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
