package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/configfile"
	"github.com/abacushq/abacus/internal/report"
	"github.com/abacushq/abacus/internal/snapshot"
	"github.com/abacushq/abacus/internal/telemetry"
	"github.com/abacushq/abacus/internal/types"
	"github.com/abacushq/abacus/internal/ui"
)

var planCmd = &cobra.Command{
	Use:     "plan [snapshot]",
	Short:   "Run the full planning pipeline over a snapshot",
	GroupID: "planning",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fetchFirst, _ := cmd.Flags().GetBool("fetch")
		outPath, _ := cmd.Flags().GetString("out")
		reportPath, _ := cmd.Flags().GetString("report")
		watch, _ := cmd.Flags().GetBool("watch")
		apply, _ := cmd.Flags().GetBool("apply")
		startStr, _ := cmd.Flags().GetString("start")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		cycleStart, err := parseCycleStart(startStr)
		if err != nil {
			fatal(err)
		}

		var snap *types.Snapshot
		var snapPath string
		if fetchFirst {
			snap, snapPath, err = fetchSnapshotToCache(rootCtx)
		} else {
			snap, snapPath, err = loadSnapshotArg(args)
		}
		if err != nil {
			fatal(err)
		}

		result, err := runPipeline(rootCtx, snap, timeout)
		if err != nil {
			fatal(err)
		}

		meta := report.Meta{
			Team:        resolveTeam(),
			GeneratedAt: time.Now(),
			CycleDays:   effectiveCycleDays(),
			CycleStart:  cycleStart,
		}
		renderPlan(result, snap, meta)

		if outPath != "" {
			if err := writePlanJSON(outPath, result); err != nil {
				fatal(err)
			}
			recordPlanRun(outPath, meta.CycleDays)
		}
		if reportPath != "" {
			md := report.Markdown(result, snap, meta)
			if err := os.WriteFile(reportPath, []byte(md), 0600); err != nil {
				fatal(fmt.Errorf("write report: %w", err))
			}
		}

		if apply {
			if err := applyPlan(rootCtx, result, meta); err != nil {
				fatal(err)
			}
		}

		if watch {
			watchAndReplan(snapPath, timeout, meta)
		}
	},
}

// runPipeline plans one snapshot, instrumented and optionally raced against
// a deadline. The engine itself never polls for cancellation; the race
// discards a result that arrives after the deadline.
func runPipeline(ctx context.Context, snap *types.Snapshot, timeout time.Duration) (*types.PlanResult, error) {
	p, err := newPlanner(resolveCycleDays())
	if err != nil {
		return nil, err
	}
	fn := p.Plan
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		fn = p.PlanWithDeadline
	}
	return telemetry.InstrumentPlan(fn)(ctx, snap)
}

// effectiveCycleDays is resolveCycleDays with the default made concrete for
// display and metadata purposes.
func effectiveCycleDays() int {
	if days := resolveCycleDays(); days > 0 {
		return days
	}
	return types.DefaultCycleDays
}

// parseCycleStart turns a natural-language start ("next monday", "tomorrow")
// into a date. Empty input means the cycle is not scheduled yet.
func parseCycleStart(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(text, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --start: %w", err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand --start %q (try 'next monday' or a date)", text)
	}
	return r.Time, nil
}

// renderPlan prints a plan: raw JSON for agents, a styled markdown report
// for humans.
func renderPlan(result *types.PlanResult, snap *types.Snapshot, meta report.Meta) {
	if jsonOutput {
		outputJSON(result)
		return
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("\n%s Cycle plan: %d items, %d points (%.0f%% of capacity)\n",
		cyan("▸"), len(result.Selection.Items), result.Selection.TotalEffort,
		result.Selection.Utilization*100)

	rendered := ui.RenderMarkdown(report.Markdown(result, snap, meta))
	if err := ui.ToPager(rendered, ui.PagerOptions{}); err != nil {
		fmt.Print(rendered)
	}

	for _, flag := range result.Flags {
		fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderWarnIcon(), flag.Message)
	}
}

// writePlanJSON persists the structured result for downstream agents and
// `ab brief`.
func writePlanJSON(path string, result *types.PlanResult) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	defer func() { _ = f.Close() }()
	return report.WriteJSON(f, result)
}

// recordPlanRun notes the plan output in metadata.json so `ab brief` can
// find it without an argument. Best effort: metadata failures never fail
// the plan.
func recordPlanRun(outPath string, cycleDays int) {
	dir := findAbacusDir()
	meta, err := configfile.LoadOrDefault(dir)
	if err != nil {
		return
	}
	meta.RecordPlan(outPath, cycleDays, time.Now())
	_ = meta.Save(dir)
}

// applyPlan confirms the selection interactively and records the planned
// commitment as the expected points for the next cycle in the history store.
func applyPlan(ctx context.Context, result *types.PlanResult, meta report.Meta) error {
	team := meta.Team
	if team == "" {
		return fmt.Errorf("--apply needs a team (set --team or a teams roster in config)")
	}

	confirmed := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Commit %d items (%d points) for team %s?",
					len(result.Selection.Items), result.Selection.TotalEffort, team)).
				Description("Records this plan as the expected scope for the next cycle.").
				Affirmative("Commit").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("confirmation: %w", err)
	}
	if !confirmed {
		fmt.Fprintln(os.Stderr, "Plan not applied.")
		return nil
	}

	store, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cycle, err := nextCycleNumber(ctx, store, team)
	if err != nil {
		return err
	}
	if err := store.Record(ctx, team, cycle, float64(result.Selection.TotalEffort), meta.CycleDays); err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Recorded %d points as cycle %d for %s\n",
		green("✓"), result.Selection.TotalEffort, cycle, team)
	return nil
}

// watchAndReplan re-runs the pipeline whenever the snapshot file changes.
// Blocks until interrupted.
func watchAndReplan(snapPath string, timeout time.Duration, meta report.Meta) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatal(fmt.Errorf("create watcher: %w", err))
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: editors replace files on save,
	// which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(snapPath)); err != nil {
		fatal(fmt.Errorf("watch %s: %w", filepath.Dir(snapPath), err))
	}

	fmt.Fprintf(os.Stderr, "\nWatching %s for changes... (Press Ctrl+C to exit)\n", snapPath)

	var debounceTimer *time.Timer
	debounceDelay := 500 * time.Millisecond
	base := filepath.Base(snapPath)

	for {
		select {
		case <-rootCtx.Done():
			fmt.Fprintf(os.Stderr, "\nStopped watching.\n")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && filepath.Base(event.Name) == base {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, func() {
					snap, err := snapshot.Load(snapPath)
					if err != nil {
						fmt.Fprintf(os.Stderr, "Error: %v\n", err)
						return
					}
					result, err := runPipeline(rootCtx, snap, timeout)
					if err != nil {
						fmt.Fprintf(os.Stderr, "Error: %v\n", err)
						return
					}
					meta.GeneratedAt = time.Now()
					renderPlan(result, snap, meta)
					fmt.Fprintf(os.Stderr, "\nWatching %s for changes... (Press Ctrl+C to exit)\n", snapPath)
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		}
	}
}

func init() {
	planCmd.Flags().Bool("fetch", false, "Fetch a fresh snapshot from Linear before planning")
	planCmd.Flags().String("out", "", "Write the structured result as JSON to this path")
	planCmd.Flags().String("report", "", "Write the markdown report to this path")
	planCmd.Flags().Bool("watch", false, "Re-plan whenever the snapshot file changes")
	planCmd.Flags().Bool("apply", false, "Confirm and record the planned scope in the history store")
	planCmd.Flags().String("start", "", "Cycle start date, natural language accepted (e.g. \"next monday\")")
	planCmd.Flags().Duration("timeout", 0, "Soft deadline for the planning run (0 = none)")
	rootCmd.AddCommand(planCmd)
}
