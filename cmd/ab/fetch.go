package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/config"
	"github.com/abacushq/abacus/internal/configfile"
	"github.com/abacushq/abacus/internal/linear"
	"github.com/abacushq/abacus/internal/snapshot"
	"github.com/abacushq/abacus/internal/types"
)

var fetchCmd = &cobra.Command{
	Use:     "fetch",
	Short:   "Build a planning snapshot from Linear",
	GroupID: "data",
	Run: func(cmd *cobra.Command, args []string) {
		outPath, _ := cmd.Flags().GetString("out")

		var snap *types.Snapshot
		var path string
		var err error
		if outPath != "" {
			snap, err = fetchSnapshot(rootCtx)
			if err != nil {
				fatal(err)
			}
			if err := snapshot.Save(outPath, snap); err != nil {
				fatal(err)
			}
			path = outPath
		} else {
			snap, path, err = fetchSnapshotToCache(rootCtx)
			if err != nil {
				fatal(err)
			}
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"path":  path,
				"items": len(snap.Items()),
			})
			return
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Wrote snapshot with %d backlog items to %s\n",
			green("✓"), len(snap.Items()), path)
	},
}

// fetchSnapshot pulls a fresh snapshot for the resolved team from Linear.
func fetchSnapshot(ctx context.Context) (*types.Snapshot, error) {
	team := resolveTeam()
	if team == "" {
		return nil, fmt.Errorf("no team configured (set --team, AB_TEAM, or a teams roster in config)")
	}
	apiKey := config.GetString("linear.api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("LINEAR_API_KEY is not set")
	}
	client := linear.NewClient(apiKey)
	snap, err := client.FetchSnapshot(ctx, team)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// fetchSnapshotToCache fetches and writes the snapshot into the .abacus
// directory, updating metadata.json so later commands find it.
func fetchSnapshotToCache(ctx context.Context) (*types.Snapshot, string, error) {
	snap, err := fetchSnapshot(ctx)
	if err != nil {
		return nil, "", err
	}

	dir := findAbacusDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, "", fmt.Errorf("create %s: %w", dir, err)
	}
	meta, err := configfile.LoadOrDefault(dir)
	if err != nil {
		return nil, "", err
	}
	path := meta.SnapshotPath(dir)
	if err := snapshot.Save(path, snap); err != nil {
		return nil, "", err
	}
	meta.RecordFetch(resolveTeam(), time.Now())
	if err := meta.Save(dir); err != nil {
		return nil, "", err
	}
	return snap, path, nil
}

func init() {
	fetchCmd.Flags().String("out", "", "Write the snapshot to this path instead of the .abacus cache")
	rootCmd.AddCommand(fetchCmd)
}
