package main

import (
	"fmt"
	"os"

	"github.com/abacushq/abacus/internal/configfile"
	"github.com/abacushq/abacus/internal/planner"
	"github.com/abacushq/abacus/internal/queues"
	"github.com/abacushq/abacus/internal/snapshot"
	"github.com/abacushq/abacus/internal/types"
)

// resolveSnapshotPath picks the snapshot file for a command: an explicit
// argument wins, otherwise the cached snapshot recorded in metadata.json by
// `ab fetch`.
func resolveSnapshotPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	dir := findAbacusDir()
	meta, err := configfile.LoadOrDefault(dir)
	if err != nil {
		return "", err
	}
	path := meta.SnapshotPath(dir)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no snapshot at %s (run 'ab fetch' or pass a snapshot file)", path)
	}
	return path, nil
}

// loadSnapshotArg loads the snapshot a command should plan against.
func loadSnapshotArg(args []string) (*types.Snapshot, string, error) {
	path, err := resolveSnapshotPath(args)
	if err != nil {
		return nil, "", err
	}
	snap, err := snapshot.Load(path)
	if err != nil {
		return nil, "", err
	}
	return snap, path, nil
}

// newPlanner builds a Planner for the resolved cycle length, with any
// routing.toml extension routes from the .abacus directory merged in.
func newPlanner(cycleDays int) (*planner.Planner, error) {
	routes, err := queues.LoadRoutes(findAbacusDir())
	if err != nil {
		return nil, err
	}
	return planner.New(planner.Options{CycleDays: cycleDays, Routes: routes})
}
