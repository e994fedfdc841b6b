// Package snapshot loads and validates the planning snapshots the engine
// consumes. JSON is the native format; YAML files are accepted and bridged
// through JSON so both share one schema.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abacushq/abacus/internal/types"
)

// Load reads a snapshot from path. Files ending in .yaml or .yml parse as
// YAML; everything else parses as JSON. The snapshot comes back defaulted
// and validated: a missing top-level section is fatal and the error names
// every absent section.
func Load(path string) (*types.Snapshot, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- snapshot path comes from the caller
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

// Parse decodes and validates a JSON snapshot. Unknown fields are ignored
// so snapshots produced by newer fetchers stay loadable.
func Parse(data []byte) (*types.Snapshot, error) {
	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return finish(&snap)
}

// ParseYAML decodes and validates a YAML snapshot. The document is bridged
// through JSON so the struct tags and key casing match Parse exactly.
func ParseYAML(data []byte) (*types.Snapshot, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	bridged, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return Parse(bridged)
}

// Save writes a snapshot to path as indented JSON, the format Load reads
// back. Used by the fetcher to persist what it pulled from the tracker.
func Save(path string, snap *types.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func finish(snap *types.Snapshot) (*types.Snapshot, error) {
	// Grade an omitted trend or confidence from the raw samples before
	// defaulting pins them at the floor. AvgPerDay is left alone: its
	// derivation needs the cycle length, which only the planner knows.
	if v := snap.HistoricalVelocity; v != nil && len(v.Samples) > 0 {
		derived := types.DeriveVelocity(v.Samples, 0)
		if v.Trend == "" {
			v.Trend = derived.Trend
		}
		if v.Confidence == "" {
			v.Confidence = derived.Confidence
		}
	}
	snap.SetDefaults()
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}
