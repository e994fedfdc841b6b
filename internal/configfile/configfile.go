// Package configfile persists per-project planning metadata in
// .abacus/metadata.json: which team the project plans for, the cycle
// length, and when the last fetch and plan happened. Unlike config.yaml
// this file is machine-written; humans edit config.yaml, abacus edits
// metadata.json.
package configfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abacushq/abacus/internal/types"
)

const ConfigFileName = "metadata.json"

// defaultSnapshotFile is the cached snapshot filename used when the
// metadata doesn't name one.
const defaultSnapshotFile = "snapshot.json"

type Config struct {
	Team      string `json:"team,omitempty"`
	CycleDays int    `json:"cycle_days,omitempty"`

	// Snapshot is the cached snapshot filename within the .abacus
	// directory, written by `ab fetch`.
	Snapshot    string     `json:"snapshot,omitempty"`
	LastFetchAt *time.Time `json:"last_fetch_at,omitempty"`

	// LastPlanOut is the path of the most recent plan result, so
	// `ab brief` can pick it up without an explicit argument.
	LastPlanOut string     `json:"last_plan_out,omitempty"`
	LastPlanAt  *time.Time `json:"last_plan_at,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		CycleDays: types.DefaultCycleDays,
		Snapshot:  defaultSnapshotFile,
	}
}

func ConfigPath(abacusDir string) string {
	return filepath.Join(abacusDir, ConfigFileName)
}

// Load reads metadata.json from the given .abacus directory.
// Returns (nil, nil) when the file doesn't exist.
func Load(abacusDir string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(abacusDir)) // #nosec G304 - controlled path from config
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault reads metadata.json, falling back to defaults when the file
// doesn't exist yet.
func LoadOrDefault(abacusDir string) (*Config, error) {
	cfg, err := Load(abacusDir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// Save writes metadata.json via temp file + rename so a crash mid-write
// never leaves a truncated file behind.
func (c *Config) Save(abacusDir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	data = append(data, '\n')

	// CreateTemp opens with 0600, which is also the mode we want to keep.
	tmp, err := os.CreateTemp(abacusDir, ConfigFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp metadata: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp metadata: %w", err)
	}

	if err := os.Rename(tmpPath, ConfigPath(abacusDir)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing metadata: %w", err)
	}

	return nil
}

// SnapshotPath returns the absolute path of the cached snapshot file.
func (c *Config) SnapshotPath(abacusDir string) string {
	name := c.Snapshot
	if name == "" {
		name = defaultSnapshotFile
	}
	return filepath.Join(abacusDir, name)
}

// GetCycleDays returns the configured cycle length, or the default if not set.
func (c *Config) GetCycleDays() int {
	if c.CycleDays <= 0 {
		return types.DefaultCycleDays
	}
	return c.CycleDays
}

// RecordFetch updates the metadata after a successful snapshot fetch.
func (c *Config) RecordFetch(team string, at time.Time) {
	c.Team = team
	c.LastFetchAt = &at
}

// RecordPlan updates the metadata after a completed plan.
func (c *Config) RecordPlan(outPath string, cycleDays int, at time.Time) {
	c.LastPlanOut = outPath
	c.LastPlanAt = &at
	if cycleDays > 0 {
		c.CycleDays = cycleDays
	}
}
