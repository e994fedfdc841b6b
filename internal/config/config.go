// Package config manages abacus configuration through a package-level viper
// instance. Precedence, highest first: explicit Set calls (cobra flag
// binding), environment variables, the discovered .abacus/config.yaml, then
// registered defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/abacushq/abacus/internal/types"
)

// DirName is the per-project configuration directory. Discovery walks up
// from the working directory, the way git finds .git.
const DirName = ".abacus"

// v is nil until Initialize runs. Every accessor tolerates nil so early
// startup paths (help, version) never depend on config having loaded.
var v *viper.Viper

// Initialize builds the viper singleton: defaults, environment bindings, and
// the first config.yaml found walking up from CWD, falling back to the user
// config dir. Safe to call repeatedly; each call rebuilds the instance.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	registerDefaults()
	RegisterHistoryDefaults()
	bindEnv()

	if path := findConfigFile(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}

	return nil
}

func registerDefaults() {
	v.SetDefault("json", false)
	v.SetDefault("no-color", false)
	v.SetDefault("team", "")
	v.SetDefault("days", types.DefaultCycleDays)
	v.SetDefault("db", "")
	v.SetDefault("linear.api_key", "")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("brief.model", "")
}

// bindEnv wires environment overrides. Short AB_* names cover the per-run
// flags; ABACUS_* names cover the longer-lived settings; the two vendor API
// keys keep their conventional names.
func bindEnv() {
	_ = v.BindEnv("json", "AB_JSON")
	_ = v.BindEnv("no-color", "AB_NO_COLOR")
	_ = v.BindEnv("team", "AB_TEAM", "ABACUS_TEAM")
	_ = v.BindEnv("days", "AB_DAYS")
	_ = v.BindEnv("db", "AB_DB")
	_ = v.BindEnv("brief.model", "ABACUS_BRIEF_MODEL")
	_ = v.BindEnv("linear.api_key", "LINEAR_API_KEY")
	_ = v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
}

// findConfigFile prefers the project config over the user-level one at
// os.UserConfigDir()/abacus/config.yaml. Returns "" when neither exists.
func findConfigFile() string {
	if path, err := FindConfigYAMLPath(); err == nil {
		return path
	}
	if base, err := os.UserConfigDir(); err == nil {
		path := filepath.Join(base, "abacus", "config.yaml")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// GetString returns the string value for key, or "" before Initialize.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool returns the bool value for key, or false before Initialize.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt returns the int value for key, or 0 before Initialize.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration returns the duration value for key, or 0 before Initialize.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// GetStringSlice returns the slice value for key. Never returns nil.
func GetStringSlice(key string) []string {
	if v == nil {
		return []string{}
	}
	s := v.GetStringSlice(key)
	if s == nil {
		return []string{}
	}
	return s
}

// Set overrides a value at the highest precedence level. Used by the CLI to
// push resolved flag values into config. No-op before Initialize.
func Set(key string, value interface{}) {
	if v == nil {
		return
	}
	v.Set(key, value)
}

// AllSettings returns the merged view of every configuration source.
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// GetTeamsConfig returns the configured team roster, or nil when no roster
// is configured (single-team mode: the "team" key alone decides).
func GetTeamsConfig() *TeamsConfig {
	if v == nil {
		return nil
	}
	primary := v.GetString("teams.primary")
	if primary == "" {
		return nil
	}
	return &TeamsConfig{
		Primary:    primary,
		Additional: v.GetStringSlice("teams.additional"),
	}
}

// ResetForTesting discards the singleton so tests can exercise the
// uninitialized paths and re-Initialize from a clean slate.
func ResetForTesting() {
	v = nil
}
