package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfig represents the subset of config.yaml fields that need to be
// read directly from the file rather than through the viper singleton. This
// is needed when --config-dir points at a different .abacus directory than
// the one viper discovered from CWD, or when checking config before viper is
// initialized.
type LocalConfig struct {
	Team string `yaml:"team"`
	Days int    `yaml:"days"`
	DB   string `yaml:"db"`
}

// LoadLocalConfig reads and parses config.yaml directly from the specified
// .abacus directory, bypassing the viper singleton.
//
// Returns an empty LocalConfig (not nil) if the file doesn't exist or can't
// be parsed.
func LoadLocalConfig(abacusDir string) *LocalConfig {
	configPath := filepath.Join(abacusDir, "config.yaml")
	data, err := os.ReadFile(configPath) // #nosec G304 - config file path from abacusDir
	if err != nil {
		return &LocalConfig{}
	}

	var cfg LocalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &LocalConfig{}
	}

	return &cfg
}

// LoadLocalConfigWithEnv reads config.yaml and applies environment variable
// overrides. Environment variables take precedence over config file values.
//
// Supported environment variables:
// - AB_TEAM / ABACUS_TEAM: overrides team
// - AB_DB: overrides db
func LoadLocalConfigWithEnv(abacusDir string) *LocalConfig {
	cfg := LoadLocalConfig(abacusDir)

	if envTeam := os.Getenv("AB_TEAM"); envTeam != "" {
		cfg.Team = envTeam
	} else if envTeam := os.Getenv("ABACUS_TEAM"); envTeam != "" {
		cfg.Team = envTeam
	}
	if envDB := os.Getenv("AB_DB"); envDB != "" {
		cfg.DB = envDB
	}

	return cfg
}

// GetLocalTeam reads the team key from the local config.yaml file, env
// overrides applied. Convenience wrapper for the common single-field case.
func GetLocalTeam(abacusDir string) string {
	return LoadLocalConfigWithEnv(abacusDir).Team
}
