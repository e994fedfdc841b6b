package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Key describes a known configuration key.
type Key struct {
	Name        string // Full key name (e.g., "history.server_port")
	Description string // Human-readable description
	EnvVar      string // Corresponding env var name (empty = no env mapping)
	Secret      bool   // If true, value is redacted when displayed
	Default     string // Default value (empty = no default)
	Validate    func(string) error
}

// Keys defines all configuration keys that `ab config set` accepts.
// The team roster (teams.*) is deliberately absent; it is managed
// structurally by `ab team`.
var Keys = []Key{
	{
		Name:        "json",
		Description: "Emit machine-readable JSON instead of styled output",
		EnvVar:      "AB_JSON",
		Default:     "false",
		Validate:    validateBool,
	},
	{
		Name:        "no-color",
		Description: "Disable ANSI color in human output",
		EnvVar:      "AB_NO_COLOR",
		Default:     "false",
		Validate:    validateBool,
	},
	{
		Name:        "team",
		Description: "Default Linear team key (e.g., ENG)",
		EnvVar:      "AB_TEAM",
	},
	{
		Name:        "days",
		Description: "Planning cycle length in days",
		EnvVar:      "AB_DAYS",
		Default:     "14",
		Validate:    validatePositiveInt,
	},
	{
		Name:        "db",
		Description: "Velocity history directory (embedded mode)",
		EnvVar:      "AB_DB",
	},
	{
		Name:        "linear.api_key",
		Description: "Linear API key for snapshot fetches",
		EnvVar:      "LINEAR_API_KEY",
		Secret:      true,
	},
	{
		Name:        "anthropic.api_key",
		Description: "Anthropic API key for kickoff briefs",
		EnvVar:      "ANTHROPIC_API_KEY",
		Secret:      true,
	},
	{
		Name:        "brief.model",
		Description: "Model used for kickoff briefs",
		EnvVar:      "ABACUS_BRIEF_MODEL",
	},
	{
		Name:        KeyHistoryMode,
		Description: "History store mode (embedded, server)",
		EnvVar:      "ABACUS_HISTORY_MODE",
		Default:     string(HistoryModeEmbedded),
		Validate:    validateHistoryMode,
	},
	{
		Name:        KeyHistoryDatabase,
		Description: "History database name",
		EnvVar:      "ABACUS_HISTORY_DATABASE",
		Default:     "abacus",
	},
	{
		Name:        KeyHistoryServerHost,
		Description: "dolt sql-server hostname (server mode)",
		EnvVar:      "ABACUS_HISTORY_HOST",
		Default:     "127.0.0.1",
	},
	{
		Name:        KeyHistoryServerPort,
		Description: "dolt sql-server port (server mode)",
		EnvVar:      "ABACUS_HISTORY_PORT",
		Default:     "3307",
		Validate:    validatePort,
	},
	{
		Name:        KeyHistoryServerUser,
		Description: "dolt sql-server username (server mode)",
		EnvVar:      "ABACUS_HISTORY_USER",
		Default:     "root",
	},
	{
		Name:        KeyHistoryServerPassword,
		Description: "dolt sql-server password (server mode)",
		EnvVar:      "ABACUS_HISTORY_PASSWORD",
		Secret:      true,
	},
	{
		Name:        KeyHistoryServerTLS,
		Description: "Require TLS for dolt sql-server connections",
		EnvVar:      "ABACUS_HISTORY_TLS",
		Default:     "false",
		Validate:    validateBool,
	},
}

// keyMap is a lookup table built from Keys.
var keyMap map[string]*Key

func init() {
	keyMap = make(map[string]*Key, len(Keys))
	for i := range Keys {
		keyMap[Keys[i].Name] = &Keys[i]
	}
}

// LookupKey returns the Key definition for a (possibly aliased) key name.
// Returns nil if the key is not recognized.
func LookupKey(key string) *Key {
	return keyMap[normalizeYamlKey(key)]
}

// ValidateKey checks whether a config key is known and the value is valid.
// Returns nil if valid, or an error describing the problem.
func ValidateKey(key, value string) error {
	name := normalizeYamlKey(key)

	if strings.HasPrefix(name, "teams.") {
		return fmt.Errorf("key %q is managed by 'ab team', not 'ab config set'", key)
	}

	k := keyMap[name]
	if k == nil {
		known := make([]string, 0, len(Keys))
		for _, kk := range Keys {
			known = append(known, kk.Name)
		}
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(known, ", "))
	}

	if k.Validate != nil {
		if err := k.Validate(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
	}

	return nil
}

// DisplayValue formats a value for listing, redacting secrets.
func DisplayValue(k *Key, value string) string {
	if k != nil && k.Secret {
		if value == "" {
			return "(unset)"
		}
		return "(set)"
	}
	return value
}

// KeyEnvMap returns a mapping from config key to environment variable name.
func KeyEnvMap() map[string]string {
	m := make(map[string]string, len(Keys))
	for _, k := range Keys {
		if k.EnvVar != "" {
			m[k.Name] = k.EnvVar
		}
	}
	return m
}

// Validation helpers

func validatePort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be a number, got %q", value)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validatePositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be a number, got %q", value)
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}

func validateBool(value string) error {
	switch strings.ToLower(value) {
	case "true", "false", "1", "0", "yes", "no":
		return nil
	default:
		return fmt.Errorf("must be true or false, got %q", value)
	}
}

func validateHistoryMode(value string) error {
	mode := HistoryMode(strings.ToLower(strings.TrimSpace(value)))
	if !validHistoryModes[mode] {
		return fmt.Errorf("must be one of: embedded, server; got %q", value)
	}
	return nil
}
