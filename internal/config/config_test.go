package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitialize(t *testing.T) {
	err := Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	if v == nil {
		t.Fatal("viper instance is nil after Initialize()")
	}
}

func TestDefaults(t *testing.T) {
	err := Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	tests := []struct {
		key      string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"json", false, func(k string) interface{} { return GetBool(k) }},
		{"no-color", false, func(k string) interface{} { return GetBool(k) }},
		{"team", "", func(k string) interface{} { return GetString(k) }},
		{"days", 14, func(k string) interface{} { return GetInt(k) }},
		{"db", "", func(k string) interface{} { return GetString(k) }},
		{"history.mode", "embedded", func(k string) interface{} { return GetString(k) }},
		{"history.server_host", "127.0.0.1", func(k string) interface{} { return GetString(k) }},
		{"history.server_port", 3307, func(k string) interface{} { return GetInt(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := tt.getter(tt.key)
			if got != tt.expected {
				t.Errorf("GetXXX(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestEnvironmentBinding(t *testing.T) {
	tests := []struct {
		envVar   string
		key      string
		value    string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"AB_JSON", "json", "true", true, func(k string) interface{} { return GetBool(k) }},
		{"AB_NO_COLOR", "no-color", "true", true, func(k string) interface{} { return GetBool(k) }},
		{"AB_TEAM", "team", "ENG", "ENG", func(k string) interface{} { return GetString(k) }},
		{"ABACUS_TEAM", "team", "PLAT", "PLAT", func(k string) interface{} { return GetString(k) }},
		{"AB_DAYS", "days", "10", 10, func(k string) interface{} { return GetInt(k) }},
		{"AB_DB", "db", "/tmp/history", "/tmp/history", func(k string) interface{} { return GetString(k) }},
		{"ABACUS_HISTORY_MODE", "history.mode", "server", "server", func(k string) interface{} { return GetString(k) }},
		{"ABACUS_BRIEF_MODEL", "brief.model", "claude-sonnet-4-5", "claude-sonnet-4-5", func(k string) interface{} { return GetString(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.envVar, func(t *testing.T) {
			oldValue := os.Getenv(tt.envVar)
			_ = os.Setenv(tt.envVar, tt.value)
			defer os.Setenv(tt.envVar, oldValue)

			// Re-initialize viper to pick up env var
			err := Initialize()
			if err != nil {
				t.Fatalf("Initialize() returned error: %v", err)
			}

			got := tt.getter(tt.key)
			if got != tt.expected {
				t.Errorf("GetXXX(%q) with %s=%s = %v, want %v", tt.key, tt.envVar, tt.value, got, tt.expected)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	abacusDir := filepath.Join(tmpDir, ".abacus")
	if err := os.MkdirAll(abacusDir, 0750); err != nil {
		t.Fatalf("failed to create .abacus directory: %v", err)
	}

	configContent := `
json: true
no-color: true
team: PLAT
days: 10
`
	configPath := filepath.Join(abacusDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	// Change to tmp directory so config file is discovered
	t.Chdir(tmpDir)

	var err error
	err = Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	if got := GetBool("json"); got != true {
		t.Errorf("GetBool(json) = %v, want true", got)
	}

	if got := GetBool("no-color"); got != true {
		t.Errorf("GetBool(no-color) = %v, want true", got)
	}

	if got := GetString("team"); got != "PLAT" {
		t.Errorf("GetString(team) = %q, want \"PLAT\"", got)
	}

	if got := GetInt("days"); got != 10 {
		t.Errorf("GetInt(days) = %d, want 10", got)
	}
}

func TestConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `json: false`
	abacusDir := filepath.Join(tmpDir, ".abacus")
	if err := os.MkdirAll(abacusDir, 0750); err != nil {
		t.Fatalf("failed to create .abacus directory: %v", err)
	}

	configPath := filepath.Join(abacusDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Chdir(tmpDir)

	// Test 1: Config file value (json: false)
	var err error
	err = Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	if got := GetBool("json"); got != false {
		t.Errorf("GetBool(json) from config file = %v, want false", got)
	}

	// Test 2: Environment variable overrides config file
	_ = os.Setenv("AB_JSON", "true")
	defer func() { _ = os.Unsetenv("AB_JSON") }()

	err = Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	if got := GetBool("json"); got != true {
		t.Errorf("GetBool(json) with env var = %v, want true (env should override config)", got)
	}
}

func TestSetAndGet(t *testing.T) {
	err := Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	Set("test-key", "test-value")
	if got := GetString("test-key"); got != "test-value" {
		t.Errorf("GetString(test-key) = %q, want \"test-value\"", got)
	}

	Set("test-bool", true)
	if got := GetBool("test-bool"); got != true {
		t.Errorf("GetBool(test-bool) = %v, want true", got)
	}

	Set("test-int", 42)
	if got := GetInt("test-int"); got != 42 {
		t.Errorf("GetInt(test-int) = %d, want 42", got)
	}

	Set("test-duration", "90s")
	if got := GetDuration("test-duration"); got != 90*time.Second {
		t.Errorf("GetDuration(test-duration) = %v, want 90s", got)
	}
}

func TestAllSettings(t *testing.T) {
	err := Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	Set("custom-key", "custom-value")

	settings := AllSettings()
	if settings == nil {
		t.Fatal("AllSettings() returned nil")
	}

	if val, ok := settings["custom-key"]; !ok || val != "custom-value" {
		t.Errorf("AllSettings() missing or incorrect custom-key: got %v", val)
	}
}

func TestGetStringSlice(t *testing.T) {
	err := Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	Set("test-slice", []string{"a", "b", "c"})
	got := GetStringSlice("test-slice")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("GetStringSlice(test-slice) = %v, want [a b c]", got)
	}

	// Non-existent key - should return empty slice
	got = GetStringSlice("nonexistent-key")
	if len(got) != 0 {
		t.Errorf("GetStringSlice(nonexistent-key) = %v, want empty slice", got)
	}
}

func TestGetStringSliceFromConfig(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
teams:
  primary: ENG
  additional:
    - PLAT
    - INFRA
`
	abacusDir := filepath.Join(tmpDir, ".abacus")
	if err := os.MkdirAll(abacusDir, 0750); err != nil {
		t.Fatalf("failed to create .abacus directory: %v", err)
	}

	configPath := filepath.Join(abacusDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Chdir(tmpDir)

	var err error
	err = Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	got := GetStringSlice("teams.additional")
	if len(got) != 2 || got[0] != "PLAT" || got[1] != "INFRA" {
		t.Errorf("GetStringSlice(teams.additional) = %v, want [PLAT INFRA]", got)
	}
}

func TestGetTeamsConfig(t *testing.T) {
	err := Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	// No roster configured (single-team mode)
	config := GetTeamsConfig()
	if config != nil {
		t.Errorf("GetTeamsConfig() with no teams.primary = %+v, want nil", config)
	}

	Set("teams.primary", "ENG")
	Set("teams.additional", []string{"PLAT", "INFRA"})

	config = GetTeamsConfig()
	if config == nil {
		t.Fatal("GetTeamsConfig() returned nil when teams.primary is set")
	}

	if config.Primary != "ENG" {
		t.Errorf("GetTeamsConfig().Primary = %q, want \"ENG\"", config.Primary)
	}

	if len(config.Additional) != 2 || config.Additional[0] != "PLAT" || config.Additional[1] != "INFRA" {
		t.Errorf("GetTeamsConfig().Additional = %v, want [PLAT INFRA]", config.Additional)
	}

	all := config.All()
	if len(all) != 3 || all[0] != "ENG" || all[1] != "PLAT" || all[2] != "INFRA" {
		t.Errorf("TeamsConfig.All() = %v, want [ENG PLAT INFRA]", all)
	}
}

func TestGetTeamsConfigFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
teams:
  primary: ENG
  additional:
    - PLAT
    - INFRA
    - DATA
`
	abacusDir := filepath.Join(tmpDir, ".abacus")
	if err := os.MkdirAll(abacusDir, 0750); err != nil {
		t.Fatalf("failed to create .abacus directory: %v", err)
	}

	configPath := filepath.Join(abacusDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Chdir(tmpDir)

	var err error
	err = Initialize()
	if err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	config := GetTeamsConfig()
	if config == nil {
		t.Fatal("GetTeamsConfig() returned nil")
	}

	if config.Primary != "ENG" {
		t.Errorf("GetTeamsConfig().Primary = %q, want \"ENG\"", config.Primary)
	}

	if len(config.Additional) != 3 {
		t.Errorf("GetTeamsConfig().Additional has %d items, want 3", len(config.Additional))
	}
}

func TestNilViperBehavior(t *testing.T) {
	savedV := v

	v = nil
	defer func() { v = savedV }()

	// All getters should return zero values without panicking
	if got := GetString("any-key"); got != "" {
		t.Errorf("GetString with nil viper = %q, want \"\"", got)
	}

	if got := GetBool("any-key"); got != false {
		t.Errorf("GetBool with nil viper = %v, want false", got)
	}

	if got := GetInt("any-key"); got != 0 {
		t.Errorf("GetInt with nil viper = %d, want 0", got)
	}

	if got := GetDuration("any-key"); got != 0 {
		t.Errorf("GetDuration with nil viper = %v, want 0", got)
	}

	if got := GetStringSlice("any-key"); got == nil || len(got) != 0 {
		t.Errorf("GetStringSlice with nil viper = %v, want empty slice", got)
	}

	if got := AllSettings(); got == nil || len(got) != 0 {
		t.Errorf("AllSettings with nil viper = %v, want empty map", got)
	}

	if got := GetTeamsConfig(); got != nil {
		t.Errorf("GetTeamsConfig with nil viper = %+v, want nil", got)
	}

	// Set should not panic
	Set("any-key", "any-value") // Should be a no-op
}
