package config

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// keyAliases maps alternate spellings users reach for to the canonical
// config key. normalizeYamlKey applies them before any lookup or write so
// config.yaml only ever carries canonical names.
var keyAliases = map[string]string{
	"cycle-days":        "days",
	"brief-model":       "brief.model",
	"linear.api-key":    "linear.api_key",
	"anthropic.api-key": "anthropic.api_key",
}

// normalizeYamlKey resolves key aliases to their canonical form.
func normalizeYamlKey(key string) string {
	if canonical, ok := keyAliases[key]; ok {
		return canonical
	}
	return key
}

// SetYamlConfig sets a configuration value in the project's config.yaml
// file. It handles both adding new keys and updating existing (possibly
// commented) keys.
func SetYamlConfig(key, value string) error {
	key = normalizeYamlKey(key)

	configPath, err := findProjectConfigYaml()
	if err != nil {
		return err
	}

	content, err := os.ReadFile(configPath) //nolint:gosec // configPath is from findProjectConfigYaml
	if err != nil {
		return fmt.Errorf("failed to read config.yaml: %w", err)
	}

	newContent, err := updateYamlKey(string(content), key, value)
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, []byte(newContent), 0600); err != nil { //nolint:gosec // configPath is validated
		return fmt.Errorf("failed to write config.yaml: %w", err)
	}

	return nil
}

// GetYamlConfig gets a configuration value through the viper singleton.
// Returns empty string if the key is not set.
func GetYamlConfig(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(normalizeYamlKey(key))
}

// findProjectConfigYaml finds the project's .abacus/config.yaml file.
func findProjectConfigYaml() (string, error) {
	path, err := FindConfigYAMLPath()
	if err != nil {
		return "", fmt.Errorf("no %s/config.yaml found (run 'ab init' first)", DirName)
	}
	return path, nil
}

// updateYamlKey updates a key in yaml content, handling commented-out keys.
// If the key exists (commented or not), it updates it in place.
// If the key doesn't exist, it appends it at the end.
//
//nolint:unparam // error return kept for future validation
func updateYamlKey(content, key, value string) (string, error) {
	formattedValue := formatYamlValue(value)
	newLine := fmt.Sprintf("%s: %s", key, formattedValue)

	// Matches: "key: value" or "# key: value" with optional leading whitespace
	keyPattern := regexp.MustCompile(`^(\s*)(#\s*)?` + regexp.QuoteMeta(key) + `\s*:`)

	found := false
	var result []string

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if keyPattern.MatchString(line) {
			// Found the key - replace with new value (uncommented),
			// preserving leading whitespace
			matches := keyPattern.FindStringSubmatch(line)
			indent := ""
			if len(matches) > 1 {
				indent = matches[1]
			}
			result = append(result, indent+newLine)
			found = true
		} else {
			result = append(result, line)
		}
	}

	if !found {
		// Key not found - append at end, with a blank line before it if
		// content doesn't already end with one
		if len(result) > 0 && result[len(result)-1] != "" {
			result = append(result, "")
		}
		result = append(result, newLine)
	}

	return strings.Join(result, "\n"), nil
}

// formatYamlValue formats a value appropriately for YAML. Booleans,
// numbers, and durations stay bare; everything else is quoted so values
// with colons, hashes, or leading whitespace round-trip safely.
func formatYamlValue(value string) string {
	lower := strings.ToLower(value)
	if lower == "true" || lower == "false" {
		return lower
	}

	if isNumeric(value) {
		return value
	}

	// Duration values (like "30s", "5m") - return as-is
	if isDuration(value) {
		return value
	}

	return fmt.Sprintf("%q", value)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '-' && i == 0 {
			continue
		}
		if c == '.' {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isDuration(s string) bool {
	if len(s) < 2 {
		return false
	}
	suffix := s[len(s)-1]
	if suffix != 's' && suffix != 'm' && suffix != 'h' {
		return false
	}
	return isNumeric(s[:len(s)-1])
}
