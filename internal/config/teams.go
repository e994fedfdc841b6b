package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TeamsConfig represents the teams section of config.yaml: the roster of
// Linear team keys abacus plans for. Primary is the team used when no
// --team flag is given; Additional are extra teams covered by --all-teams.
type TeamsConfig struct {
	Primary    string   `yaml:"primary,omitempty"`
	Additional []string `yaml:"additional,omitempty,flow"`
}

// All returns every team in the roster, primary first.
func (tc *TeamsConfig) All() []string {
	if tc == nil {
		return nil
	}
	teams := make([]string, 0, 1+len(tc.Additional))
	if tc.Primary != "" {
		teams = append(teams, tc.Primary)
	}
	teams = append(teams, tc.Additional...)
	return teams
}

// FindConfigYAMLPath finds the config.yaml file in the .abacus directory,
// walking up from CWD.
func FindConfigYAMLPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		configPath := filepath.Join(dir, DirName, "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", fmt.Errorf("no %s/config.yaml found in current directory or parents", DirName)
}

// GetTeamsFromYAML reads the teams configuration from config.yaml.
// Returns an empty TeamsConfig if the teams section doesn't exist.
func GetTeamsFromYAML(configPath string) (*TeamsConfig, error) {
	data, err := os.ReadFile(configPath) // #nosec G304 - config file path from caller
	if err != nil {
		if os.IsNotExist(err) {
			return &TeamsConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	var cfg map[string]interface{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
	}

	teams := &TeamsConfig{}
	if teamsRaw, ok := cfg["teams"]; ok && teamsRaw != nil {
		teamsMap, ok := teamsRaw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("teams section is not a map")
		}

		if primary, ok := teamsMap["primary"].(string); ok {
			teams.Primary = primary
		}

		if additional, ok := teamsMap["additional"]; ok && additional != nil {
			if list, ok := additional.([]interface{}); ok {
				for _, item := range list {
					if str, ok := item.(string); ok {
						teams.Additional = append(teams.Additional, str)
					}
				}
			}
		}
	}

	return teams, nil
}

// SetTeamsInYAML writes the teams configuration to config.yaml.
// It preserves other config sections and comments where possible.
func SetTeamsInYAML(configPath string, teams *TeamsConfig) error {
	data, err := os.ReadFile(configPath) // #nosec G304 - config file path from caller
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config.yaml: %w", err)
	}

	// Parse existing config into yaml.Node to preserve structure
	var root yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &root); err != nil {
			return fmt.Errorf("failed to parse config.yaml: %w", err)
		}
	}

	// Handle empty or comment-only files by creating a valid document structure
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{Kind: yaml.MappingNode},
			},
		}
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		root.Content[0] = &yaml.Node{Kind: yaml.MappingNode}
		mapping = root.Content[0]
	}

	// Find or create the teams section
	teamsIndex := -1
	for i := 0; i < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == "teams" {
			teamsIndex = i
			break
		}
	}

	teamsNode := buildTeamsNode(teams)

	if teamsIndex >= 0 {
		if teamsNode == nil {
			// Remove teams section entirely if empty
			mapping.Content = append(mapping.Content[:teamsIndex], mapping.Content[teamsIndex+2:]...)
		} else {
			mapping.Content[teamsIndex+1] = teamsNode
		}
	} else if teamsNode != nil {
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "teams"},
			teamsNode,
		)
	}

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config.yaml: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config.yaml: %w", err)
	}

	// Reload viper config so changes take effect immediately
	if v != nil {
		if err := v.ReadInConfig(); err != nil {
			// Not fatal - config is on disk, will be picked up on next command
			_ = err
		}
	}

	return nil
}

// buildTeamsNode creates a yaml.Node for the teams configuration.
// Returns nil if the roster is empty.
func buildTeamsNode(teams *TeamsConfig) *yaml.Node {
	if teams == nil || (teams.Primary == "" && len(teams.Additional) == 0) {
		return nil
	}

	node := &yaml.Node{Kind: yaml.MappingNode}

	if teams.Primary != "" {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "primary"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: teams.Primary, Style: yaml.DoubleQuotedStyle},
		)
	}

	if len(teams.Additional) > 0 {
		additionalNode := &yaml.Node{Kind: yaml.SequenceNode}
		for _, key := range teams.Additional {
			additionalNode.Content = append(additionalNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: key, Style: yaml.DoubleQuotedStyle},
			)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "additional"},
			additionalNode,
		)
	}

	return node
}

// AddTeam adds a team key to the roster in config.yaml. The first team
// added becomes the primary; later ones land in additional.
func AddTeam(configPath, teamKey string) error {
	teamKey = strings.TrimSpace(teamKey)
	if teamKey == "" {
		return fmt.Errorf("team key must not be empty")
	}

	teams, err := GetTeamsFromYAML(configPath)
	if err != nil {
		return fmt.Errorf("failed to get teams config: %w", err)
	}

	if teams.Primary == teamKey {
		return fmt.Errorf("team already configured: %s", teamKey)
	}
	for _, existing := range teams.Additional {
		if existing == teamKey {
			return fmt.Errorf("team already configured: %s", teamKey)
		}
	}

	if teams.Primary == "" {
		teams.Primary = teamKey
	} else {
		teams.Additional = append(teams.Additional, teamKey)
	}

	return SetTeamsInYAML(configPath, teams)
}

// RemoveTeam removes a team key from the roster in config.yaml. Removing
// the primary promotes the first additional team in its place.
func RemoveTeam(configPath, teamKey string) error {
	teams, err := GetTeamsFromYAML(configPath)
	if err != nil {
		return fmt.Errorf("failed to get teams config: %w", err)
	}

	if teams.Primary == teamKey {
		if len(teams.Additional) > 0 {
			teams.Primary = teams.Additional[0]
			teams.Additional = teams.Additional[1:]
		} else {
			teams.Primary = ""
		}
		return SetTeamsInYAML(configPath, teams)
	}

	found := false
	newAdditional := make([]string, 0, len(teams.Additional))
	for _, existing := range teams.Additional {
		if existing == teamKey {
			found = true
			continue
		}
		newAdditional = append(newAdditional, existing)
	}

	if !found {
		return fmt.Errorf("team not found: %s", teamKey)
	}

	teams.Additional = newAdditional
	return SetTeamsInYAML(configPath, teams)
}

// ListTeams returns the current team roster from YAML.
func ListTeams(configPath string) (*TeamsConfig, error) {
	return GetTeamsFromYAML(configPath)
}
