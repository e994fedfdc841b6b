package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abacushq/abacus/internal/config"
	"github.com/abacushq/abacus/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Get and set configuration values",
	GroupID: "setup",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := config.LookupKey(args[0])
		if key == nil {
			fatal(fmt.Errorf("unknown config key %q (see 'ab config list')", args[0]))
		}
		value := config.GetYamlConfig(key.Name)
		if jsonOutput {
			outputJSON(map[string]string{"key": key.Name, "value": config.DisplayValue(key, value)})
			return
		}
		fmt.Println(config.DisplayValue(key, value))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in .abacus/config.yaml",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		name, value := args[0], args[1]
		if err := config.ValidateKey(name, value); err != nil {
			fatal(err)
		}
		if err := config.SetYamlConfig(name, value); err != nil {
			fatal(err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"key": name, "value": value})
			return
		}
		fmt.Printf("%s %s = %s\n", ui.RenderPassIcon(), name, value)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all known configuration keys",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			type entry struct {
				Key         string `json:"key"`
				Value       string `json:"value"`
				Default     string `json:"default,omitempty"`
				EnvVar      string `json:"envVar,omitempty"`
				Description string `json:"description"`
			}
			entries := make([]entry, 0, len(config.Keys))
			for i := range config.Keys {
				k := &config.Keys[i]
				entries = append(entries, entry{
					Key:         k.Name,
					Value:       config.DisplayValue(k, config.GetYamlConfig(k.Name)),
					Default:     k.Default,
					EnvVar:      k.EnvVar,
					Description: k.Description,
				})
			}
			outputJSON(entries)
			return
		}
		fmt.Println()
		for i := range config.Keys {
			k := &config.Keys[i]
			value := config.DisplayValue(k, config.GetYamlConfig(k.Name))
			if value == "" {
				value = ui.RenderMuted("(unset)")
			}
			fmt.Printf("  %-28s %s\n", k.Name, value)
			fmt.Printf("  %-28s %s\n", "", ui.RenderMuted(k.Description))
		}
		fmt.Println()
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
