package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/refresh/am"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage refresh configuration",
	Long: `am - Manage refresh configuration ("I am")

Configuration sources (in order of precedence):
1. Command line flags (--root)
2. Environment variables (REFRESH_* prefix)
3. Explicit config (--config)
4. Project config (./am.toml or ./refresh.toml, searched upwards)
5. User config (~/.refresh/am.toml)
6. System config (/etc/refresh/am.toml)
7. Default values

Examples:
  refresh am show                 # Show current configuration
  refresh am show --format json   # Show configuration in JSON format
  refresh am validate             # Validate current configuration
  refresh am init                 # Write a default am.toml`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective refresh configuration from all sources",
	Args:  cobra.NoArgs,
	RunE:  runAmShow,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmValidate,
}

var amInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Long: `Write the default configuration as TOML, to ./am.toml unless a path is given.
An existing file is rotated into .back1/.back2/.back3 first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAmInit,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amInitCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := am.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if root, _ := cmd.Flags().GetString("root"); root != "" {
		cfg.Project.Root = root
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Printf("# refresh configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# refresh configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		pterm.Error.Printf("Configuration is invalid: %v\n", err)
		return &ExitError{Code: 1}
	}

	pterm.Success.Println("Configuration is valid")
	fmt.Printf("  Project:  %s\n", cfg.RootDir())
	fmt.Printf("  Artifact: %s\n", cfg.ArtifactPath())
	fmt.Printf("  Backups:  %s\n", cfg.BackupDir())

	if _, err := os.Stat(cfg.RootDir()); err != nil {
		pterm.Warning.Printf("Project root %s does not exist\n", cfg.RootDir())
	}
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := "am.toml"
	if len(args) == 1 {
		path = args[0]
	}

	if err := am.WriteConfig(am.Defaults(), path); err != nil {
		return err
	}
	pterm.Success.Printf("Wrote default configuration to %s\n", path)
	return nil
}
