package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/khrees2412/talentflow/internal/config"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage configuration",
	Long:        "View and update configuration settings",
	Annotations: map[string]string{skipAppAnnotation: "true"},
}

var secretKeys = map[string]bool{"redis_password": true}

var showConfigCmd = &cobra.Command{
	Use:         "show",
	Short:       "Display current configuration",
	Annotations: map[string]string{skipAppAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(configFile); err != nil {
			return err
		}
		values := map[string]string{}
		for _, key := range config.Keys {
			v := config.Get(key)
			if secretKeys[key] && v != "" {
				v = "✓ Configured"
			}
			values[key] = v
		}
		path := configFile
		if path == "" {
			path = config.GetConfigPath()
		}
		return respond(cmd, "configuration loaded from "+path, values, nil, func(w io.Writer) {
			fmt.Fprintln(w, titleStyle.Render("Configuration"))
			for _, key := range config.Keys {
				field(w, key, values[key])
			}
		})
	},
}

var setConfigCmd = &cobra.Command{
	Use:         "set",
	Short:       "Update a configuration value",
	Annotations: map[string]string{skipAppAnnotation: "true"},
	Example: `  talentflow config set --key actor_id --value ta-1
  talentflow config set --key nats_url --value nats://localhost:4222
  talentflow config set --key cooling_off_fresher_days --value 45`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		value, _ := cmd.Flags().GetString("value")
		if key == "" {
			return apperrors.InvalidInput("--key is required", nil)
		}
		if !slices.Contains(config.Keys, key) {
			return apperrors.InvalidInput(fmt.Sprintf("invalid key, must be one of: %v", config.Keys), nil)
		}
		if err := config.Initialize(configFile); err != nil {
			return err
		}
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("error updating config: %w", err)
		}
		return respond(cmd, "configuration updated: "+key, map[string]string{key: value}, nil, nil)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(setConfigCmd)

	setConfigCmd.Flags().String("key", "", "Configuration key")
	setConfigCmd.Flags().String("value", "", "Configuration value")
}
