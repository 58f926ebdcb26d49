package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tasktracker/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		settings := config.NewSettingsStore(v, cfgFile, nil)
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "config file:        %s\n", settings.File())
		fmt.Fprintf(out, "server.addr:        %s\n", cfg.Server.Addr)
		fmt.Fprintf(out, "server.static_dir:  %s\n", cfg.Server.StaticDir)
		fmt.Fprintf(out, "database.path:      %s\n", cfg.Database.Path)
		fmt.Fprintf(out, "logging.level:      %s\n", cfg.Logging.Level)
		fmt.Fprintf(out, "logging.format:     %s\n", cfg.Logging.Format)
		fmt.Fprintf(out, "assistant.provider: %s\n", cfg.Assistant.Provider)
		fmt.Fprintf(out, "assistant.api_key:  %s\n", config.MaskKey(cfg.Assistant.APIKey))
		fmt.Fprintf(out, "assistant.cloud_model: %s\n", cfg.Assistant.CloudModel)
		fmt.Fprintf(out, "assistant.local_model: %s\n", cfg.Assistant.LocalModel)
		fmt.Fprintf(out, "assistant.timeout:  %s\n", cfg.Assistant.Timeout())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value and save it to the config file",
	Long: `Set a configuration value using its dotted key, for example:

  tasktracker config set assistant.provider cloud
  tasktracker config set assistant.api_key sk-...
  tasktracker config set server.addr 127.0.0.1:9090`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		if !v.IsSet(key) {
			return fmt.Errorf("unknown config key %q", key)
		}

		var value any = args[1]
		switch v.Get(key).(type) {
		case int:
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%s expects an integer: %w", key, err)
			}
			value = n
		case float64:
			f, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("%s expects a number: %w", key, err)
			}
			value = f
		case []string:
			value = strings.Split(args[1], ",")
		}

		prev := v.Get(key)
		v.Set(key, value)
		if _, err := config.Load(v); err != nil {
			v.Set(key, prev)
			return err
		}

		settings := config.NewSettingsStore(v, cfgFile, slog.New(slog.NewTextHandler(os.Stderr, nil)))
		if err := settings.Set(key, value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", key, settings.File())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
