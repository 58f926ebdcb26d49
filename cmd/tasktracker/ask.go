package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tasktracker/internal/assistant"
	"tasktracker/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask WorkBuddy a question about your tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, store, err := openStore(os.Stderr)
		if err != nil {
			return err
		}
		defer store.Close()

		settings := config.NewSettingsStore(v, cfgFile, logger)
		bridge := assistant.NewBridge(store, settings, assistant.WithLogger(logger))

		answer, err := bridge.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("%s%w", assistant.WarningPrefix, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(answer))
		return nil
	},
}
