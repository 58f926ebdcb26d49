package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tasktracker/internal/config"
	"tasktracker/internal/storage/sqlite"
	"tasktracker/internal/util"
)

var (
	cfgFile string
	v       = viper.New()
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "tasktracker",
		Short: "Personal kanban task tracker with an AI assistant",
		Long: `tasktracker keeps projects and tasks in a local SQLite file and serves
them to the desktop board over a local HTTP API. The WorkBuddy assistant
answers questions about your tasks through a local or cloud language model.`,
		PersistentPreRunE: initConfig,
		RunE:              runServe, // Default action is serve
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", util.EnvOrDefault("TASKTRACKER_CONFIG", ""),
		"config file (default is $HOME/.config/tasktracker/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "path to the sqlite database file")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	mustBindFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	mustBindFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// mustBindFlag binds a declared flag to a config key. A nil flag is a
// programming error.
func mustBindFlag(key string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("flag for %q is not declared", key))
	}
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag for %q: %v", key, err))
	}
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	if _, err := util.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	if err := config.Init(v, cfgFile); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// loadConfig unmarshals and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the slog logger described by cfg.
func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// openStore loads config, builds the logger and opens the database.
func openStore(logOut io.Writer) (*config.Config, *slog.Logger, *sqlite.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cfg.Logging, logOut)

	store, err := sqlite.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unable to open database: %w", err)
	}
	return cfg, logger, store, nil
}
