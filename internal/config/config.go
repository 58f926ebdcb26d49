package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete tasktracker configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Assistant AssistantConfig `mapstructure:"assistant"`
}

// ServerConfig controls the local HTTP API
type ServerConfig struct {
	// Addr is the listen address (default: 127.0.0.1:8080)
	Addr string `mapstructure:"addr"`
	// StaticDir holds the built frontend; empty means API only
	StaticDir string `mapstructure:"static_dir"`
	// CORSOrigins lists origins allowed to call the API (the desktop web view)
	CORSOrigins []string `mapstructure:"cors_origins"`
	// AssistantRate is the sustained assistant requests per second per client
	AssistantRate float64 `mapstructure:"assistant_rate"`
	// AssistantBurst is the token bucket size for assistant requests
	AssistantBurst int `mapstructure:"assistant_burst"`
}

// DatabaseConfig locates the SQLite file
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig controls the slog handler
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format is text or json
	Format string `mapstructure:"format"`
}

// AssistantConfig selects and tunes the inference provider
type AssistantConfig struct {
	// Provider is "local" (Ollama-compatible server) or "cloud" (OpenAI-compatible API)
	Provider   string `mapstructure:"provider"`
	APIKey     string `mapstructure:"api_key"`
	CloudModel string `mapstructure:"cloud_model"`
	LocalModel string `mapstructure:"local_model"`
	// LocalURL is the base URL of the local inference server
	LocalURL string `mapstructure:"local_url"`
	// CloudURL is the base URL of the cloud API, without the /v1 path
	CloudURL    string  `mapstructure:"cloud_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	// TimeoutSeconds bounds every provider call (0 means the default of 30)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// HistoryLimit is how many earlier chat messages go into the prompt
	HistoryLimit int `mapstructure:"history_limit"`
}

// Provider names
const (
	ProviderLocal = "local"
	ProviderCloud = "cloud"
)

const defaultAssistantTimeout = 30 * time.Second

// Default returns a Config populated with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			StaticDir:      "web/dist",
			CORSOrigins:    []string{"http://localhost:1420", "tauri://localhost"},
			AssistantRate:  1,
			AssistantBurst: 5,
		},
		Database: DatabaseConfig{
			Path: "data/tasktracker.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Assistant: AssistantConfig{
			Provider:       ProviderLocal,
			APIKey:         "",
			CloudModel:     "gpt-4o-mini",
			LocalModel:     "llama3.2",
			LocalURL:       "http://localhost:11434",
			CloudURL:       "https://api.openai.com",
			Temperature:    0.3,
			MaxTokens:      1024,
			TimeoutSeconds: 30,
			HistoryLimit:   10,
		},
	}
}

// Timeout returns the provider call timeout as a time.Duration
func (a AssistantConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return defaultAssistantTimeout
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.static_dir", defaults.Server.StaticDir)
	v.SetDefault("server.cors_origins", defaults.Server.CORSOrigins)
	v.SetDefault("server.assistant_rate", defaults.Server.AssistantRate)
	v.SetDefault("server.assistant_burst", defaults.Server.AssistantBurst)

	v.SetDefault("database.path", defaults.Database.Path)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	v.SetDefault("assistant.provider", defaults.Assistant.Provider)
	v.SetDefault("assistant.api_key", defaults.Assistant.APIKey)
	v.SetDefault("assistant.cloud_model", defaults.Assistant.CloudModel)
	v.SetDefault("assistant.local_model", defaults.Assistant.LocalModel)
	v.SetDefault("assistant.local_url", defaults.Assistant.LocalURL)
	v.SetDefault("assistant.cloud_url", defaults.Assistant.CloudURL)
	v.SetDefault("assistant.temperature", defaults.Assistant.Temperature)
	v.SetDefault("assistant.max_tokens", defaults.Assistant.MaxTokens)
	v.SetDefault("assistant.timeout_seconds", defaults.Assistant.TimeoutSeconds)
	v.SetDefault("assistant.history_limit", defaults.Assistant.HistoryLimit)
}

// Init prepares v: defaults, config file search path, TASKTRACKER_* env
// overrides. A missing config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TASKTRACKER")
	// TASKTRACKER_ASSISTANT_API_KEY for assistant.api_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tasktracker")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tasktracker"
	}
	return filepath.Join(home, ".config", "tasktracker")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidProviders returns the recognized assistant providers
func ValidProviders() []string {
	return []string{ProviderLocal, ProviderCloud}
}

// IsValidProvider checks if the given provider name is recognized
func IsValidProvider(provider string) bool {
	for _, valid := range ValidProviders() {
		if provider == valid {
			return true
		}
	}
	return false
}
