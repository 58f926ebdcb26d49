package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings are the assistant options the user edits from the settings
// panel. They live in the config file, never in the task database.
type Settings struct {
	Provider   string `json:"provider"`
	APIKey     string `json:"apiKey"`
	CloudModel string `json:"cloudModel"`
	LocalModel string `json:"localModel"`
}

// SettingsUpdate is a partial change; nil fields are kept.
type SettingsUpdate struct {
	Provider   *string `json:"provider"`
	APIKey     *string `json:"apiKey"`
	CloudModel *string `json:"cloudModel"`
	LocalModel *string `json:"localModel"`
}

// MaskKey hides all but the last four characters of an API key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// Masked returns a copy safe to send to a client.
func (s Settings) Masked() Settings {
	s.APIKey = MaskKey(s.APIKey)
	return s
}

// SettingsStore guards a viper instance shared between HTTP handlers and the
// assistant, and persists changes to the config file.
type SettingsStore struct {
	mu     sync.RWMutex
	v      *viper.Viper
	file   string
	logger *slog.Logger
}

// NewSettingsStore wraps v. Changes are written to file, or to the file v
// was read from, or to ConfigFile() when neither is known.
func NewSettingsStore(v *viper.Viper, file string, logger *slog.Logger) *SettingsStore {
	if file == "" {
		file = v.ConfigFileUsed()
	}
	if file == "" {
		file = ConfigFile()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{v: v, file: file, logger: logger}
}

// File is where updates are written.
func (s *SettingsStore) File() string {
	return s.file
}

// Assistant returns the current assistant configuration.
func (s *SettingsStore) Assistant() (AssistantConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cfg AssistantConfig
	if err := s.v.UnmarshalKey("assistant", &cfg); err != nil {
		return AssistantConfig{}, fmt.Errorf("read assistant settings: %w", err)
	}
	return cfg, nil
}

// Settings returns the user-editable subset of the assistant configuration.
func (s *SettingsStore) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Settings{
		Provider:   s.v.GetString("assistant.provider"),
		APIKey:     s.v.GetString("assistant.api_key"),
		CloudModel: s.v.GetString("assistant.cloud_model"),
		LocalModel: s.v.GetString("assistant.local_model"),
	}
}

// Update validates and persists a settings change.
func (s *SettingsStore) Update(u SettingsUpdate) (Settings, error) {
	if u.Provider != nil && !IsValidProvider(*u.Provider) {
		return Settings{}, ValidationErrors{{
			Field:   "assistant.provider",
			Value:   *u.Provider,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidProviders(), ", ")),
		}}
	}

	changes := make(map[string]any)
	if u.Provider != nil {
		changes["assistant.provider"] = *u.Provider
	}
	if u.APIKey != nil {
		changes["assistant.api_key"] = strings.TrimSpace(*u.APIKey)
	}
	if u.CloudModel != nil {
		changes["assistant.cloud_model"] = strings.TrimSpace(*u.CloudModel)
	}
	if u.LocalModel != nil {
		changes["assistant.local_model"] = strings.TrimSpace(*u.LocalModel)
	}

	s.mu.Lock()
	err := s.persist(changes)
	s.mu.Unlock()
	if err != nil {
		return Settings{}, err
	}

	s.logger.Info("assistant settings saved", slog.String("file", s.file))
	return s.Settings(), nil
}

// Set stores a single key given in dotted form, as used by the CLI.
func (s *SettingsStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.persist(map[string]any{key: value})
}

// Reload re-reads the config file into the shared viper instance.
func (s *SettingsStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reload()
}

// persist writes changes on top of what the file already holds. Env
// values, flags and defaults in s.v never reach the file. The shared
// instance is then reloaded from disk so the file keeps ranking below
// env and flags only.
func (s *SettingsStore) persist(changes map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(s.file), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	onDisk := viper.New()
	onDisk.SetConfigFile(s.file)
	if filepath.Ext(s.file) == "" {
		onDisk.SetConfigType("yaml")
	}
	if err := onDisk.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	for key, value := range changes {
		onDisk.Set(key, value)
	}
	if err := onDisk.WriteConfigAs(s.file); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return s.reload()
}

// reload expects s.mu to be held for writing.
func (s *SettingsStore) reload() error {
	s.v.SetConfigFile(s.file)
	if filepath.Ext(s.file) == "" {
		s.v.SetConfigType("yaml")
	}
	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config file: %w", err)
	}
	return nil
}

// Watch reloads the config file when it changes on disk, so edits made by
// hand or by the CLI reach a running server. It stops when ctx is done.
// The directory is watched rather than the file so editors that replace
// the file on save are still seen.
func (s *SettingsStore) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.file)
	if _, err := os.Stat(dir); err != nil {
		s.logger.Debug("config directory missing; settings watch disabled", slog.String("dir", dir))
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.file)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					s.logger.Warn("config reload failed", slog.String("file", event.Name), slog.String("error", err.Error()))
					continue
				}
				s.logger.Info("config file changed", slog.String("file", event.Name))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("config watcher error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}
