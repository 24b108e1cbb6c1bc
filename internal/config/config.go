package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// FileLoggingConfig represents file-based logging configuration
type FileLoggingConfig struct {
	Enabled    bool   `json:"enabled"`      // Whether file logging is enabled
	Filename   string `json:"filename"`     // Log file path (empty = XDG cache path)
	MaxSizeMB  int    `json:"max_size_mb"`  // Max file size in MB before rotation
	MaxBackups int    `json:"max_backups"`  // Max number of backup files to keep
	MaxAgeDays int    `json:"max_age_days"` // Max age in days before deletion
	Compress   bool   `json:"compress"`     // Whether to compress rotated files
}

// Config represents sfxmix configuration
type Config struct {
	Volume       float64 `json:"volume"`        // Master volume (0.0 to 1.0)
	Enabled      bool    `json:"enabled"`       // Whether audio output starts enabled
	LogLevel     string  `json:"log_level"`     // debug, info, warn, error
	AudioBackend string  `json:"audio_backend"` // auto, malgo, oto, system_command, null

	SoundDir string `json:"sound_dir"` // Directory of <slot_name>.<ext> files (empty = XDG data path)
	SoundSet string `json:"sound_set"` // JSON sound-set file; takes precedence over SoundDir

	OneShotCount         int `json:"one_shot_count"`
	SlotCount            int `json:"slot_count"`
	TicksPerSecond       int `json:"ticks_per_second"`
	BufferScale          int `json:"buffer_scale"` // 0-3, device period = tick << scale
	MaxConcurrentDecodes int `json:"max_concurrent_decodes"`

	FileLogging *FileLoggingConfig `json:"file_logging,omitempty"`
	Tracking    *TrackingConfig    `json:"tracking,omitempty"`
}

// XDGInterface defines the interface for XDG directory operations
type XDGInterface interface {
	GetConfigPaths(filename string) []string
	GetSoundPaths(setName string) []string
	GetCachePath(purpose string) string
	CreateCacheDir(purpose string) error
}

// ConfigManager handles loading, saving, and validating configuration
type ConfigManager struct {
	xdg XDGInterface
	fs  afero.Fs
}

// NewConfigManager creates a configuration manager on the OS filesystem
func NewConfigManager() *ConfigManager {
	return NewConfigManagerWithFilesystem(afero.NewOsFs())
}

// NewConfigManagerWithFilesystem creates a configuration manager on fs
func NewConfigManagerWithFilesystem(fs afero.Fs) *ConfigManager {
	slog.Debug("creating new config manager")
	return &ConfigManager{
		xdg: NewXDGDirs(),
		fs:  fs,
	}
}

// NewConfigManagerWithDependencies allows injecting the XDG paths for tests
func NewConfigManagerWithDependencies(fs afero.Fs, xdg XDGInterface) *ConfigManager {
	return &ConfigManager{xdg: xdg, fs: fs}
}

// XDG returns the directory resolver
func (cm *ConfigManager) XDG() XDGInterface {
	return cm.xdg
}

// GetDefaultConfig returns the default configuration
func (cm *ConfigManager) GetDefaultConfig() *Config {
	defaultConfig := &Config{
		Volume:               1.0,
		Enabled:              true,
		LogLevel:             "warn",
		AudioBackend:         "auto",
		OneShotCount:         18,
		SlotCount:            26,
		TicksPerSecond:       20,
		BufferScale:          0,
		MaxConcurrentDecodes: 4,
		FileLogging: &FileLoggingConfig{
			Enabled:    false,
			Filename:   "", // Empty = XDG cache path
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Tracking: GetDefaultTrackingConfig(),
	}

	slog.Debug("generated default config",
		"volume", defaultConfig.Volume,
		"enabled", defaultConfig.Enabled,
		"log_level", defaultConfig.LogLevel,
		"audio_backend", defaultConfig.AudioBackend,
		"slot_count", defaultConfig.SlotCount)

	return defaultConfig
}

// LoadFromFile loads configuration from a specific file. Fields missing
// from the file keep their default values.
func (cm *ConfigManager) LoadFromFile(filePath string) (*Config, error) {
	slog.Debug("loading config from file", "file_path", filePath)

	data, err := afero.ReadFile(cm.fs, filePath)
	if err != nil {
		slog.Error("failed to read config file", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := cm.GetDefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		slog.Error("failed to parse config JSON", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cm.ValidateConfig(config); err != nil {
		slog.Error("config validation failed", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	slog.Debug("config loaded successfully",
		"file_path", filePath,
		"volume", config.Volume,
		"enabled", config.Enabled)

	return config, nil
}

// SaveToFile validates config and writes it as indented JSON. On the OS
// filesystem the write holds an exclusive lock on filePath + ".lock".
func (cm *ConfigManager) SaveToFile(config *Config, filePath string) error {
	slog.Debug("saving config to file", "file_path", filePath)

	if err := cm.ValidateConfig(config); err != nil {
		slog.Error("cannot save invalid config", "error", err)
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	dir := filepath.Dir(filePath)
	if err := cm.fs.MkdirAll(dir, 0755); err != nil {
		slog.Error("failed to create config directory", "directory", dir, "error", err)
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		slog.Error("failed to marshal config", "error", err)
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	write := func() error {
		if err := afero.WriteFile(cm.fs, filePath, data, 0644); err != nil {
			slog.Error("failed to write config file", "file_path", filePath, "error", err)
			return fmt.Errorf("failed to write config file: %w", err)
		}
		return nil
	}

	// flock needs a real file; in-memory filesystems are single-process
	if _, onDisk := cm.fs.(*afero.OsFs); onDisk {
		err = withLock(NewFileLock(filePath+".lock"), write)
	} else {
		err = write()
	}
	if err != nil {
		return err
	}

	slog.Info("config saved successfully", "file_path", filePath)
	return nil
}

// FindConfigFile returns the first existing config file on the XDG search
// path, or "" when there is none.
func (cm *ConfigManager) FindConfigFile() string {
	for i, configPath := range cm.xdg.GetConfigPaths("config.json") {
		if exists, _ := afero.Exists(cm.fs, configPath); exists {
			slog.Debug("found config file", "path_index", i, "path", configPath)
			return configPath
		}
	}
	return ""
}

// LoadConfig loads configuration using XDG path discovery
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	slog.Debug("loading config using XDG path discovery")

	if configPath := cm.FindConfigFile(); configPath != "" {
		return cm.LoadFromFile(configPath)
	}

	slog.Debug("no config file found, using defaults")
	return cm.GetDefaultConfig(), nil
}

// UserConfigPath is where SaveToFile writes by default
func (cm *ConfigManager) UserConfigPath() string {
	return cm.xdg.GetConfigPaths("config.json")[0]
}

// ValidateConfig reports every invalid field as one joined error
func (cm *ConfigManager) ValidateConfig(config *Config) error {
	var errs []error

	if config.Volume < 0.0 || config.Volume > 1.0 {
		errs = append(errs, fmt.Errorf("volume must be between 0.0 and 1.0, got %f", config.Volume))
	}

	if config.LogLevel != "" {
		if _, err := ParseLogLevel(config.LogLevel); err != nil {
			errs = append(errs, err)
		}
	}

	if !cm.IsValidAudioBackend(config.AudioBackend) {
		errs = append(errs, fmt.Errorf("invalid audio backend '%s', must be one of: %s",
			config.AudioBackend, strings.Join(cm.GetSupportedAudioBackends(), ", ")))
	}

	if config.SlotCount < 1 || config.SlotCount > 64 {
		errs = append(errs, fmt.Errorf("slot_count must be between 1 and 64, got %d", config.SlotCount))
	}
	if config.OneShotCount < 0 || config.OneShotCount > config.SlotCount {
		errs = append(errs, fmt.Errorf("one_shot_count must be between 0 and slot_count (%d), got %d",
			config.SlotCount, config.OneShotCount))
	}
	if config.TicksPerSecond < 1 || config.TicksPerSecond > 1000 {
		errs = append(errs, fmt.Errorf("ticks_per_second must be between 1 and 1000, got %d", config.TicksPerSecond))
	}
	if config.BufferScale < 0 || config.BufferScale > 3 {
		errs = append(errs, fmt.Errorf("buffer_scale must be between 0 and 3, got %d", config.BufferScale))
	}
	if config.MaxConcurrentDecodes < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_decodes must be >= 1, got %d", config.MaxConcurrentDecodes))
	}

	if fileLogging := config.FileLogging; fileLogging != nil {
		if fileLogging.MaxSizeMB < 0 {
			errs = append(errs, fmt.Errorf("file logging max_size_mb must be >= 0, got %d", fileLogging.MaxSizeMB))
		}
		if fileLogging.MaxBackups < 0 {
			errs = append(errs, fmt.Errorf("file logging max_backups must be >= 0, got %d", fileLogging.MaxBackups))
		}
		if fileLogging.MaxAgeDays < 0 {
			errs = append(errs, fmt.Errorf("file logging max_age_days must be >= 0, got %d", fileLogging.MaxAgeDays))
		}
	}

	if err := errors.Join(errs...); err != nil {
		slog.Error("config validation failed", "problems", len(errs), "error", err)
		return err
	}

	slog.Debug("config validation passed")
	return nil
}

// ApplyEnvironmentOverrides applies SFXMIX_* environment variables to a
// copy of config. Invalid values are logged and skipped.
func (cm *ConfigManager) ApplyEnvironmentOverrides(config *Config) *Config {
	slog.Debug("applying environment variable overrides")

	result := *config

	if volStr := os.Getenv("SFXMIX_VOLUME"); volStr != "" {
		if vol, err := strconv.ParseFloat(volStr, 64); err == nil && vol >= 0 && vol <= 1 {
			result.Volume = vol
			slog.Debug("applied volume override from environment", "value", vol)
		} else {
			slog.Warn("invalid SFXMIX_VOLUME environment variable", "value", volStr, "error", err)
		}
	}

	if enabledStr := os.Getenv("SFXMIX_ENABLED"); enabledStr != "" {
		if enabled, err := strconv.ParseBool(enabledStr); err == nil {
			result.Enabled = enabled
			slog.Debug("applied enabled override from environment", "value", enabled)
		} else {
			slog.Warn("invalid SFXMIX_ENABLED environment variable", "value", enabledStr, "error", err)
		}
	}

	if logLevel := os.Getenv("SFXMIX_LOG_LEVEL"); logLevel != "" {
		if _, err := ParseLogLevel(logLevel); err == nil {
			result.LogLevel = strings.ToLower(logLevel)
			slog.Debug("applied log level override from environment", "value", logLevel)
		} else {
			slog.Warn("invalid SFXMIX_LOG_LEVEL environment variable", "value", logLevel, "error", err)
		}
	}

	if audioBackend := os.Getenv("SFXMIX_AUDIO_BACKEND"); audioBackend != "" {
		if cm.IsValidAudioBackend(audioBackend) {
			result.AudioBackend = audioBackend
			slog.Debug("applied audio backend override from environment", "value", audioBackend)
		} else {
			slog.Warn("invalid SFXMIX_AUDIO_BACKEND environment variable", "value", audioBackend)
		}
	}

	if soundDir := os.Getenv("SFXMIX_SOUND_DIR"); soundDir != "" {
		result.SoundDir = soundDir
		slog.Debug("applied sound dir override from environment", "value", soundDir)
	}

	tracking := GetDefaultTrackingConfig()
	if config.Tracking != nil {
		tracking = config.Tracking
	}
	result.Tracking = ApplyTrackingEnvironmentOverrides(tracking)

	slog.Debug("environment overrides applied")
	return &result
}

// ParseLogLevel converts a config log level to its slog level
func ParseLogLevel(logLevel string) (slog.Level, error) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", logLevel)
}

// ResolveLogFilePath resolves the log file path using XDG cache directory when filename is empty
func (cm *ConfigManager) ResolveLogFilePath(filename string) string {
	if filename != "" {
		return filename
	}
	return filepath.Join(cm.xdg.GetCachePath("logs"), "sfxmix.log")
}

// ResolveDatabasePath resolves the tracking database path using the XDG
// cache directory when path is empty
func (cm *ConfigManager) ResolveDatabasePath(path string) string {
	if path != "" {
		return path
	}
	return filepath.Join(cm.xdg.GetCachePath(""), "decodes.db")
}

// ResolveSoundDir returns dir when set, otherwise the first existing XDG
// sound directory. It returns "" when nothing exists.
func (cm *ConfigManager) ResolveSoundDir(dir string) string {
	if dir != "" {
		return dir
	}
	for _, candidate := range cm.xdg.GetSoundPaths("") {
		if exists, _ := afero.DirExists(cm.fs, candidate); exists {
			slog.Debug("using XDG sound directory", "path", candidate)
			return candidate
		}
	}
	return ""
}

// GetSupportedAudioBackends returns a list of all supported audio backend types
func (cm *ConfigManager) GetSupportedAudioBackends() []string {
	return []string{"auto", "malgo", "oto", "system_command", "null"}
}

// IsValidAudioBackend checks if an audio backend type is supported.
// Empty means auto.
func (cm *ConfigManager) IsValidAudioBackend(backend string) bool {
	return backend == "" || slices.Contains(cm.GetSupportedAudioBackends(), backend)
}
