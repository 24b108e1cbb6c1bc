package config

import (
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeXDG roots every path under /xdg
type fakeXDG struct{}

func (fakeXDG) GetConfigPaths(filename string) []string {
	return []string{"/xdg/config/sfxmix/" + filename, "/xdg/etc/sfxmix/" + filename}
}

func (fakeXDG) GetSoundPaths(setName string) []string {
	return []string{filepath.Join("/xdg/data/sfxmix/sounds", setName), filepath.Join("/xdg/share/sfxmix/sounds", setName)}
}

func (fakeXDG) GetCachePath(purpose string) string {
	return filepath.Join("/xdg/cache/sfxmix", purpose)
}

func (fakeXDG) CreateCacheDir(string) error { return nil }

func newTestManager(t *testing.T) (*ConfigManager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewConfigManagerWithDependencies(fs, fakeXDG{}), fs
}

func TestGetDefaultConfig(t *testing.T) {
	cm, _ := newTestManager(t)
	cfg := cm.GetDefaultConfig()

	assert.Equal(t, 1.0, cfg.Volume)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "auto", cfg.AudioBackend)
	assert.Equal(t, 18, cfg.OneShotCount)
	assert.Equal(t, 26, cfg.SlotCount)
	assert.Equal(t, 20, cfg.TicksPerSecond)
	assert.Equal(t, 4, cfg.MaxConcurrentDecodes)
	require.NotNil(t, cfg.FileLogging)
	require.NotNil(t, cfg.Tracking)
	assert.True(t, cfg.Tracking.Enabled)
	assert.NoError(t, cm.ValidateConfig(cfg))
}

func TestLoadFromFile_PartialKeepsDefaults(t *testing.T) {
	cm, fs := newTestManager(t)
	require.NoError(t, afero.WriteFile(fs, "/cfg.json", []byte(`{"volume": 0, "sound_dir": "/snd", "buffer_scale": 2}`), 0644))

	cfg, err := cm.LoadFromFile("/cfg.json")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Volume, "explicit zero volume must survive")
	assert.Equal(t, "/snd", cfg.SoundDir)
	assert.Equal(t, 2, cfg.BufferScale)
	assert.Equal(t, 26, cfg.SlotCount)
	assert.True(t, cfg.Enabled)
}

func TestLoadFromFile_Errors(t *testing.T) {
	cm, fs := newTestManager(t)

	_, err := cm.LoadFromFile("/missing.json")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/bad.json", []byte(`{"volume":`), 0644))
	_, err = cm.LoadFromFile("/bad.json")
	assert.ErrorContains(t, err, "parse")

	require.NoError(t, afero.WriteFile(fs, "/invalid.json", []byte(`{"volume": 3}`), 0644))
	_, err = cm.LoadFromFile("/invalid.json")
	assert.ErrorContains(t, err, "volume")
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	cm, fs := newTestManager(t)
	cfg := cm.GetDefaultConfig()
	cfg.Volume = 0.25
	cfg.SoundSet = "/sets/classic.json"

	require.NoError(t, cm.SaveToFile(cfg, "/out/nested/config.json"))

	data, err := afero.ReadFile(fs, "/out/nested/config.json")
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 0.25, raw["volume"])

	loaded, err := cm.LoadFromFile("/out/nested/config.json")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveToFile_RejectsInvalid(t *testing.T) {
	cm, fs := newTestManager(t)
	cfg := cm.GetDefaultConfig()
	cfg.SlotCount = 0

	assert.Error(t, cm.SaveToFile(cfg, "/config.json"))
	exists, _ := afero.Exists(fs, "/config.json")
	assert.False(t, exists)
}

func TestSaveToFile_OsFsUsesLock(t *testing.T) {
	cm := NewConfigManagerWithDependencies(afero.NewOsFs(), fakeXDG{})
	path := filepath.Join(t.TempDir(), "config.json")

	require.NoError(t, cm.SaveToFile(cm.GetDefaultConfig(), path))

	exists, err := afero.Exists(afero.NewOsFs(), path+".lock")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoadConfig_Discovery(t *testing.T) {
	cm, fs := newTestManager(t)

	cfg, err := cm.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, cm.GetDefaultConfig(), cfg)

	require.NoError(t, afero.WriteFile(fs, "/xdg/etc/sfxmix/config.json", []byte(`{"log_level":"info"}`), 0644))
	cfg, err = cm.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)

	require.NoError(t, afero.WriteFile(fs, "/xdg/config/sfxmix/config.json", []byte(`{"log_level":"debug"}`), 0644))
	assert.Equal(t, "/xdg/config/sfxmix/config.json", cm.FindConfigFile())
	cfg, err = cm.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "user config takes priority")
}

func TestValidateConfig(t *testing.T) {
	cm, _ := newTestManager(t)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"volume high", func(c *Config) { c.Volume = 1.5 }, "volume"},
		{"volume negative", func(c *Config) { c.Volume = -0.1 }, "volume"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"backend", func(c *Config) { c.AudioBackend = "alsa" }, "audio backend"},
		{"slot count", func(c *Config) { c.SlotCount = 65 }, "slot_count"},
		{"one shot count", func(c *Config) { c.OneShotCount = 27 }, "one_shot_count"},
		{"ticks", func(c *Config) { c.TicksPerSecond = 0 }, "ticks_per_second"},
		{"buffer scale", func(c *Config) { c.BufferScale = 4 }, "buffer_scale"},
		{"decodes", func(c *Config) { c.MaxConcurrentDecodes = 0 }, "max_concurrent_decodes"},
		{"log size", func(c *Config) { c.FileLogging.MaxSizeMB = -1 }, "max_size_mb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cm.GetDefaultConfig()
			tt.mutate(cfg)
			err := cm.ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("all problems reported", func(t *testing.T) {
		cfg := cm.GetDefaultConfig()
		cfg.Volume = 2
		cfg.BufferScale = 9
		err := cm.ValidateConfig(cfg)
		require.Error(t, err)
		assert.Len(t, strings.Split(err.Error(), "\n"), 2)
	})

	t.Run("empty backend and log level allowed", func(t *testing.T) {
		cfg := cm.GetDefaultConfig()
		cfg.AudioBackend = ""
		cfg.LogLevel = ""
		assert.NoError(t, cm.ValidateConfig(cfg))
	})
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	cm, _ := newTestManager(t)
	base := cm.GetDefaultConfig()

	t.Setenv("SFXMIX_VOLUME", "0.3")
	t.Setenv("SFXMIX_ENABLED", "false")
	t.Setenv("SFXMIX_LOG_LEVEL", "DEBUG")
	t.Setenv("SFXMIX_AUDIO_BACKEND", "null")
	t.Setenv("SFXMIX_SOUND_DIR", "/env/sounds")
	t.Setenv("SFXMIX_TRACKING", "0")

	got := cm.ApplyEnvironmentOverrides(base)
	assert.Equal(t, 0.3, got.Volume)
	assert.False(t, got.Enabled)
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, "null", got.AudioBackend)
	assert.Equal(t, "/env/sounds", got.SoundDir)
	assert.False(t, got.Tracking.Enabled)

	assert.Equal(t, 1.0, base.Volume, "input must not be modified")
	assert.True(t, base.Tracking.Enabled)
}

func TestApplyEnvironmentOverrides_InvalidValuesIgnored(t *testing.T) {
	cm, _ := newTestManager(t)

	t.Setenv("SFXMIX_VOLUME", "7")
	t.Setenv("SFXMIX_ENABLED", "maybe")
	t.Setenv("SFXMIX_LOG_LEVEL", "chatty")
	t.Setenv("SFXMIX_AUDIO_BACKEND", "pulse")
	t.Setenv("SFXMIX_TRACKING", "sometimes")

	got := cm.ApplyEnvironmentOverrides(cm.GetDefaultConfig())
	assert.Equal(t, cm.GetDefaultConfig(), got)
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("trace")
	assert.Error(t, err)
}

func TestResolvePaths(t *testing.T) {
	cm, fs := newTestManager(t)

	assert.Equal(t, "/custom.log", cm.ResolveLogFilePath("/custom.log"))
	assert.Equal(t, "/xdg/cache/sfxmix/logs/sfxmix.log", cm.ResolveLogFilePath(""))
	assert.Equal(t, "/xdg/cache/sfxmix/decodes.db", cm.ResolveDatabasePath(""))
	assert.Equal(t, "/db.sqlite", cm.ResolveDatabasePath("/db.sqlite"))
	assert.Equal(t, "/xdg/config/sfxmix/config.json", cm.UserConfigPath())

	assert.Equal(t, "", cm.ResolveSoundDir(""))
	require.NoError(t, fs.MkdirAll("/xdg/share/sfxmix/sounds", 0755))
	assert.Equal(t, "/xdg/share/sfxmix/sounds", cm.ResolveSoundDir(""))
	assert.Equal(t, "/mine", cm.ResolveSoundDir("/mine"))
}

func TestIsValidAudioBackend(t *testing.T) {
	cm, _ := newTestManager(t)
	for _, b := range []string{"", "auto", "malgo", "oto", "system_command", "null"} {
		assert.True(t, cm.IsValidAudioBackend(b), b)
	}
	assert.False(t, cm.IsValidAudioBackend("coreaudio"))
}
