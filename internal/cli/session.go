package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/tileworld/sfxmix/internal/audio"
	"github.com/tileworld/sfxmix/internal/config"
	"github.com/tileworld/sfxmix/internal/sfx"
	"github.com/tileworld/sfxmix/internal/soundset"
	"github.com/tileworld/sfxmix/internal/tracking"
)

// createBackend builds the configured output device. A device that cannot
// be created is logged and replaced by the null backend.
func (c *CLI) createBackend(cfg *config.Config) audio.OutputBackend {
	opts := audio.BackendOptions{
		Format:      outputFormat(cfg),
		BufferScale: cfg.BufferScale,
	}

	backend, err := c.backendFactory.CreateBackend(cfg.AudioBackend, opts)
	if err != nil {
		slog.Error("failed to create audio backend, continuing without sound",
			"backend_type", cfg.AudioBackend,
			"error", err)
		return audio.NewNullBackend()
	}
	return backend
}

// decodeObserver returns the tracking recorder, or nil when tracking is off
func (c *CLI) decodeObserver() sfx.DecodeObserver {
	db := c.openTracking()
	if db == nil {
		return nil
	}
	recorder := tracking.NewRecorder(db)
	slog.Debug("decode tracking enabled", "session_id", recorder.SessionID())
	return recorder
}

// newManager creates a Manager on backend, applies the configured volume
// and loads the configured sound set
func (c *CLI) newManager(cfg *config.Config, backend audio.OutputBackend) (*sfx.Manager, error) {
	manager, err := sfx.NewManager(backend, sfx.Options{
		Partition: sfx.Partition{
			OneShotCount: cfg.OneShotCount,
			SlotCount:    cfg.SlotCount,
		},
		Format:               outputFormat(cfg),
		MaxConcurrentDecodes: cfg.MaxConcurrentDecodes,
		Fs:                   c.fsFactory.Sounds(),
		Observer:             c.decodeObserver(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create effect manager: %w", err)
	}

	if err := manager.SetVolume(cfg.Volume); err != nil {
		manager.Close()
		return nil, err
	}

	if _, err := c.loadSoundSet(cfg, manager); err != nil {
		manager.Close()
		return nil, err
	}
	return manager, nil
}

// soundSetResolver picks the sound-set file when one is configured, else the
// sound directory. It returns nil when neither is available.
func (c *CLI) soundSetResolver(cfg *config.Config) (*soundset.Resolver, error) {
	sounds := c.fsFactory.Sounds()

	if cfg.SoundSet != "" {
		mapper, err := soundset.LoadJSONMapper(sounds, cfg.SoundSet)
		if err != nil {
			slog.Error("failed to load sound set", "path", cfg.SoundSet, "error", err)
			return nil, err
		}
		return soundset.NewResolver(sounds, mapper), nil
	}

	dir := c.configManager.ResolveSoundDir(cfg.SoundDir)
	if dir == "" {
		slog.Debug("no sound directory configured")
		return nil, nil
	}
	return soundset.NewResolver(sounds, soundset.NewDirectoryMapper(filepath.Base(dir), dir)), nil
}

// loadSoundSet starts decoding every slot the sound set provides and returns
// how many loads were issued
func (c *CLI) loadSoundSet(cfg *config.Config, manager *sfx.Manager) (int, error) {
	resolver, err := c.soundSetResolver(cfg)
	if err != nil || resolver == nil {
		return 0, err
	}

	found, missing := resolver.ResolveAll(cfg.SlotCount)
	if len(missing) > 0 {
		slog.Debug("sound set has no file for some slots", "sound_set", resolver.GetName(), "missing", missing)
	}

	for _, a := range found {
		if err := manager.LoadEffect(a.Slot, a.Path); err != nil {
			return 0, fmt.Errorf("failed to load %s: %w", a.Name, err)
		}
	}
	return len(found), nil
}
