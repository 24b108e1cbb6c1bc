package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appDir = "sfxmix"

// XDGDirs resolves sfxmix paths under the XDG base directories. The base
// directories are captured at construction.
type XDGDirs struct {
	configHome string
	configDirs []string
	dataHome   string
	dataDirs   []string
	cacheHome  string
}

// NewXDGDirs reads the base directories from the environment via adrg/xdg
func NewXDGDirs() *XDGDirs {
	return &XDGDirs{
		configHome: xdg.ConfigHome,
		configDirs: xdg.ConfigDirs,
		dataHome:   xdg.DataHome,
		dataDirs:   xdg.DataDirs,
		cacheHome:  xdg.CacheHome,
	}
}

// searchPath joins rel under home and then under each of dirs, in that order
func searchPath(home string, dirs []string, rel string) []string {
	paths := make([]string, 0, 1+len(dirs))
	paths = append(paths, filepath.Join(home, rel))
	for _, dir := range dirs {
		paths = append(paths, filepath.Join(dir, rel))
	}
	return paths
}

// GetSoundPaths returns the directories searched for sound files, user
// data dir first. A non-empty setName selects a subdirectory.
func (x *XDGDirs) GetSoundPaths(setName string) []string {
	paths := searchPath(x.dataHome, x.dataDirs, filepath.Join(appDir, "sounds", setName))
	slog.Debug("generated sound paths", "set_name", setName, "total_paths", len(paths))
	return paths
}

// GetConfigPaths returns config file candidates, user config dir first
func (x *XDGDirs) GetConfigPaths(filename string) []string {
	paths := searchPath(x.configHome, x.configDirs, filepath.Join(appDir, filename))
	slog.Debug("generated config paths", "filename", filename, "user_path", paths[0])
	return paths
}

// GetCachePath returns sfxmix's cache directory, or a subdirectory for purpose
func (x *XDGDirs) GetCachePath(purpose string) string {
	return filepath.Join(x.cacheHome, appDir, purpose)
}

// CreateCacheDir creates the cache directory for purpose
func (x *XDGDirs) CreateCacheDir(purpose string) error {
	cachePath := x.GetCachePath(purpose)
	if err := os.MkdirAll(cachePath, 0755); err != nil {
		slog.Error("failed to create cache directory", "path", cachePath, "error", err)
		return err
	}
	return nil
}
