package config

import (
	"log/slog"
	"os"
	"strconv"
)

// TrackingConfig controls the decode-tracking database
type TrackingConfig struct {
	Enabled      bool   `json:"enabled"`       // Whether decode outcomes are recorded
	DatabasePath string `json:"database_path"` // Custom database path (empty = XDG cache path)
}

// GetDefaultTrackingConfig returns the default tracking configuration
func GetDefaultTrackingConfig() *TrackingConfig {
	return &TrackingConfig{
		Enabled:      true,
		DatabasePath: "",
	}
}

// ApplyTrackingEnvironmentOverrides applies SFXMIX_TRACKING to a copy of config
func ApplyTrackingEnvironmentOverrides(config *TrackingConfig) *TrackingConfig {
	result := *config

	if trackingStr := os.Getenv("SFXMIX_TRACKING"); trackingStr != "" {
		if enabled, err := strconv.ParseBool(trackingStr); err == nil {
			result.Enabled = enabled
			slog.Debug("applied tracking override from environment", "value", enabled)
		} else {
			slog.Warn("invalid SFXMIX_TRACKING environment variable", "value", trackingStr, "error", err)
		}
	}

	return &result
}
