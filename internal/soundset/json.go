package soundset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tileworld/sfxmix/internal/sfx"
)

// File is the on-disk sound-set format:
//
//	{"name": "classic", "sounds": {"chip_loses": "bummer.wav", "door_opened": "door.ogg"}}
//
// Relative paths are taken relative to the sound-set file.
type File struct {
	Name   string            `json:"name"`
	Sounds map[string]string `json:"sounds"`
}

// JSONMapper maps slot names to the single path listed in a sound-set file
type JSONMapper struct {
	name    string
	mapping map[string]string
}

// NewJSONMapper creates a mapper from a slot-name to path mapping
func NewJSONMapper(name string, mapping map[string]string) *JSONMapper {
	slog.Debug("creating JSON mapper", "name", name, "mapping_keys_count", len(mapping))
	return &JSONMapper{name: name, mapping: mapping}
}

// LoadJSONMapper reads a sound-set file. Unknown slot names are rejected so
// typos surface at load time.
func LoadJSONMapper(fs afero.Fs, path string) (*JSONMapper, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sound set: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sound set %s: %w", path, err)
	}

	base := filepath.Dir(path)
	mapping := make(map[string]string, len(file.Sounds))
	var unknown []string
	for slotName, soundPath := range file.Sounds {
		slot, err := sfx.SlotByName(slotName)
		if err != nil {
			unknown = append(unknown, slotName)
			continue
		}
		if !filepath.IsAbs(soundPath) {
			soundPath = filepath.Join(base, soundPath)
		}
		mapping[sfx.SlotName(slot)] = soundPath
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("sound set %s: %w: %s", path, sfx.ErrInvalidSlot, strings.Join(unknown, ", "))
	}

	name := file.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return NewJSONMapper(name, mapping), nil
}

// MapSlot returns the mapped path, or nothing for an unmapped slot
func (j *JSONMapper) MapSlot(slotName string) ([]string, error) {
	if path, ok := j.mapping[slotName]; ok {
		return []string{path}, nil
	}
	return nil, nil
}

// GetName returns the sound-set name
func (j *JSONMapper) GetName() string {
	return j.name
}

// GetType returns "json"
func (j *JSONMapper) GetType() string {
	return "json"
}
