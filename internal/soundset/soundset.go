package soundset

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/tileworld/sfxmix/internal/sfx"
)

// ErrEmptySlotName is returned when resolving an empty slot name
var ErrEmptySlotName = errors.New("slot name cannot be empty")

// PathMapper maps a slot name to candidate file paths, best first
type PathMapper interface {
	MapSlot(slotName string) ([]string, error)
	GetName() string
	GetType() string
}

// Assignment is one resolved slot of a sound set
type Assignment struct {
	Slot int
	Name string
	Path string
}

// Resolver turns slot names into existing files using a PathMapper
type Resolver struct {
	fs     afero.Fs
	mapper PathMapper
}

// NewResolver creates a Resolver checking candidates on fs
func NewResolver(fs afero.Fs, mapper PathMapper) *Resolver {
	slog.Debug("creating sound set resolver",
		"mapper_name", mapper.GetName(),
		"mapper_type", mapper.GetType())

	return &Resolver{fs: fs, mapper: mapper}
}

// Resolve returns the first candidate for slotName that exists
func (r *Resolver) Resolve(slotName string) (string, error) {
	if slotName == "" {
		return "", ErrEmptySlotName
	}

	candidates, err := r.mapper.MapSlot(slotName)
	if err != nil {
		slog.Error("slot mapping failed", "slot_name", slotName, "error", err)
		return "", fmt.Errorf("slot mapping failed: %w", err)
	}

	for _, candidate := range candidates {
		exists, err := afero.Exists(r.fs, candidate)
		if err != nil {
			slog.Debug("candidate check failed", "candidate", candidate, "error", err)
			continue
		}
		if exists {
			slog.Debug("slot resolved",
				"slot_name", slotName,
				"path", candidate,
				"mapper_type", r.mapper.GetType())
			return candidate, nil
		}
	}

	return "", &FileNotFoundError{SlotName: slotName, Paths: candidates}
}

// ResolveAll resolves every slot below slotCount. Slots without a file are
// skipped and their names returned in missing.
func (r *Resolver) ResolveAll(slotCount int) (found []Assignment, missing []string) {
	for slot := 0; slot < slotCount; slot++ {
		name := sfx.SlotName(slot)
		path, err := r.Resolve(name)
		if err != nil {
			missing = append(missing, name)
			continue
		}
		found = append(found, Assignment{Slot: slot, Name: name, Path: path})
	}

	slog.Info("sound set resolved",
		"mapper_name", r.mapper.GetName(),
		"found", len(found),
		"missing", len(missing))
	return found, missing
}

// GetName returns the name of the underlying mapper
func (r *Resolver) GetName() string {
	return r.mapper.GetName()
}

// GetType returns the type of the underlying mapper
func (r *Resolver) GetType() string {
	return r.mapper.GetType()
}

// FileNotFoundError reports a slot with no existing candidate file
type FileNotFoundError struct {
	SlotName string
	Paths    []string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("sound file not found for %s (searched: %s)", e.SlotName, strings.Join(e.Paths, ", "))
}

// IsFileNotFoundError checks if err is or wraps a FileNotFoundError
func IsFileNotFoundError(err error) bool {
	var target *FileNotFoundError
	return errors.As(err, &target)
}
