package soundset

import (
	"path/filepath"
)

// Extensions tried for each slot, in order.
var Extensions = []string{".wav", ".ogg", ".flac", ".mp3", ".aiff", ".aif"}

// DirectoryMapper looks for <slot_name><ext> in each base directory
type DirectoryMapper struct {
	name      string
	basePaths []string
}

// NewDirectoryMapper creates a directory-based mapper
func NewDirectoryMapper(name string, basePaths ...string) *DirectoryMapper {
	return &DirectoryMapper{name: name, basePaths: basePaths}
}

// MapSlot lists every base/ext combination for slotName
func (d *DirectoryMapper) MapSlot(slotName string) ([]string, error) {
	if slotName == "" {
		return nil, nil
	}

	candidates := make([]string, 0, len(d.basePaths)*len(Extensions))
	for _, base := range d.basePaths {
		for _, ext := range Extensions {
			candidates = append(candidates, filepath.Join(base, slotName+ext))
		}
	}
	return candidates, nil
}

// GetName returns the mapper name
func (d *DirectoryMapper) GetName() string {
	return d.name
}

// GetType returns "directory"
func (d *DirectoryMapper) GetType() string {
	return "directory"
}
