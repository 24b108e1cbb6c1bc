package fs

import (
	"github.com/spf13/afero"
)

// Factory provides filesystem instances for production and testing
type Factory interface {
	// Production returns a filesystem that operates on the real OS filesystem
	Production() afero.Fs
	// Sounds returns the filesystem effects are decoded from. Decoding
	// never writes, so production hands out a read-only view.
	Sounds() afero.Fs
}

// DefaultFactory serves the OS filesystem
type DefaultFactory struct{}

// NewDefaultFactory creates a new filesystem factory
func NewDefaultFactory() Factory {
	return &DefaultFactory{}
}

// Production returns a filesystem that operates on the real OS filesystem
func (f *DefaultFactory) Production() afero.Fs {
	return afero.NewOsFs()
}

// Sounds returns a read-only view of the OS filesystem
func (f *DefaultFactory) Sounds() afero.Fs {
	return afero.NewReadOnlyFs(afero.NewOsFs())
}

// MemoryFactory serves one shared in-memory filesystem for both roles, so
// files a test writes are visible to the sound loader.
type MemoryFactory struct {
	fs afero.Fs
}

// NewMemoryFactory creates a factory backed by a fresh MemMapFs
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{fs: afero.NewMemMapFs()}
}

// Production returns the shared in-memory filesystem
func (f *MemoryFactory) Production() afero.Fs {
	return f.fs
}

// Sounds returns the shared in-memory filesystem
func (f *MemoryFactory) Sounds() afero.Fs {
	return f.fs
}
