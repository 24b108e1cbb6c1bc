package audio

import (
	"errors"
	"io"
)

// Common errors for OutputBackend implementations
var (
	ErrBackendNotAvailable = errors.New("audio backend not available")
	ErrBackendClosed       = errors.New("audio backend is closed")
	ErrNoSource            = errors.New("audio backend has no source attached")
)

// Backend type names accepted by the factory and the config file.
const (
	BackendAuto          = "auto"
	BackendMalgo         = "malgo"
	BackendOto           = "oto"
	BackendSystemCommand = "system_command"
	BackendNull          = "null"
)

// maxBufferScale bounds BackendOptions.BufferScale.
const maxBufferScale = 3

// OutputBackend drives one audio output device from a pull source. The
// device decides when to pull; the source must never block.
type OutputBackend interface {
	// Attach sets the pull source. It may be called before Start only.
	Attach(source io.Reader) error

	// Lifecycle management
	Start() error
	Stop() error
	Close() error

	IsRunning() bool
	Name() string
}

// BackendOptions configures the device side of a backend.
type BackendOptions struct {
	Format OutputFormat

	// BufferScale (0-3) doubles the device buffer per step. Larger is more
	// robust, but delays effects further behind the game tick.
	BufferScale int
}

// DefaultBackendOptions returns the default output format with the smallest
// buffer.
func DefaultBackendOptions() BackendOptions {
	return BackendOptions{Format: DefaultOutputFormat()}
}

// PeriodFrames is the device period in frames: one tick, doubled
// BufferScale times.
func (o BackendOptions) PeriodFrames() uint32 {
	scale := o.BufferScale
	if scale < 0 {
		scale = 0
	}
	if scale > maxBufferScale {
		scale = maxBufferScale
	}
	return uint32(o.Format.SamplesPerTick()) << uint(scale)
}

// fillFrom reads from src until p is full. A short or failing read leaves
// the remainder silent.
func fillFrom(src io.Reader, p []byte) {
	filled := 0
	for filled < len(p) {
		if src == nil {
			break
		}
		n, err := src.Read(p[filled:])
		filled += n
		if err != nil || n == 0 {
			break
		}
	}
	for i := filled; i < len(p); i++ {
		p[i] = 0
	}
}
