package audio

import (
	"io"
	"log/slog"
	"sync"
)

// NullBackend is the headless device: it accepts every call and never
// pulls, so an attached mixer behaves as if permanently paused.
type NullBackend struct {
	source  io.Reader
	running bool
	closed  bool
	mutex   sync.Mutex
}

// NewNullBackend creates a NullBackend
func NewNullBackend() *NullBackend {
	return &NullBackend{}
}

// Attach records the source
func (b *NullBackend) Attach(source io.Reader) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	b.source = source
	return nil
}

// Start marks the backend running
func (b *NullBackend) Start() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	b.running = true
	slog.Debug("null backend started")
	return nil
}

// Stop marks the backend stopped
func (b *NullBackend) Stop() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	b.running = false
	return nil
}

// Close releases the source
func (b *NullBackend) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.closed = true
	b.running = false
	b.source = nil
	return nil
}

// IsRunning reports whether Start was called without a later Stop
func (b *NullBackend) IsRunning() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.running
}

// Name returns "null"
func (b *NullBackend) Name() string {
	return BackendNull
}
