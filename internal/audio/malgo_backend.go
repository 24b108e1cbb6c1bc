//go:build cgo

package audio

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// MalgoBackend plays the pull source through a miniaudio playback device.
// The device's data callback fills each period straight from the source.
type MalgoBackend struct {
	opts    BackendOptions
	context *Context
	device  *malgo.Device
	source  atomic.Pointer[sourceBox]
	running bool
	closed  bool
	mutex   sync.Mutex
}

type sourceBox struct {
	r io.Reader
}

// NewMalgoBackend creates a MalgoBackend. The device is opened on first Start.
func NewMalgoBackend(opts BackendOptions) (OutputBackend, error) {
	return &MalgoBackend{opts: opts}, nil
}

// Attach sets the pull source
func (mb *MalgoBackend) Attach(source io.Reader) error {
	mb.mutex.Lock()
	defer mb.mutex.Unlock()
	if mb.closed {
		return ErrBackendClosed
	}
	mb.source.Store(&sourceBox{r: source})
	return nil
}

// Start opens the device if needed and starts pulling
func (mb *MalgoBackend) Start() error {
	mb.mutex.Lock()
	defer mb.mutex.Unlock()

	if mb.closed {
		return ErrBackendClosed
	}
	if mb.running {
		return nil
	}
	if mb.source.Load() == nil {
		return ErrNoSource
	}

	if mb.device == nil {
		if err := mb.openDevice(); err != nil {
			return err
		}
	}

	if err := mb.device.Start(); err != nil {
		slog.Error("failed to start playback device", "error", err)
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	mb.running = true

	slog.Info("malgo backend started",
		"sample_rate", mb.opts.Format.SampleRate,
		"period_frames", mb.opts.PeriodFrames())
	return nil
}

// openDevice must be called with mb.mutex held.
func (mb *MalgoBackend) openDevice() error {
	if mb.context == nil {
		audioCtx, err := NewContext(hostAPIs())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBackendNotAvailable, err)
		}
		mb.context = audioCtx
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = mb.opts.Format.SampleFormat()
	deviceConfig.Playback.Channels = mb.opts.Format.Channels()
	deviceConfig.SampleRate = mb.opts.Format.SampleRate
	deviceConfig.PeriodSizeInFrames = mb.opts.PeriodFrames()
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: mb.onSamples,
	}

	device, err := malgo.InitDevice(mb.context.device(), deviceConfig, callbacks)
	if err != nil {
		slog.Error("failed to initialize playback device", "error", err)
		return fmt.Errorf("%w: %v", ErrBackendNotAvailable, err)
	}
	mb.device = device
	return nil
}

// onSamples runs on the device thread. The whole buffer must be written or
// the device plays garbage.
func (mb *MalgoBackend) onSamples(pOutputSample, pInputSamples []byte, framecount uint32) {
	box := mb.source.Load()
	if box == nil {
		fillFrom(nil, pOutputSample)
		return
	}
	fillFrom(box.r, pOutputSample)
}

// Stop pauses the device; the next Start resumes it
func (mb *MalgoBackend) Stop() error {
	mb.mutex.Lock()
	defer mb.mutex.Unlock()

	if mb.closed {
		return ErrBackendClosed
	}
	if !mb.running {
		return nil
	}
	if err := mb.device.Stop(); err != nil {
		slog.Error("failed to stop playback device", "error", err)
		return fmt.Errorf("failed to stop playback device: %w", err)
	}
	mb.running = false
	slog.Debug("malgo backend stopped")
	return nil
}

// Close releases the device and the context
func (mb *MalgoBackend) Close() error {
	mb.mutex.Lock()
	defer mb.mutex.Unlock()

	if mb.closed {
		return nil
	}
	mb.closed = true

	if mb.device != nil {
		if mb.running {
			_ = mb.device.Stop()
		}
		mb.device.Uninit()
		mb.device = nil
	}
	mb.running = false

	if mb.context != nil {
		if err := mb.context.Close(); err != nil {
			return fmt.Errorf("error closing audio context: %w", err)
		}
	}

	slog.Debug("malgo backend closed")
	return nil
}

// IsRunning reports whether the device is pulling
func (mb *MalgoBackend) IsRunning() bool {
	mb.mutex.Lock()
	defer mb.mutex.Unlock()
	return mb.running
}

// Name returns "malgo"
func (mb *MalgoBackend) Name() string {
	return BackendMalgo
}
