package sfx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/spf13/afero"

	"github.com/tileworld/sfxmix/internal/audio"
)

var (
	ErrInvalidVolume = errors.New("volume must be between 0.0 and 1.0")
	ErrManagerClosed = errors.New("effect manager is closed")
)

// DefaultMaxConcurrentDecodes bounds background decoding when Options
// leaves it unset.
const DefaultMaxConcurrentDecodes = 4

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	Partition            Partition
	Format               audio.OutputFormat
	MaxConcurrentDecodes int
	Fs                   afero.Fs
	Registry             *audio.DecoderRegistry
	Observer             DecodeObserver
}

func (o Options) withDefaults() Options {
	if o.Partition == (Partition{}) {
		o.Partition = DefaultPartition()
	}
	if o.Format.SampleRate == 0 {
		o.Format = audio.DefaultOutputFormat()
	}
	if o.MaxConcurrentDecodes <= 0 {
		o.MaxConcurrentDecodes = DefaultMaxConcurrentDecodes
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Registry == nil {
		o.Registry = audio.NewDefaultRegistry()
	}
	return o
}

// Manager is the control surface of the sound-effect subsystem. It owns the
// Mixer and drives the output backend that pulls from it. All methods are
// safe for concurrent use.
type Manager struct {
	opts   Options
	mixer  *Mixer
	loader *Loader

	mu      sync.Mutex
	backend audio.OutputBackend
	enabled bool
	closed  bool
	pending []context.CancelFunc
}

// NewManager creates a Manager playing through backend. A nil backend means
// the null backend. Audio starts disabled; call EnableAudio to start output.
func NewManager(backend audio.OutputBackend, opts Options) (*Manager, error) {
	opts = opts.withDefaults()

	mixer, err := NewMixer(opts.Partition, opts.Format.BytesPerTick())
	if err != nil {
		return nil, fmt.Errorf("failed to create mixer: %w", err)
	}

	if backend == nil {
		backend = audio.NewNullBackend()
	}
	if err := backend.Attach(mixer); err != nil {
		slog.Error("failed to attach mixer to backend, using null backend",
			"backend", backend.Name(),
			"error", err)
		backend = audio.NewNullBackend()
		_ = backend.Attach(mixer)
	}

	m := &Manager{
		opts:    opts,
		mixer:   mixer,
		loader:  NewLoader(opts.Registry, opts.Format, opts.MaxConcurrentDecodes, opts.Observer),
		backend: backend,
		pending: make([]context.CancelFunc, opts.Partition.SlotCount),
	}

	slog.Info("effect manager created",
		"backend", backend.Name(),
		"slots", opts.Partition.SlotCount,
		"one_shot_count", opts.Partition.OneShotCount,
		"sample_rate", opts.Format.SampleRate)
	return m, nil
}

// Mixer returns the owned mixer. Offline rendering pulls from it directly.
func (m *Manager) Mixer() *Mixer {
	return m.mixer
}

// Partition returns the slot partition
func (m *Manager) Partition() Partition {
	return m.opts.Partition
}

// BackendName returns the name of the active output backend
func (m *Manager) BackendName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Name()
}

// EnableAudio starts or stops output. While disabled, SetEffects and
// StartEffect are dropped; loads, volume, pause and StopAll still apply.
// A backend that fails to start is replaced by the null backend.
func (m *Manager) EnableAudio(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		slog.Debug("ignoring EnableAudio on closed manager")
		return
	}
	if m.enabled == enabled {
		return
	}
	m.enabled = enabled

	if !enabled {
		if err := m.backend.Stop(); err != nil {
			slog.Warn("failed to stop output backend", "backend", m.backend.Name(), "error", err)
		}
		slog.Info("audio disabled")
		return
	}

	if err := m.backend.Start(); err != nil {
		slog.Error("output backend failed to start, continuing without sound",
			"backend", m.backend.Name(),
			"error", err)
		_ = m.backend.Close()
		m.backend = audio.NewNullBackend()
		_ = m.backend.Attach(m.mixer)
		_ = m.backend.Start()
	}
	slog.Info("audio enabled", "backend", m.backend.Name())
}

// Enabled reports whether audio is enabled
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// LoadEffect decodes the file at path into slot, replacing whatever the
// slot held. It returns once decoding has started.
func (m *Manager) LoadEffect(slot int, path string) error {
	return m.LoadEffectFrom(slot, audio.NewFileSource(m.opts.Fs, path))
}

// LoadEffectFrom decodes src into slot, replacing whatever the slot held.
// Whether the effect loops follows from the slot's place in the partition.
func (m *Manager) LoadEffectFrom(slot int, src audio.AudioSource) error {
	slog.Debug("loading effect", "slot", slot, "source", src.Name())

	if !m.opts.Partition.Contains(slot) {
		slog.Error("load into invalid slot", "slot", slot, "error", ErrInvalidSlot)
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}

	if cancel := m.pending[slot]; cancel != nil {
		cancel()
	}

	e := newEffect(slot, src.Name(), m.opts.Partition.IsLooping(slot))
	m.mixer.setEffect(slot, e)
	m.pending[slot] = m.loader.Load(e, src, func(e *Effect) bool {
		return m.mixer.holds(e.slot, e)
	})
	return nil
}

// FreeEffect empties slot, abandoning any decode still running for it
func (m *Manager) FreeEffect(slot int) error {
	if !m.opts.Partition.Contains(slot) {
		slog.Error("free of invalid slot", "slot", slot, "error", ErrInvalidSlot)
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	if cancel := m.pending[slot]; cancel != nil {
		cancel()
		m.pending[slot] = nil
	}
	m.mixer.setEffect(slot, nil)
	slog.Debug("effect freed", "slot", slot)
	return nil
}

// SetEffects applies an effects bitmask: a set bit starts its slot; a clear
// bit stops a looping slot and leaves a one-shot playing. Slots still
// decoding are skipped.
func (m *Manager) SetEffects(mask uint64) {
	if !m.Enabled() {
		return
	}
	m.mixer.ApplyMask(mask)
}

// StartEffect starts a single slot without touching the others
func (m *Manager) StartEffect(slot int) error {
	if !m.opts.Partition.Contains(slot) {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	if !m.Enabled() {
		slog.Debug("audio disabled, not starting effect", "slot", slot)
		return nil
	}
	if !m.mixer.Start(slot) {
		slog.Debug("effect not ready, start ignored", "slot", slot)
	}
	return nil
}

// StopAll stops every slot and rewinds it
func (m *Manager) StopAll() {
	m.mixer.StopAll()
	slog.Debug("all effects stopped")
}

// SetVolume sets the master volume. Values outside 0.0-1.0 are rejected and
// the volume is left unchanged.
func (m *Manager) SetVolume(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		slog.Warn("rejecting volume", "volume", v, "error", ErrInvalidVolume)
		return fmt.Errorf("%w: %v", ErrInvalidVolume, v)
	}
	m.mixer.SetVolume(float32(v))
	slog.Debug("volume set", "volume", v)
	return nil
}

// Volume returns the master volume
func (m *Manager) Volume() float64 {
	return float64(m.mixer.Volume())
}

// SetPaused pauses or resumes every effect without touching its cursor
func (m *Manager) SetPaused(paused bool) {
	m.mixer.SetPaused(paused)
	slog.Debug("mixer pause changed", "paused", paused)
}

// Paused reports whether the mixer is paused
func (m *Manager) Paused() bool {
	return m.mixer.Paused()
}

// WaitDecoded blocks until every decode started so far has settled
func (m *Manager) WaitDecoded(ctx context.Context) error {
	return m.loader.Wait(ctx)
}

// Status returns a snapshot of every slot
func (m *Manager) Status() []VoiceStatus {
	status := make([]VoiceStatus, m.opts.Partition.SlotCount)
	for slot := range status {
		status[slot] = m.mixer.Status(slot)
	}
	return status
}

// Close stops output, abandons in-flight decodes and waits for them to exit.
// It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.enabled = false
	backend := m.backend
	m.mu.Unlock()

	m.loader.Close()

	var errs []error
	if err := backend.Close(); err != nil {
		slog.Error("failed to close output backend", "backend", backend.Name(), "error", err)
		errs = append(errs, err)
	}

	for slot := 0; slot < m.opts.Partition.SlotCount; slot++ {
		m.mixer.setEffect(slot, nil)
	}

	slog.Info("effect manager closed")
	return errors.Join(errs...)
}
