package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// BackendFactory creates OutputBackend instances based on configuration
type BackendFactory interface {
	CreateBackend(backendType string, opts BackendOptions) (OutputBackend, error)
	GetSupportedBackends() []string
	IsValidBackendType(backendType string) bool
}

// DefaultBackendFactory implements BackendFactory with platform detection
type DefaultBackendFactory struct {
	platform func() Platform
	newMalgo func(BackendOptions) (OutputBackend, error)
	newOto   func(BackendOptions) (OutputBackend, error)
}

// Factory errors
var (
	ErrInvalidBackendType    = errors.New("invalid backend type")
	ErrBackendCreationFailed = errors.New("backend creation failed")
)

// NewBackendFactory creates a new DefaultBackendFactory that probes the host
// once, on first use
func NewBackendFactory() *DefaultBackendFactory {
	return &DefaultBackendFactory{
		platform: sync.OnceValue(ProbePlatform),
		newMalgo: NewMalgoBackend,
		newOto:   NewOtoBackend,
	}
}

// NewBackendFactoryForPlatform creates a factory that trusts p instead of
// probing the host
func NewBackendFactoryForPlatform(p Platform) *DefaultBackendFactory {
	f := NewBackendFactory()
	f.platform = func() Platform { return p }
	return f
}

// CreateBackend creates an OutputBackend of the given type. An empty type means auto.
func (f *DefaultBackendFactory) CreateBackend(backendType string, opts BackendOptions) (OutputBackend, error) {
	if backendType == "" {
		backendType = BackendAuto
	}

	slog.Debug("creating output backend", "type", backendType, "sample_rate", opts.Format.SampleRate)

	switch backendType {
	case BackendAuto:
		return f.createAutoBackend(opts)
	case BackendSystemCommand:
		return f.createSystemCommandBackend(opts)
	case BackendMalgo:
		return f.wrapDevice(BackendMalgo, f.newMalgo, opts)
	case BackendOto:
		return f.wrapDevice(BackendOto, f.newOto, opts)
	case BackendNull:
		return NewNullBackend(), nil
	default:
		slog.Error("invalid backend type requested", "type", backendType)
		return nil, fmt.Errorf("%w: %s", ErrInvalidBackendType, backendType)
	}
}

// GetSupportedBackends returns a list of all supported backend types
func (f *DefaultBackendFactory) GetSupportedBackends() []string {
	return []string{BackendAuto, BackendMalgo, BackendOto, BackendSystemCommand, BackendNull}
}

// IsValidBackendType checks if a backend type is supported
func (f *DefaultBackendFactory) IsValidBackendType(backendType string) bool {
	if backendType == "" {
		return true
	}
	return slices.Contains(f.GetSupportedBackends(), backendType)
}

// createAutoBackend picks the platform's preferred backend and falls back
// through the others, ending at the null backend so playback never blocks
// the caller.
func (f *DefaultBackendFactory) createAutoBackend(opts BackendOptions) (OutputBackend, error) {
	preferred := f.platform().PreferredBackend()
	slog.Debug("auto-detection result", "selected_type", preferred)

	if preferred == BackendNull {
		slog.Info("no sound device or server on this host, using null backend")
		return NewNullBackend(), nil
	}

	order := []string{preferred}
	for _, t := range []string{BackendMalgo, BackendOto, BackendSystemCommand} {
		if t != preferred {
			order = append(order, t)
		}
	}

	for _, t := range order {
		backend, err := f.CreateBackend(t, opts)
		if err == nil {
			return backend, nil
		}
		slog.Warn("backend unavailable, trying next", "type", t, "error", err)
	}

	slog.Warn("no audio output available, using null backend")
	return NewNullBackend(), nil
}

func (f *DefaultBackendFactory) createSystemCommandBackend(opts BackendOptions) (OutputBackend, error) {
	command := f.platform().Player
	if command == "" {
		return nil, fmt.Errorf("%w: no raw-capable system players found", ErrBackendNotAvailable)
	}
	return NewSystemCommandBackend(command, opts), nil
}

func (f *DefaultBackendFactory) wrapDevice(name string, create func(BackendOptions) (OutputBackend, error), opts BackendOptions) (OutputBackend, error) {
	backend, err := create(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendCreationFailed, name, err)
	}
	return backend, nil
}
