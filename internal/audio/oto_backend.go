//go:build cgo

package audio

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process, so it is shared by every
// OtoBackend and fixed to the first format requested.
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoFormat OutputFormat
	otoErr    error
)

func sharedOtoContext(opts BackendOptions) (*oto.Context, error) {
	otoOnce.Do(func() {
		tick := time.Second / time.Duration(max(opts.Format.TicksPerSecond, 1))
		op := &oto.NewContextOptions{
			SampleRate:   int(opts.Format.SampleRate),
			ChannelCount: int(opts.Format.Channels()),
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   tick << uint(min(max(opts.BufferScale, 0), maxBufferScale)),
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("%w: %v", ErrBackendNotAvailable, err)
			return
		}
		<-ready
		otoCtx = ctx
		otoFormat = opts.Format
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoFormat != opts.Format {
		return nil, fmt.Errorf("%w: oto context already open at %d Hz", ErrBackendNotAvailable, otoFormat.SampleRate)
	}
	return otoCtx, nil
}

// OtoBackend plays the pull source through an oto player. oto pulls from
// the source on its own goroutine through io.Reader.
type OtoBackend struct {
	opts    BackendOptions
	source  io.Reader
	player  *oto.Player
	running bool
	closed  bool
	mutex   sync.Mutex
}

// NewOtoBackend creates an OtoBackend; the shared context is opened on
// first Start.
func NewOtoBackend(opts BackendOptions) (OutputBackend, error) {
	return &OtoBackend{opts: opts}, nil
}

// Attach sets the pull source
func (ob *OtoBackend) Attach(source io.Reader) error {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()
	if ob.closed {
		return ErrBackendClosed
	}
	if ob.player != nil {
		return fmt.Errorf("oto backend: source already bound to a player")
	}
	ob.source = source
	return nil
}

// Start creates the player if needed and resumes it
func (ob *OtoBackend) Start() error {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()

	if ob.closed {
		return ErrBackendClosed
	}
	if ob.running {
		return nil
	}
	if ob.source == nil {
		return ErrNoSource
	}

	if ob.player == nil {
		ctx, err := sharedOtoContext(ob.opts)
		if err != nil {
			slog.Warn("oto context unavailable", "error", err)
			return err
		}
		ob.player = ctx.NewPlayer(ob.source)
	}

	ob.player.Play()
	ob.running = true
	slog.Info("oto backend started", "sample_rate", ob.opts.Format.SampleRate)
	return nil
}

// Stop pauses the player
func (ob *OtoBackend) Stop() error {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()

	if ob.closed {
		return ErrBackendClosed
	}
	if ob.running {
		ob.player.Pause()
		ob.running = false
	}
	return nil
}

// Close releases the player; the shared context stays open
func (ob *OtoBackend) Close() error {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()

	if ob.closed {
		return nil
	}
	ob.closed = true
	ob.running = false

	if ob.player != nil {
		if err := ob.player.Close(); err != nil {
			return fmt.Errorf("error closing oto player: %w", err)
		}
		ob.player = nil
	}
	return nil
}

// IsRunning reports whether the player is playing
func (ob *OtoBackend) IsRunning() bool {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()
	return ob.running
}

// Name returns "oto"
func (ob *OtoBackend) Name() string {
	return BackendOto
}
