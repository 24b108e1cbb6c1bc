package sfx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tileworld/sfxmix/internal/audio"
)

// ErrEffectDiscarded marks a decode whose effect was replaced or freed
// before it finished.
var ErrEffectDiscarded = errors.New("effect discarded before decode finished")

// DecodeEvent describes the outcome of one decode.
type DecodeEvent struct {
	Slot     int
	Source   string
	Format   string
	Bytes    int
	Duration time.Duration
	Err      error
}

// DecodeObserver is told about every finished decode, successful or not.
// It is called from decode goroutines.
type DecodeObserver interface {
	DecodeFinished(event DecodeEvent)
}

// Loader decodes effects in the background with bounded concurrency and
// publishes each result into its Effect exactly once.
type Loader struct {
	registry *audio.DecoderRegistry
	format   audio.OutputFormat
	sem      *semaphore.Weighted
	observer DecodeObserver

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLoader creates a Loader that runs at most maxConcurrent decodes at a
// time. observer may be nil.
func NewLoader(registry *audio.DecoderRegistry, format audio.OutputFormat, maxConcurrent int, observer DecodeObserver) *Loader {
	if registry == nil {
		registry = audio.NewDefaultRegistry()
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		registry: registry,
		format:   format,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		observer: observer,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Load starts decoding src into e and returns at once. keep is consulted
// before publishing; when it returns false the buffer is dropped. The
// returned cancel func abandons the decode.
func (l *Loader) Load(e *Effect, src audio.AudioSource, keep func(*Effect) bool) context.CancelFunc {
	ctx, cancel := context.WithCancel(l.ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()
		l.run(ctx, e, src, keep)
	}()

	return cancel
}

func (l *Loader) run(ctx context.Context, e *Effect, src audio.AudioSource, keep func(*Effect) bool) {
	started := time.Now()
	event := DecodeEvent{Slot: e.slot, Source: src.Name()}

	pcm, format, err := l.decode(ctx, src)
	event.Format = format
	event.Duration = time.Since(started)

	switch {
	case err == nil && (ctx.Err() != nil || (keep != nil && !keep(e))):
		err = ErrEffectDiscarded
		e.fail()
	case err != nil:
		e.fail()
	default:
		if !e.publish(pcm) {
			err = fmt.Errorf("%w: empty result", audio.ErrInvalidData)
		} else {
			event.Bytes = len(pcm)
		}
	}
	event.Err = err

	switch {
	case err == nil:
		slog.Info("effect decoded",
			"slot", e.slot,
			"source", event.Source,
			"format", format,
			"bytes", event.Bytes,
			"duration_ms", event.Duration.Milliseconds())
	case errors.Is(err, ErrEffectDiscarded) || errors.Is(err, context.Canceled):
		slog.Debug("decode abandoned", "slot", e.slot, "source", event.Source, "error", err)
	default:
		slog.Warn("effect decode failed, slot stays silent",
			"slot", e.slot,
			"source", event.Source,
			"error", err)
	}

	if l.observer != nil {
		l.observer.DecodeFinished(event)
	}
}

func (l *Loader) decode(ctx context.Context, src audio.AudioSource) ([]byte, string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, "", err
	}
	defer l.sem.Release(1)

	rc, err := src.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open source: %w", err)
	}
	defer rc.Close()

	data, format, err := l.registry.DecodeFile(ctx, src.Name(), rc)
	if err != nil {
		return nil, format, err
	}

	pcm, err := audio.ConvertToOutput(data, l.format)
	if err != nil {
		return nil, format, fmt.Errorf("failed to convert %s audio: %w", format, err)
	}
	return pcm, format, nil
}

// Wait blocks until every started decode has finished or ctx is done
func (l *Loader) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels every in-flight decode and waits for the goroutines to exit
func (l *Loader) Close() {
	l.cancel()
	l.wg.Wait()
}
