package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// commandFactory builds the player process; tests replace it.
type commandFactory func(ctx context.Context, name string, args ...string) *exec.Cmd

// SystemCommandBackend pipes raw PCM from the pull source into an external
// player (paplay, aplay or ffplay). A pump goroutine pulls one tick of audio
// per tick interval and writes it to the player's stdin.
type SystemCommandBackend struct {
	command    string
	opts       BackendOptions
	newCommand commandFactory
	source     io.Reader
	cancel     context.CancelFunc
	done       chan struct{}
	running    bool
	closed     bool
	mutex      sync.Mutex
}

// NewSystemCommandBackend creates a SystemCommandBackend for command
func NewSystemCommandBackend(command string, opts BackendOptions) *SystemCommandBackend {
	slog.Debug("creating system command backend", "command", command)
	return &SystemCommandBackend{
		command:    command,
		opts:       opts,
		newCommand: exec.CommandContext,
	}
}

// rawPlaybackArgs returns the arguments that make command read headerless
// mono S16LE from stdin. Unknown commands get no arguments.
func rawPlaybackArgs(command string, format OutputFormat) []string {
	rate := strconv.Itoa(int(format.SampleRate))
	switch command {
	case "paplay":
		return []string{"--raw", "--format=s16le", "--rate=" + rate, "--channels=1"}
	case "aplay":
		return []string{"-q", "-t", "raw", "-f", "S16_LE", "-r", rate, "-c", "1"}
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-f", "s16le", "-ar", rate, "-ac", "1", "-i", "-"}
	default:
		return nil
	}
}

// Attach sets the pull source
func (scb *SystemCommandBackend) Attach(source io.Reader) error {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()
	if scb.closed {
		return ErrBackendClosed
	}
	scb.source = source
	return nil
}

// Start launches the player process and the pump goroutine
func (scb *SystemCommandBackend) Start() error {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()

	if scb.closed {
		return ErrBackendClosed
	}
	if scb.running {
		return nil
	}
	if scb.source == nil {
		return ErrNoSource
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := scb.newCommand(ctx, scb.command, rawPlaybackArgs(scb.command, scb.opts.Format)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open player stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		slog.Error("system command failed to start", "command", scb.command, "error", err)
		return fmt.Errorf("%w: %v", ErrBackendNotAvailable, err)
	}

	scb.cancel = cancel
	scb.done = make(chan struct{})
	scb.running = true
	go scb.pump(ctx, cmd, stdin, scb.source, scb.done)

	slog.Info("system command backend started", "command", scb.command)
	return nil
}

// pump writes one tick per interval. It prefills the device buffer first
// so the player does not underrun on startup.
func (scb *SystemCommandBackend) pump(ctx context.Context, cmd *exec.Cmd, stdin io.WriteCloser, source io.Reader, done chan struct{}) {
	defer close(done)
	defer func() {
		stdin.Close()
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			slog.Warn("system command exited", "command", scb.command, "error", err)
		}
	}()

	block := make([]byte, scb.opts.Format.BytesPerTick())
	write := func() bool {
		fillFrom(source, block)
		if _, err := stdin.Write(block); err != nil {
			if ctx.Err() == nil {
				slog.Warn("failed to write to system command", "command", scb.command, "error", err)
			}
			return false
		}
		return true
	}

	prefill := 1 << uint(min(max(scb.opts.BufferScale, 0), maxBufferScale))
	for i := 0; i < prefill; i++ {
		if !write() {
			return
		}
	}

	ticker := time.NewTicker(scb.opts.Format.TickDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !write() {
				return
			}
		}
	}
}

// Stop terminates the player process
func (scb *SystemCommandBackend) Stop() error {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()

	if scb.closed {
		return ErrBackendClosed
	}
	scb.stopLocked()
	return nil
}

func (scb *SystemCommandBackend) stopLocked() {
	if !scb.running {
		return
	}
	scb.cancel()
	<-scb.done
	scb.running = false
	slog.Debug("system command backend stopped", "command", scb.command)
}

// Close stops the player and rejects further use
func (scb *SystemCommandBackend) Close() error {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()

	if scb.closed {
		return nil
	}
	scb.stopLocked()
	scb.closed = true
	scb.source = nil
	return nil
}

// IsRunning reports whether the player process is being fed
func (scb *SystemCommandBackend) IsRunning() bool {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()
	return scb.running
}

// Name returns "system_command"
func (scb *SystemCommandBackend) Name() string {
	return BackendSystemCommand
}

// Command returns the player executable name
func (scb *SystemCommandBackend) Command() string {
	return scb.command
}
