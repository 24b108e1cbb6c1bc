//go:build cgo

package audio

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/gen2brain/malgo"
)

// Context owns one miniaudio context. Devices opened from it must be
// uninitialized before Close.
type Context struct {
	ctx *malgo.AllocatedContext
}

// hostAPIs orders miniaudio's host APIs for this machine. nil keeps
// miniaudio's own order.
func hostAPIs() []malgo.Backend {
	if runtime.GOOS == "linux" && detectWSLFromData(readProcVersion(), os.Getenv("WSL_DISTRO_NAME")) {
		// WSLg only bridges PulseAudio; ALSA there is a null sink
		return []malgo.Backend{malgo.BackendPulseaudio, malgo.BackendAlsa}
	}
	return nil
}

// NewContext initializes a miniaudio context over apis, routing miniaudio's
// own log lines to slog at debug level
func NewContext(apis []malgo.Backend) (*Context, error) {
	ctx, err := malgo.InitContext(apis, malgo.ContextConfig{}, func(message string) {
		slog.Debug("miniaudio", "message", message)
	})
	if err != nil {
		slog.Warn("failed to initialize audio context", "apis", len(apis), "error", err)
		return nil, fmt.Errorf("miniaudio context: %w", err)
	}

	slog.Debug("audio context initialized", "apis", len(apis))
	return &Context{ctx: ctx}, nil
}

// device returns the raw context for malgo.InitDevice
func (c *Context) device() malgo.Context {
	return c.ctx.Context
}

// Close uninitializes and frees the context. Closing twice is a no-op.
func (c *Context) Close() error {
	if c.ctx == nil {
		return nil
	}
	// malgo requires both Uninit and Free
	if err := c.ctx.Uninit(); err != nil {
		slog.Error("failed to uninitialize audio context", "error", err)
		return err
	}
	c.ctx.Free()
	c.ctx = nil
	return nil
}
