package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tileworld/sfxmix/internal/audio"
	"github.com/tileworld/sfxmix/internal/sfx"
)

var errQuit = errors.New("quit")

// clock advances game time. The live clock sleeps; the render clock pulls
// the mixer.
type clock interface {
	Advance(ctx context.Context, ticks int) error
	Sleep(ctx context.Context, d time.Duration) error
}

// realtimeClock lets a live device play while the script waits
type realtimeClock struct {
	tick time.Duration
}

func (c realtimeClock) Advance(ctx context.Context, ticks int) error {
	return c.Sleep(ctx, time.Duration(ticks)*c.tick)
}

func (c realtimeClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// renderClock pulls one tick of audio per advanced tick into pcm. Pending
// decodes settle first, so a render is reproducible.
type renderClock struct {
	manager *sfx.Manager
	format  audio.OutputFormat
	pcm     []byte
	ticks   int
}

func (c *renderClock) Advance(ctx context.Context, ticks int) error {
	for i := 0; i < ticks; i++ {
		if err := c.manager.WaitDecoded(ctx); err != nil {
			return err
		}
		block := make([]byte, c.format.BytesPerTick())
		c.manager.Mixer().Fill(block)
		c.pcm = append(c.pcm, block...)
		c.ticks++
	}
	return nil
}

func (c *renderClock) Sleep(ctx context.Context, d time.Duration) error {
	tick := c.format.TickDuration()
	return c.Advance(ctx, int((d+tick-1)/tick))
}

// interpreter executes the line-oriented command script against a Manager
type interpreter struct {
	manager *sfx.Manager
	clock   clock
	out     io.Writer

	// settle, when set, runs before every command
	settle func(ctx context.Context) error
}

// Run executes every line of r. A script stops at the first failing line;
// an interactive session prints the error, prompts again and carries on.
func (in *interpreter) Run(ctx context.Context, r io.Reader, interactive bool) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for {
		if interactive {
			fmt.Fprint(in.out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		lineNo++

		err := in.Exec(ctx, scanner.Text())
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			return nil
		case interactive:
			fmt.Fprintf(in.out, "error: %v\n", err)
		default:
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return nil
}

// Exec runs one command line. Blank lines and # comments are ignored.
func (in *interpreter) Exec(ctx context.Context, line string) error {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	slog.Debug("script command", "command", cmd, "args", args)

	if in.settle != nil {
		if err := in.settle(ctx); err != nil {
			return err
		}
	}

	switch cmd {
	case "load":
		if len(args) < 2 {
			return errors.New("usage: load <slot> <path>")
		}
		slot, err := sfx.SlotByName(args[0])
		if err != nil {
			return err
		}
		return in.manager.LoadEffect(slot, strings.Join(args[1:], " "))

	case "free":
		if len(args) != 1 {
			return errors.New("usage: free <slot>")
		}
		slot, err := sfx.SlotByName(args[0])
		if err != nil {
			return err
		}
		return in.manager.FreeEffect(slot)

	case "effects":
		if len(args) != 1 {
			return errors.New("usage: effects <mask>")
		}
		mask, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid mask %q: %w", args[0], err)
		}
		in.manager.SetEffects(mask)
		return nil

	case "start":
		if len(args) == 0 {
			return errors.New("usage: start <slot>...")
		}
		for _, arg := range args {
			slot, err := sfx.SlotByName(arg)
			if err != nil {
				return err
			}
			if err := in.manager.StartEffect(slot); err != nil {
				return err
			}
		}
		return nil

	case "stopall":
		in.manager.StopAll()
		return nil

	case "volume":
		if len(args) != 1 {
			return errors.New("usage: volume <0.0-1.0>")
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid volume %q: %w", args[0], err)
		}
		return in.manager.SetVolume(v)

	case "pause":
		in.manager.SetPaused(true)
		return nil

	case "resume":
		in.manager.SetPaused(false)
		return nil

	case "enable":
		if len(args) != 1 {
			return errors.New("usage: enable on|off")
		}
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		in.manager.EnableAudio(on)
		return nil

	case "wait":
		if len(args) != 1 {
			return errors.New("usage: wait <duration>")
		}
		d, err := time.ParseDuration(args[0])
		if err != nil || d < 0 {
			return fmt.Errorf("invalid duration %q", args[0])
		}
		return in.clock.Sleep(ctx, d)

	case "tick":
		n := 1
		if len(args) > 1 {
			return errors.New("usage: tick [n]")
		}
		if len(args) == 1 {
			var err error
			n, err = strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid tick count %q", args[0])
			}
		}
		return in.clock.Advance(ctx, n)

	case "status":
		printStatus(in.out, in.manager)
		return nil

	case "quit", "exit":
		return errQuit
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
	return b, nil
}

// pcmDuration converts output bytes to playback time
func pcmDuration(bytes int, format audio.OutputFormat) time.Duration {
	perSecond := format.BytesPerSecond()
	if perSecond == 0 {
		return 0
	}
	return time.Duration(bytes) * time.Second / time.Duration(perSecond)
}

// printStatus writes the manager state and a table of loaded slots
func printStatus(w io.Writer, m *sfx.Manager) {
	format := audio.DefaultOutputFormat()

	fmt.Fprintf(w, "backend=%s enabled=%t paused=%t volume=%.2f\n",
		m.BackendName(), m.Enabled(), m.Paused(), m.Volume())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tNAME\tKIND\tSTATE\tPLAYING\tPOSITION\tLENGTH\tSOURCE")
	for _, s := range m.Status() {
		if !s.Loaded {
			continue
		}
		kind := "once"
		if s.Looping {
			kind = "loop"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\t%s (%s)\t%s\n",
			s.Slot, sfx.SlotName(s.Slot), kind, s.State, s.Playing,
			pcmDuration(s.Position, format).Round(time.Millisecond),
			pcmDuration(s.Length, format).Round(time.Millisecond),
			humanize.Bytes(uint64(s.Length)),
			s.Source)
	}
	tw.Flush()
}
