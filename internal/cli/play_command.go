package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

func newPlayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "play [script]",
		Short: "Drive a live audio device from a command script",
		Long: `Drive a live audio device from a command script.

The script is read from the given file, or from stdin. On a terminal, play
prompts for commands one at a time.

Commands:
  load <slot> <path>   decode a file into a slot (slot name or number)
  free <slot>          empty a slot
  effects <mask>       apply an effects bitmask (decimal, 0x.. or 0b..)
  start <slot>...      start slots without touching the others
  stopall              stop every slot
  volume <v>           set master volume (0.0 to 1.0)
  pause | resume       pause or resume the mixer
  enable on|off        enable or disable audio output
  wait <duration>      wait, e.g. 250ms
  tick [n]             wait n game ticks
  status               show loaded slots
  quit                 exit

Examples:
  sfxmix play level1.sfx
  echo "start chip_wins; wait 2s" | tr ';' '\n' | sfxmix play`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPlay,
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	c, err := mustCLI(cmd)
	if err != nil {
		return err
	}
	cfg := c.cfg

	script, interactive, closeScript, err := c.openScript(cmd, args)
	if err != nil {
		return err
	}
	defer closeScript()

	manager, err := c.newManager(cfg, c.createBackend(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Close(); err != nil {
			slog.Warn("effect manager close failed", "error", err)
		}
	}()
	manager.EnableAudio(cfg.Enabled)

	slog.Info("playing", "backend", manager.BackendName(), "interactive", interactive)

	in := &interpreter{
		manager: manager,
		clock:   realtimeClock{tick: outputFormat(cfg).TickDuration()},
		out:     cmd.OutOrStdout(),
	}
	return in.Run(cmd.Context(), script, interactive)
}

// openScript returns the script named by args, or stdin
func (c *CLI) openScript(cmd *cobra.Command, args []string) (io.Reader, bool, func(), error) {
	if len(args) == 0 {
		stdin := cmd.InOrStdin()
		return stdin, c.isInteractive(stdin), func() {}, nil
	}

	f, err := c.fsFactory.Production().Open(args[0])
	if err != nil {
		slog.Error("failed to open script", "path", args[0], "error", err)
		return nil, false, nil, fmt.Errorf("failed to open script: %w", err)
	}
	return f, false, func() { f.Close() }, nil
}
