package cli

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/youpy/go-wav"

	"github.com/tileworld/sfxmix/internal/audio"
)

func newRenderCommand() *cobra.Command {
	var out string
	var tail time.Duration

	cmd := &cobra.Command{
		Use:   "render [script]",
		Short: "Mix a command script offline into a WAV file",
		Long: `Mix a command script offline into a WAV file.

render runs the same commands as play, but without a device: every "tick"
pulls one tick of audio from the mixer and "wait" pulls as many ticks as
the duration covers. Decodes always finish before the next command or tick,
so the output is the same on every run.

Examples:
  sfxmix render level1.sfx --out level1.wav
  sfxmix render --out boom.wav --tail 2s <<< "start bomb_explodes"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, out, tail)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output WAV file (required)")
	cmd.Flags().DurationVar(&tail, "tail", 0, "Extra time to render after the script ends")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runRender(cmd *cobra.Command, args []string, out string, tail time.Duration) error {
	c, err := mustCLI(cmd)
	if err != nil {
		return err
	}
	cfg := c.cfg

	script, _, closeScript, err := c.openScript(cmd, args)
	if err != nil {
		return err
	}
	defer closeScript()

	manager, err := c.newManager(cfg, audio.NewNullBackend())
	if err != nil {
		return err
	}
	defer manager.Close()
	manager.EnableAudio(true)

	ctx := cmd.Context()
	clk := &renderClock{manager: manager, format: outputFormat(cfg)}
	in := &interpreter{
		manager: manager,
		clock:   clk,
		out:     cmd.OutOrStdout(),
		settle:  manager.WaitDecoded,
	}

	if err := in.Run(ctx, script, false); err != nil {
		return err
	}
	if tail > 0 {
		if err := clk.Sleep(ctx, tail); err != nil {
			return err
		}
	}

	if err := writeWAV(c.fsFactory.Production(), out, clk.pcm, clk.format.SampleRate); err != nil {
		return err
	}

	duration := pcmDuration(len(clk.pcm), clk.format)
	slog.Info("render complete", "path", out, "ticks", clk.ticks, "bytes", len(clk.pcm))
	fmt.Fprintf(cmd.OutOrStdout(), "rendered %d ticks (%s, %s) to %s\n",
		clk.ticks, duration, humanize.Bytes(uint64(len(clk.pcm))), out)
	return nil
}

// writeWAV stores mono S16LE pcm as a 16-bit WAV file
func writeWAV(fs afero.Fs, path string, pcm []byte, sampleRate uint32) error {
	f, err := fs.Create(path)
	if err != nil {
		slog.Error("failed to create output file", "path", path, "error", err)
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := encodeWAV(f, pcm, sampleRate); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func encodeWAV(w io.Writer, pcm []byte, sampleRate uint32) error {
	n := len(pcm) / audio.BytesPerSample
	samples := make([]wav.Sample, n)
	for i := range samples {
		samples[i].Values[0] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}

	writer := wav.NewWriter(w, uint32(n), 1, sampleRate, 16)
	return writer.WriteSamples(samples)
}
