package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tileworld/sfxmix/internal/audio"
	"github.com/tileworld/sfxmix/internal/sfx"
	"github.com/tileworld/sfxmix/internal/soundset"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List decodable file formats and audio backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLI(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			fmt.Fprintf(w, "decoders:   %s\n", strings.Join(audio.NewDefaultRegistry().GetSupportedFormats(), ", "))
			fmt.Fprintf(w, "extensions: %s\n", strings.Join(soundset.Extensions, ", "))
			fmt.Fprintf(w, "backends:   %s\n", strings.Join(c.backendFactory.GetSupportedBackends(), ", "))
			fmt.Fprintf(w, "configured: %s\n", c.cfg.AudioBackend)
			if c.cfg.AudioBackend == audio.BackendAuto {
				fmt.Fprintf(w, "detected:   %s\n", audio.DetectOptimalBackend())
			}
			format := outputFormat(c.cfg)
			fmt.Fprintf(w, "output:     %d Hz mono s16le, %d ticks/s (%d bytes per tick)\n",
				format.SampleRate, format.TicksPerSecond, format.BytesPerTick())
			return nil
		},
	}
}

func newSlotsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "List the sound table and where each slot's file resolves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLI(cmd)
			if err != nil {
				return err
			}
			cfg := c.cfg

			resolver, err := c.soundSetResolver(cfg)
			if err != nil {
				return err
			}
			partition := sfx.Partition{OneShotCount: cfg.OneShotCount, SlotCount: cfg.SlotCount}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SLOT\tNAME\tKIND\tFILE")
			for slot := 0; slot < partition.SlotCount; slot++ {
				kind := "once"
				if partition.IsLooping(slot) {
					kind = "loop"
				}
				file := "-"
				if resolver != nil {
					if path, err := resolver.Resolve(sfx.SlotName(slot)); err == nil {
						file = path
					}
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", slot, sfx.SlotName(slot), kind, file)
			}
			return tw.Flush()
		},
	}
}
