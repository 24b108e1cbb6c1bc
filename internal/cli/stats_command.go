package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tileworld/sfxmix/internal/tracking"
)

func newStatsCommand() *cobra.Command {
	var since, format, session string
	var limit int
	var failures bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize decode tracking",
		Long: `Summarize decode tracking.

Every effect load is recorded with its format, size, decode time and any
error. --since accepts a preset (today, yesterday, week, last-week, month,
last-month, all), a duration (36h) or a phrase (3 days ago, last monday).

Examples:
  sfxmix stats
  sfxmix stats --since yesterday
  sfxmix stats --since "2 weeks ago" --failures`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLI(cmd)
			if err != nil {
				return err
			}

			filter, err := tracking.ParseSince(since, time.Now())
			if err != nil {
				return err
			}
			filter.Format = format
			filter.SessionID = session
			filter.Limit = limit

			db := c.openTracking()
			if db == nil {
				return errors.New("decode tracking is not enabled or the database is not available")
			}
			return printStats(cmd.OutOrStdout(), c, filter, failures)
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only count decodes since this time")
	cmd.Flags().StringVar(&format, "format", "", "Only count one format (WAV, MP3, ...)")
	cmd.Flags().StringVar(&session, "session", "", "Only count one session ID")
	cmd.Flags().BoolVar(&failures, "failures", false, "List failed decodes")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum failures to list")
	return cmd
}

func printStats(w io.Writer, c *CLI, filter tracking.QueryFilter, withFailures bool) error {
	summary, err := tracking.GetSummary(c.trackingDB, filter)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "decodes:  %s (%s ok, %s failed), sessions: %s\n",
		humanize.Comma(int64(summary.Total)),
		humanize.Comma(int64(summary.Succeeded)),
		humanize.Comma(int64(summary.Failed)),
		humanize.Comma(int64(summary.Sessions)))
	fmt.Fprintf(w, "decoded:  %s, avg decode %.1f ms\n",
		humanize.Bytes(uint64(summary.TotalBytes)), summary.AvgDurationMs)

	stats, err := tracking.GetFormatStats(c.trackingDB, filter)
	if err != nil {
		slog.Warn("failed to get format stats", "error", err)
	} else if len(stats) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FORMAT\tDECODES\tFAILED\tSIZE")
		for _, s := range stats {
			name := s.Format
			if name == "" {
				name = "(unknown)"
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", name, s.Count, s.Failed, humanize.Bytes(uint64(s.Bytes)))
		}
		tw.Flush()
	}

	if !withFailures {
		return nil
	}

	failures, err := tracking.GetFailures(c.trackingDB, filter)
	if err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Fprintf(w, "%s  %-16s %s: %s\n", humanize.Time(f.Timestamp), f.SlotName, f.Source, f.Error)
	}
	return nil
}
