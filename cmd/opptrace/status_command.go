package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"opptrace/internal/api"
	"opptrace/internal/daemonctl"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and enrichment progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Daemon running:  %s\n", yesNo(status.Running))
				fmt.Fprintf(out, "Fetch running:   %s\n", yesNo(status.FetchRunning))
				fmt.Fprintf(out, "Score running:   %s\n", yesNo(status.ScoreRunning))
				if status.Generation != "" {
					fmt.Fprintf(out, "Generation:      %s\n", status.Generation)
				}
				if status.SourceReference != "" {
					fmt.Fprintf(out, "Source:          %s\n", status.SourceReference)
				}
				fmt.Fprintf(out, "Cache entries:   %d\n", status.CacheEntries)

				if status.Attendees == 0 {
					fmt.Fprintln(out, "No batch ingested yet.")
					return nil
				}

				snap, err := client.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Fetch: %s\n", progressLine(snap.FetchProgress))
				fmt.Fprintf(out, "Score: %s\n", progressLine(snap.ScoreProgress))
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderAttendees(snap.Attendees, colorize))
				return nil
			})
		},
	}
}

func progressLine(p api.ProgressView) string {
	parts := []string{
		fmt.Sprintf("%d/%d completed", p.Completed, p.Total),
	}
	if p.Pending > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", p.Pending))
	}
	if p.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", p.Failed))
	}
	if p.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", p.Skipped))
	}
	return strings.Join(parts, ", ")
}

func renderAttendees(attendees []api.AttendeeView, colorize bool) string {
	headers := []string{"Identity", "Name", "Fetch", "Score", "Overall", "Detail"}
	rows := make([][]string, 0, len(attendees))
	for _, attendee := range attendees {
		overall := ""
		if attendee.Scores != nil {
			overall = strconv.Itoa(attendee.Scores.OverallScore)
		}
		detail := attendee.FetchError
		if detail == "" {
			detail = attendee.ScoreError
		}
		rows = append(rows, []string{
			attendee.Identity,
			attendee.DisplayName,
			colorStatus(attendee.FetchStatus, colorize),
			colorStatus(attendee.ScoreStatus, colorize),
			overall,
			detail,
		})
	}
	return renderTable(headers, rows, 4)
}

func colorStatus(status string, colorize bool) string {
	if !colorize {
		return status
	}
	switch status {
	case "completed":
		return ansiGreen + status + ansiReset
	case "failed":
		return ansiRed + status + ansiReset
	case "pending":
		return ansiYellow + status + ansiReset
	default:
		return status
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
