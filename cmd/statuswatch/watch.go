package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/campusdesk/officehours/internal/watch"
	"github.com/campusdesk/officehours/internal/wire"
)

func newWatchCmd() *cobra.Command {
	var (
		url        string
		retry      bool
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the faculty directory and every change as it happens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := watch.NewClient(url, loggerFor(cmd))
			out := cmd.OutOrStdout()
			handle := func(frame watch.Frame, affected []string, view *watch.View) {
				if jsonOutput {
					_ = json.NewEncoder(out).Encode(frame)
					return
				}
				printFrame(out, frame, affected, view)
			}

			var err error
			if retry {
				err = client.RunWithRetry(ctx, handle)
			} else {
				err = client.Run(ctx, handle)
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "ws://localhost:5000/ws", "Live channel URL")
	cmd.Flags().BoolVar(&retry, "retry", true, "Reconnect when the connection drops")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print raw frames as JSON lines")
	return cmd
}

func printFrame(out io.Writer, frame watch.Frame, affected []string, view *watch.View) {
	switch frame.Type {
	case "initial_data":
		printTable(out, view.Records())
	case "faculty_removed":
		for _, id := range affected {
			fmt.Fprintf(out, "- removed %s\n", id)
		}
	default:
		for _, id := range affected {
			rec, ok := view.Get(id)
			if !ok {
				continue
			}
			fmt.Fprintf(out, "* %s: %s%s\n", rec.Name, rec.Status, noteSuffix(rec))
		}
	}
}

func printTable(out io.Writer, records []wire.Faculty) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDEPARTMENT\tOFFICE\tSTATUS\tNOTE")
	for _, rec := range records {
		note := ""
		if rec.CustomMessage != nil {
			note = *rec.CustomMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", rec.Name, rec.Department, rec.Office, rec.Status, note)
	}
	_ = tw.Flush()
}

func noteSuffix(rec wire.Faculty) string {
	if rec.CustomMessage == nil {
		return ""
	}
	return " (" + *rec.CustomMessage + ")"
}
