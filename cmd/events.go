package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calgateway/internal/calendar"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List, get and create calendar events",
	}

	cmd.AddCommand(newEventsListCmd())
	cmd.AddCommand(newEventsGetCmd())
	cmd.AddCommand(newEventsCreateCmd())

	return cmd
}

func newEventsListCmd() *cobra.Command {
	var (
		q      calendar.EventQuery
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := clientsForCommand(cmd)
			if err != nil {
				return err
			}
			return runEventsList(cmd, c.gateway, q, output)
		},
	}

	cmd.Flags().IntVar(&q.Top, "top", calendar.DefaultTop, "Maximum number of events to return")
	cmd.Flags().IntVar(&q.Skip, "skip", 0, "Number of events to skip")
	cmd.Flags().StringVar(&q.Filter, "filter", "", "Upstream filter expression")
	cmd.Flags().StringVar(&q.OrderBy, "order-by", "", "Upstream ordering expression")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")

	return cmd
}

func runEventsList(cmd *cobra.Command, svc calendar.EventService, q calendar.EventQuery, output string) error {
	if q.Top < 0 || q.Skip < 0 {
		return fmt.Errorf("--top and --skip must not be negative")
	}
	if q.Top == 0 {
		q.Top = calendar.DefaultTop
	}
	if output != outputTable && output != outputJSON {
		return fmt.Errorf("unsupported output format %q (supported: table, json)", output)
	}

	page, err := svc.ListEvents(cmd.Context(), q)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if output == outputJSON {
		return writeJSON(w, page.Items)
	}
	return writeEventTable(w, page.Items)
}

func newEventsGetCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := clientsForCommand(cmd)
			if err != nil {
				return err
			}
			return runEventsGet(cmd, c.gateway, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Output format: table or json")

	return cmd
}

func runEventsGet(cmd *cobra.Command, svc calendar.EventService, id, output string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("event id is required")
	}

	ev, err := svc.GetEvent(cmd.Context(), id)
	if calendar.IsNotFound(err) {
		return fmt.Errorf("event with ID %s not found", id)
	}
	if err != nil {
		return err
	}

	if output == outputTable {
		return writeEventTable(cmd.OutOrStdout(), []calendar.Event{*ev})
	}
	return writeJSON(cmd.OutOrStdout(), ev)
}

// createFlags holds the raw create flags; times are parsed in run.
type createFlags struct {
	title       string
	description string
	start       string
	end         string
}

func newEventsCreateCmd() *cobra.Command {
	var f createFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Long: `Create an event. Start and end are RFC3339 timestamps, e.g.
2026-03-01T09:00:00Z. The request is validated before the credential is
acquired, so an invalid event never reaches the upstream API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			_, c, err := clientsForCommand(cmd)
			if err != nil {
				return err
			}
			return runEventsCreate(cmd, c.gateway, req)
		},
	}

	cmd.Flags().StringVar(&f.title, "title", "", "Event title (required, at most 200 characters)")
	cmd.Flags().StringVar(&f.description, "description", "", "Event description (required)")
	cmd.Flags().StringVar(&f.start, "start", "", "Start time as RFC3339 (required)")
	cmd.Flags().StringVar(&f.end, "end", "", "End time as RFC3339 (required)")

	return cmd
}

func (f createFlags) request() (calendar.CreateEventRequest, error) {
	req := calendar.CreateEventRequest{
		Title:       f.title,
		Description: f.description,
	}

	var err error
	if req.StartDate, err = parseTimeFlag("start", f.start); err != nil {
		return req, err
	}
	if req.EndDate, err = parseTimeFlag("end", f.end); err != nil {
		return req, err
	}
	return req, req.Validate()
}

func parseTimeFlag(name, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be an RFC3339 timestamp: %w", name, err)
	}
	return t, nil
}

func runEventsCreate(cmd *cobra.Command, svc calendar.EventService, req calendar.CreateEventRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	ev, err := svc.CreateEvent(cmd.Context(), req)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), ev)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeEventTable(w io.Writer, events []calendar.Event) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTART\tEND")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			ev.ID,
			ev.Title,
			ev.StartDate.Format(time.RFC3339),
			ev.EndDate.Format(time.RFC3339))
	}
	return tw.Flush()
}
