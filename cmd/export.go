package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/teemow/calgateway/internal/calendar"
	"github.com/teemow/calgateway/internal/config"
	"github.com/teemow/calgateway/internal/ics"
	"github.com/teemow/calgateway/internal/logging"
)

// exportOptions holds the flags of the export command. Zero values fall
// back to the [export] section of the config file.
type exportOptions struct {
	path     string
	limit    int
	filter   string
	orderBy  string
	name     string
	schedule string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export events to an iCalendar file",
		Long: `Export events to an iCalendar (.ics) file.

Without a schedule the export runs once. With --schedule (or
CALENDAR_EXPORT_SCHEDULE, or export.schedule in the config file) the file
is written immediately and then rewritten on every tick of the standard
five-field cron expression until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c, err := clientsForCommand(cmd)
			if err != nil {
				return err
			}
			opts = opts.withDefaults(cfg)

			if opts.schedule == "" {
				_, err := runExport(cmd.Context(), c.gateway, opts)
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runScheduledExport(ctx, c.gateway, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.path, "output", "o", "", "Output file (default from config, then "+config.DefaultExportPath+")")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, fmt.Sprintf("Maximum number of events to export (default %d)", config.DefaultExportLimit))
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Upstream filter expression")
	cmd.Flags().StringVar(&opts.orderBy, "order-by", "", "Upstream ordering expression")
	cmd.Flags().StringVar(&opts.name, "name", "", "Calendar name written as X-WR-CALNAME")
	cmd.Flags().StringVar(&opts.schedule, "schedule", "", "Cron expression for repeated exports")

	return cmd
}

func (o exportOptions) withDefaults(cfg *config.Config) exportOptions {
	if o.path == "" {
		o.path = cfg.Export.Path
	}
	if o.limit <= 0 {
		o.limit = cfg.Export.Limit
	}
	if o.filter == "" {
		o.filter = cfg.Export.Filter
	}
	if o.schedule == "" {
		o.schedule = cfg.Export.Schedule
	}
	return o
}

// runExport writes one snapshot and returns the number of events in it.
func runExport(ctx context.Context, svc calendar.EventService, opts exportOptions) (int, error) {
	events, err := calendar.CollectEvents(ctx, svc, calendar.EventQuery{
		Top:     calendar.DefaultTop,
		Filter:  opts.filter,
		OrderBy: opts.orderBy,
	}, opts.limit)
	if err != nil {
		return 0, fmt.Errorf("failed to collect events: %w", err)
	}

	if err := ics.WriteFile(opts.path, events, ics.ExportOptions{Name: opts.name}); err != nil {
		return 0, err
	}

	slog.Info("exported events", slog.Int("count", len(events)), slog.String("path", opts.path))
	return len(events), nil
}

// runScheduledExport exports once, then on every tick of opts.schedule
// until ctx is done. Failed ticks are logged and retried on the next one.
func runScheduledExport(ctx context.Context, svc calendar.EventService, opts exportOptions) error {
	schedule, err := cron.ParseStandard(opts.schedule)
	if err != nil {
		return fmt.Errorf("invalid export schedule %q: %w", opts.schedule, err)
	}

	if _, err := runExport(ctx, svc, opts); err != nil {
		return err
	}

	c := cron.New()
	c.Schedule(schedule, cron.FuncJob(func() {
		if _, err := runExport(ctx, svc, opts); err != nil {
			slog.Error("scheduled export failed", logging.Err(err))
		}
	}))

	c.Start()
	slog.Info("export scheduled", slog.String("schedule", opts.schedule), slog.String("path", opts.path))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
