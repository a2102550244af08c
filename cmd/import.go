package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calgateway/internal/calendar"
	"github.com/teemow/calgateway/internal/ics"
	"github.com/teemow/calgateway/internal/importer"
	"github.com/teemow/calgateway/internal/journal"
	"github.com/teemow/calgateway/internal/logging"
)

// importOptions holds the flags of the import command.
type importOptions struct {
	journalPath string
	dryRun      bool
	horizon     time.Duration
	timezone    string
	list        bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file.ics>",
		Short: "Create events from an iCalendar file",
		Long: `Create an upstream event for every event in an iCalendar file.

Recurring events are expanded from now until the import horizon. Every
created event is recorded in a sqlite journal, so importing the same file
again only creates what is new.

With --list nothing is imported: the journal entries are printed instead,
limited to the given file when one is named.`,
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.list && len(args) != 1 {
				return fmt.Errorf("an iCalendar file is required")
			}

			cfg, c, err := clientsForCommand(cmd)
			if err != nil {
				return err
			}
			if opts.journalPath == "" {
				opts.journalPath = cfg.Journal.Path
			}
			if opts.horizon <= 0 {
				opts.horizon = cfg.Import.Horizon
			}

			if opts.list {
				var source string
				if len(args) == 1 {
					source = filepath.Base(args[0])
				}
				return runImportList(cmd.Context(), cmd.OutOrStdout(), opts.journalPath, source)
			}
			return runImport(cmd.Context(), cmd.OutOrStdout(), c.gateway, args[0], opts, time.Now())
		},
	}

	cmd.Flags().StringVar(&opts.journalPath, "journal", "", "Import journal database (default from config, then calgateway.db)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate and report without creating events")
	cmd.Flags().DurationVar(&opts.horizon, "horizon", 0, "How far ahead to expand recurring events (default 2160h)")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "UTC", "IANA time zone for floating times")
	cmd.Flags().BoolVar(&opts.list, "list", false, "List journal entries instead of importing")

	return cmd
}

func runImport(ctx context.Context, out io.Writer, svc calendar.EventService, path string, opts importOptions, now time.Time) error {
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", opts.timezone, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	occs, err := ics.Decode(f, ics.DecodeOptions{
		Location: loc,
		From:     now,
		Until:    now.Add(opts.horizon),
	})
	if err != nil {
		return err
	}

	j, err := journal.Open(opts.journalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	res, err := importer.Import(ctx, svc, j, occs, importer.Options{
		Source: filepath.Base(path),
		DryRun: opts.dryRun,
		Logger: logging.DefaultLogger(),
	})
	printImportResult(out, res, opts.dryRun)
	return err
}

func printImportResult(w io.Writer, res importer.Result, dryRun bool) {
	verb := "created"
	if dryRun {
		verb = "would create"
	}
	fmt.Fprintf(w, "%s %d, skipped %d, invalid %d, failed %d\n", verb, res.Created, res.Skipped, res.Invalid, res.Failed)
	for _, err := range res.Errors {
		fmt.Fprintf(w, "  %v\n", err)
	}
}

// runImportList prints the journal entries for source, or all entries when
// source is empty.
func runImportList(ctx context.Context, out io.Writer, journalPath, source string) error {
	j, err := journal.Open(journalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.List(ctx, source)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tEVENT ID\tSOURCE\tIMPORTED AT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Key, e.EventID, e.Source, e.ImportedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
