// Package importer creates upstream events from decoded iCalendar
// occurrences, consulting a journal so each occurrence is created once.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teemow/calgateway/internal/calendar"
	"github.com/teemow/calgateway/internal/ics"
	"github.com/teemow/calgateway/internal/journal"
	"github.com/teemow/calgateway/internal/logging"
	"github.com/teemow/calgateway/internal/token"
)

// Store is the subset of *journal.Journal the importer needs.
type Store interface {
	Lookup(ctx context.Context, key string) (journal.Entry, bool, error)
	Record(ctx context.Context, key, eventID, source string) error
}

// Options controls Import.
type Options struct {
	// Source is stored with each journal entry, usually the file name.
	Source string

	// DryRun validates and counts without creating or recording anything.
	DryRun bool

	Logger logging.Logger
}

// Result summarizes an import run.
type Result struct {
	Created int
	Skipped int
	Invalid int
	Failed  int

	// Errors holds one entry per invalid or failed occurrence.
	Errors []error
}

// Import creates every occurrence not yet in store. Validation and remote
// failures of individual occurrences are collected in the result; an
// authentication failure aborts the run since every later call would fail
// the same way.
func Import(ctx context.Context, svc calendar.EventService, store Store, occs []ics.Occurrence, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	var res Result
	for _, occ := range occs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		entry, found, err := store.Lookup(ctx, occ.Key)
		if err != nil {
			return res, err
		}
		if found {
			res.Skipped++
			logger.Debug("occurrence already imported", slog.String("key", occ.Key), logging.EventID(entry.EventID))
			continue
		}

		if err := occ.Request.Validate(); err != nil {
			res.Invalid++
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", occ.Key, err))
			logger.Warn("skipping invalid occurrence", slog.String("key", occ.Key), logging.Err(err))
			continue
		}

		if opts.DryRun {
			res.Created++
			logger.Info("would create event", slog.String("key", occ.Key), slog.String("title", occ.Request.Title))
			continue
		}

		ev, err := svc.CreateEvent(ctx, occ.Request)
		if err != nil {
			var authErr *token.AuthenticationError
			if errors.As(err, &authErr) {
				return res, err
			}
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", occ.Key, err))
			logger.Warn("failed to create event", slog.String("key", occ.Key), logging.Err(err))
			continue
		}

		if err := store.Record(ctx, occ.Key, ev.ID, opts.Source); err != nil {
			return res, fmt.Errorf("event %s was created but could not be journaled: %w", ev.ID, err)
		}
		res.Created++
		logger.Info("created event", slog.String("key", occ.Key), logging.EventID(ev.ID))
	}
	return res, nil
}
