package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"housebudget/internal/amqp"
	"housebudget/internal/core"
	"housebudget/internal/metrics"
	"housebudget/internal/sheets"
)

// OutgoingsReader is the slice of storage the worker needs.
type OutgoingsReader interface {
	ListOutgoingsByPerson(ctx context.Context, person string) ([]core.Outgoing, error)
}

// ExportWorker mirrors each person's outgoings into a spreadsheet.
type ExportWorker struct {
	store       OutgoingsReader
	writer      sheets.SnapshotWriter
	household   core.Household
	concurrency int
	metrics     *metrics.Metrics
}

func NewExportWorker(store OutgoingsReader, writer sheets.SnapshotWriter, household core.Household) *ExportWorker {
	return &ExportWorker{
		store:       store,
		writer:      writer,
		household:   household,
		concurrency: 2,
	}
}

// WithMetrics counts export outcomes on m.
func (w *ExportWorker) WithMetrics(m *metrics.Metrics) *ExportWorker {
	w.metrics = m
	return w
}

// HandleOutgoingsReplaced exports the person named in the message. The rows
// are reloaded from storage so a late message never writes stale data.
func (w *ExportWorker) HandleOutgoingsReplaced(ctx context.Context, msg *amqp.OutgoingsReplacedMessage) error {
	person, ok := w.household.Lookup(msg.Person)
	if !ok {
		// Requeueing cannot fix an unknown person; drop it.
		slog.WarnContext(ctx, "Ignoring message for unknown person", "person", msg.Person)
		return nil
	}

	slog.InfoContext(ctx, "Processing outgoings replaced message",
		"person", msg.Person,
		"count", msg.Count,
		"published_at", msg.Timestamp)

	return w.export(ctx, person, msg.Timestamp)
}

// ExportAll re-exports every household member. It runs at startup so the
// sheet catches up with saves made while the worker was down.
func (w *ExportWorker) ExportAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	now := time.Now()
	for _, p := range w.household.Members {
		g.Go(func() error {
			return w.export(ctx, p, now)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("export household: %w", err)
	}
	slog.InfoContext(ctx, "Exported all household members", "members", len(w.household.Members))
	return nil
}

func (w *ExportWorker) export(ctx context.Context, person core.Person, at time.Time) error {
	records, err := w.store.ListOutgoingsByPerson(ctx, person.Name)
	if err != nil {
		return fmt.Errorf("load outgoings for %s: %w", person.Name, err)
	}

	snap := sheets.Snapshot{
		Person:    person.Name,
		Income:    person.Income,
		Records:   records,
		UpdatedAt: at,
	}
	if err := w.writer.WriteSnapshot(ctx, snap); err != nil {
		w.metrics.ObserveExport("error")
		return fmt.Errorf("write snapshot for %s: %w", person.Name, err)
	}

	w.metrics.ObserveExport("ok")
	slog.InfoContext(ctx, "Exported outgoings",
		"person", person.Name,
		"records", len(records),
		"total_pence", snap.Total().Pence)
	return nil
}
