// Package exporter mirrors the registry journal into durable storage
// for external consumers. The in-memory journal stays the source of
// truth; the store is a read model that survives restarts.
package exporter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unordered-set/liquidaccess-nft/internal/metrics"
	"github.com/unordered-set/liquidaccess-nft/pkg/events"
)

const (
	// subscribeBuffer absorbs bursts like batch mints. A full buffer
	// drops events from the export stream rather than block the
	// registry writer.
	subscribeBuffer = 256

	exportTimeout = 10 * time.Second
)

// EventStore defines the interface for persisting journal events
type EventStore interface {
	InsertEvent(ctx context.Context, ev events.Event) error
}

// Exporter copies journal events into an event store as they are
// appended.
type Exporter struct {
	journal *events.Journal
	store   EventStore
	logger  *zap.Logger

	unsubscribe func()
	wg          sync.WaitGroup
}

// NewExporter creates an exporter draining journal into store
func NewExporter(journal *events.Journal, store EventStore, logger *zap.Logger) *Exporter {
	return &Exporter{
		journal: journal,
		store:   store,
		logger:  logger,
	}
}

// Start subscribes to the journal and begins exporting in the
// background.
func (e *Exporter) Start() {
	e.logger.Info("Starting event exporter")

	ch, cancel := e.journal.Subscribe(subscribeBuffer)
	e.unsubscribe = cancel

	e.wg.Add(1)
	go e.drain(ch)
}

// Stop unsubscribes from the journal and waits until every buffered
// event has been written out.
func (e *Exporter) Stop() {
	e.logger.Info("Stopping event exporter")
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.wg.Wait()
	e.logger.Info("Event exporter stopped")
}

func (e *Exporter) drain(ch <-chan events.Event) {
	defer e.wg.Done()

	// Closing the subscription lets the remaining buffer drain before
	// the range ends, so Stop flushes instead of truncating.
	for ev := range ch {
		e.export(ev)
	}
}

func (e *Exporter) export(ev events.Event) {
	// Inserts run on their own context so shutdown still flushes the
	// tail of the journal.
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	if err := e.store.InsertEvent(ctx, ev); err != nil {
		metrics.EventsExported.WithLabelValues("error").Inc()
		e.logger.Error("Failed to export event",
			zap.String("event_id", ev.ID),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err))
		return
	}

	metrics.EventsExported.WithLabelValues("ok").Inc()
}
