// Package worker turns consumed change events into spreadsheet rows.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tripledger/internal/amqp"
	"tripledger/internal/cache"
	"tripledger/internal/sheets"
)

const (
	recentSize = 1024
	recentTTL  = time.Hour
)

// ExportWorker appends each event to a change log once. Redelivered events
// that were already written are acknowledged without a second row.
type ExportWorker struct {
	log    sheets.ChangeLog
	recent cache.Cache[struct{}]
}

func NewExportWorker(log sheets.ChangeLog) *ExportWorker {
	return &ExportWorker{
		log:    log,
		recent: cache.NewLRUCache[struct{}](recentSize, recentTTL),
	}
}

// Handle is an amqp.Handler.
func (w *ExportWorker) Handle(ctx context.Context, ev amqp.ChangeEvent) error {
	key := eventKey(ev)
	if _, seen := w.recent.Get(key); seen {
		slog.InfoContext(ctx, "Skipping already exported event", "type", ev.Type, "entity_id", ev.EntityID)
		return nil
	}

	if err := w.log.Append(ctx, ev); err != nil {
		return fmt.Errorf("export %s %s: %w", ev.Type, ev.EntityID, err)
	}
	w.recent.Set(key, struct{}{})
	return nil
}

func eventKey(ev amqp.ChangeEvent) string {
	return fmt.Sprintf("%s|%s|%s|%d", ev.Type, ev.OwnerID, ev.EntityID, ev.Timestamp.UnixNano())
}
