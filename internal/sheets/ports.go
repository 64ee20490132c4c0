// Package sheets defines the spreadsheet export ports.
package sheets

import (
	"context"
	"time"

	"tripledger/internal/amqp"
)

// Header is the first row of the change log sheet.
var Header = []any{"Timestamp", "Type", "Owner", "Entity", "Trip", "Amount", "Description", "Category"}

// ChangeLog appends one row per committed change.
type ChangeLog interface {
	Append(ctx context.Context, ev amqp.ChangeEvent) error
}

// Row renders an event in Header column order. Counts of a reconciliation
// go into the description column.
func Row(ev amqp.ChangeEvent) []any {
	desc := ev.Description
	if ev.Type == amqp.TripReconciled {
		summary := formatCounts(ev)
		if desc != "" {
			desc = desc + ": " + summary
		} else {
			desc = summary
		}
	}
	return []any{
		ev.Timestamp.UTC().Format(time.RFC3339),
		string(ev.Type),
		ev.OwnerID,
		ev.EntityID,
		ev.TripID,
		ev.Amount,
		desc,
		ev.Category,
	}
}
