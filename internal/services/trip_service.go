package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"tripledger/internal/amqp"
	"tripledger/internal/core"
	"tripledger/internal/metrics"
	"tripledger/internal/storage"
)

const DefaultReconcileConcurrency = 4

// TripInput carries the scalar fields of a new trip.
type TripInput struct {
	Name        string
	Description string
	StartDate   core.Date
	EndDate     core.NullDate
}

// ReconcileResult counts what one reconciliation changed.
type ReconcileResult struct {
	Created int
	Updated int
	Deleted int
	Skipped int
}

// TripService owns trips and applies line item reconciliation.
//
// A reconciliation runs in one store transaction, so a failure at any step
// leaves the trip's line items as they were. Reconciliations of the same
// trip are serialized in-process.
type TripService struct {
	store       storage.Store
	notifier    *Notifier
	metrics     *metrics.Metrics
	concurrency int
	locks       keyedMutex
}

func NewTripService(store storage.Store, notifier *Notifier, m *metrics.Metrics, concurrency int) *TripService {
	if concurrency < 1 {
		concurrency = DefaultReconcileConcurrency
	}
	return &TripService{
		store:       store,
		notifier:    notifier,
		metrics:     m,
		concurrency: concurrency,
	}
}

// List returns the owner's trips, newest first, each with its line items.
func (s *TripService) List(ctx context.Context, ownerID string) ([]core.Trip, error) {
	trips, err := s.store.ListTrips(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	if len(trips) == 0 {
		return trips, nil
	}

	expenses, err := s.store.ListExpenses(ctx, storage.ExpenseFilter{
		OwnerID:   ownerID,
		SortBy:    storage.SortByDate,
		SortOrder: storage.SortAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("list trip expenses: %w", err)
	}

	byTrip := make(map[string][]core.Expense)
	for _, e := range expenses {
		if e.TripID != "" {
			byTrip[e.TripID] = append(byTrip[e.TripID], e)
		}
	}
	for i := range trips {
		trips[i].Expenses = byTrip[trips[i].ID]
		if trips[i].Expenses == nil {
			trips[i].Expenses = []core.Expense{}
		}
	}
	return trips, nil
}

// Get returns one trip with its line items and their categories.
func (s *TripService) Get(ctx context.Context, ownerID, id string) (core.Trip, error) {
	return loadTrip(ctx, s.store, ownerID, id)
}

func loadTrip(ctx context.Context, st storage.Store, ownerID, id string) (core.Trip, error) {
	trip, err := st.GetTrip(ctx, ownerID, id)
	if err != nil {
		return core.Trip{}, err
	}
	trip.Expenses, err = st.ListExpenses(ctx, storage.ExpenseFilter{
		OwnerID:   ownerID,
		TripID:    id,
		SortBy:    storage.SortByDate,
		SortOrder: storage.SortAsc,
	})
	if err != nil {
		return core.Trip{}, fmt.Errorf("load trip expenses: %w", err)
	}
	return trip, nil
}

// Create stores a trip together with its initial line items.
func (s *TripService) Create(ctx context.Context, ownerID string, in TripInput, items []core.LineItem) (core.Trip, error) {
	trip := core.Trip{
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}
	if err := trip.Validate(); err != nil {
		return core.Trip{}, err
	}
	if err := core.ValidateLineItems(items); err != nil {
		return core.Trip{}, err
	}

	var result ReconcileResult
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateTrip(ctx, &trip); err != nil {
			return fmt.Errorf("create trip: %w", err)
		}
		var err error
		result, err = s.apply(ctx, tx, ownerID, trip.ID, core.PlanReconciliation(nil, items))
		return err
	})
	if err != nil {
		return core.Trip{}, err
	}

	slog.InfoContext(ctx, "Trip created", "trip_id", trip.ID, "line_items", result.Created)
	s.record(result)

	events := []amqp.ChangeEvent{tripEvent(amqp.TripCreated, trip)}
	if result.Created > 0 {
		events = append(events, reconciledEvent(trip, result))
	}
	return s.reload(ctx, ownerID, trip.ID, events...)
}

// Update applies the scalar patch and, when items is non-nil, reconciles the
// line items against it. A nil items slice leaves line items untouched; an
// empty one removes them all.
func (s *TripService) Update(ctx context.Context, ownerID, id string, patch core.TripPatch, items []core.LineItem) (core.Trip, error) {
	if err := core.ValidateLineItems(items); err != nil {
		return core.Trip{}, err
	}

	unlock := s.locks.Lock(ownerID + "/" + id)
	defer unlock()

	var (
		trip   core.Trip
		result ReconcileResult
	)
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		var err error
		if trip, err = tx.GetTrip(ctx, ownerID, id); err != nil {
			return err
		}

		if !patch.IsEmpty() {
			if err := patch.Apply(&trip); err != nil {
				return err
			}
			if err := tx.UpdateTrip(ctx, trip); err != nil {
				return fmt.Errorf("update trip: %w", err)
			}
		}

		if items == nil {
			return nil
		}
		existingIDs, err := tx.ListTripExpenseIDs(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("list trip line items: %w", err)
		}
		result, err = s.apply(ctx, tx, ownerID, id, core.PlanReconciliation(existingIDs, items))
		return err
	})
	if err != nil {
		return core.Trip{}, err
	}

	var events []amqp.ChangeEvent
	if !patch.IsEmpty() {
		events = append(events, tripEvent(amqp.TripUpdated, trip))
	}
	if items != nil {
		s.record(result)
		events = append(events, reconciledEvent(trip, result))
		slog.InfoContext(ctx, "Trip reconciled",
			"trip_id", id,
			"created", result.Created,
			"updated", result.Updated,
			"deleted", result.Deleted,
			"skipped", result.Skipped)
	}
	return s.reload(ctx, ownerID, id, events...)
}

// Reconcile makes the trip's persisted line items match items exactly.
func (s *TripService) Reconcile(ctx context.Context, ownerID, id string, items []core.LineItem) (core.Trip, error) {
	if items == nil {
		items = []core.LineItem{}
	}
	return s.Update(ctx, ownerID, id, core.TripPatch{}, items)
}

// Delete removes the trip; its expenses stay, unlinked.
func (s *TripService) Delete(ctx context.Context, ownerID, id string) error {
	unlock := s.locks.Lock(ownerID + "/" + id)
	defer unlock()

	var trip core.Trip
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		var err error
		if trip, err = tx.GetTrip(ctx, ownerID, id); err != nil {
			return err
		}
		return tx.DeleteTrip(ctx, ownerID, id)
	})
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	s.notifier.Committed(ctx, ownerID, tripEvent(amqp.TripDeleted, trip))
	return nil
}

// apply writes a plan inside tx: deletes first, then updates and creates
// concurrently. Every referenced category is checked before any write.
func (s *TripService) apply(ctx context.Context, tx storage.Store, ownerID, tripID string, plan core.ReconciliationPlan) (ReconcileResult, error) {
	result := ReconcileResult{Skipped: plan.Skipped}

	for _, catID := range plan.CategoryIDs() {
		if _, err := tx.GetCategory(ctx, ownerID, catID); err != nil {
			return result, fmt.Errorf("category %s: %w", catID, err)
		}
	}

	deleted, err := tx.DeleteTripExpenses(ctx, ownerID, tripID, plan.Delete)
	if err != nil {
		return result, fmt.Errorf("delete line items: %w", err)
	}
	result.Deleted = int(deleted)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, u := range plan.Updates {
		g.Go(func() error {
			if err := tx.UpdateTripExpense(gctx, ownerID, tripID, u.ID, u.LineItemFields); err != nil {
				return fmt.Errorf("update line item %s: %w", u.ID, err)
			}
			return nil
		})
	}
	for _, f := range plan.Creates {
		g.Go(func() error {
			e := f.Expense(ownerID, tripID)
			if err := tx.CreateExpense(gctx, &e); err != nil {
				return fmt.Errorf("create line item: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	result.Updated = len(plan.Updates)
	result.Created = len(plan.Creates)
	return result, nil
}

func (s *TripService) record(r ReconcileResult) {
	s.metrics.AddReconcileOps(metrics.OpCreate, r.Created)
	s.metrics.AddReconcileOps(metrics.OpUpdate, r.Updated)
	s.metrics.AddReconcileOps(metrics.OpDelete, r.Deleted)
	s.metrics.AddReconcileOps(metrics.OpSkip, r.Skipped)
}

// reload reads the committed trip back and then runs the post-commit effects.
func (s *TripService) reload(ctx context.Context, ownerID, id string, events ...amqp.ChangeEvent) (core.Trip, error) {
	s.notifier.Committed(ctx, ownerID, events...)
	trip, err := loadTrip(ctx, s.store, ownerID, id)
	if err != nil {
		return core.Trip{}, fmt.Errorf("reload trip: %w", err)
	}
	return trip, nil
}

func tripEvent(typ amqp.EventType, t core.Trip) amqp.ChangeEvent {
	ev := amqp.NewChangeEvent(typ, t.OwnerID, t.ID)
	ev.TripID = t.ID
	ev.Description = t.Name
	return ev
}

func reconciledEvent(t core.Trip, r ReconcileResult) amqp.ChangeEvent {
	ev := tripEvent(amqp.TripReconciled, t)
	ev.Created = r.Created
	ev.Updated = r.Updated
	ev.Deleted = r.Deleted
	return ev
}
