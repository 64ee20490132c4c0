// Package storage defines the persistence ports used by the services.
//
// Every read and write is scoped by owner. A record that exists but belongs
// to another user is reported exactly like a missing one, with core.ErrNotFound.
package storage

import (
	"context"

	"tripledger/internal/core"
)

type (
	UserStore interface {
		CreateUser(ctx context.Context, u *core.User) error
		GetUserByID(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		UpdateUser(ctx context.Context, u core.User) error
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c *core.Category) error
		GetCategory(ctx context.Context, ownerID, id string) (core.Category, error)
		// ListCategories returns the owner's categories ordered by name.
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		// DeleteCategory fails with core.ErrConflict while expenses reference it.
		DeleteCategory(ctx context.Context, ownerID, id string) error
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e *core.Expense) error
		GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error)
		ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, ownerID, id string) error

		// ListTripExpenseIDs returns the identifiers currently linked to the trip.
		ListTripExpenseIDs(ctx context.Context, ownerID, tripID string) ([]string, error)
		// UpdateTripExpense rewrites amount, description, date and category of
		// a line item. Rows outside the owner and trip scope are not touched.
		UpdateTripExpense(ctx context.Context, ownerID, tripID, id string, f core.LineItemFields) error
		// DeleteTripExpenses deletes the given line items of one trip and
		// returns how many rows matched the scope.
		DeleteTripExpenses(ctx context.Context, ownerID, tripID string, ids []string) (int64, error)
	}

	TripStore interface {
		CreateTrip(ctx context.Context, t *core.Trip) error
		// GetTrip loads the trip's scalar fields only; Expenses is left nil.
		GetTrip(ctx context.Context, ownerID, id string) (core.Trip, error)
		// ListTrips returns the owner's trips, newest first, without expenses.
		ListTrips(ctx context.Context, ownerID string) ([]core.Trip, error)
		UpdateTrip(ctx context.Context, t core.Trip) error
		// DeleteTrip removes the trip and detaches, never deletes, its expenses.
		DeleteTrip(ctx context.Context, ownerID, id string) error
	}

	// Store is the full persistence port.
	Store interface {
		UserStore
		CategoryStore
		ExpenseStore
		TripStore

		// InTx runs fn against a transactional view of the store. The
		// transaction commits when fn returns nil and rolls back otherwise.
		InTx(ctx context.Context, fn func(tx Store) error) error
		Ping(ctx context.Context) error
		Close() error
	}
)
