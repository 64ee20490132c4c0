package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"tripledger/internal/amqp"
	"tripledger/internal/core"
	"tripledger/internal/storage"
)

// ExpenseInput carries every writable field of a standalone expense.
type ExpenseInput struct {
	Amount      decimal.Decimal
	Description string
	Date        core.Date
	CategoryID  string
	ReceiptRef  string
	TripID      string // Empty leaves the expense unlinked
}

// ExpenseService orchestrates expense operations across the store and the event publisher.
type ExpenseService struct {
	store    storage.Store
	notifier *Notifier
}

func NewExpenseService(store storage.Store, notifier *Notifier) *ExpenseService {
	return &ExpenseService{store: store, notifier: notifier}
}

func (s *ExpenseService) List(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return nil, core.NewValidationError("startDate", "must not be after endDate")
	}
	expenses, err := s.store.ListExpenses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) Get(ctx context.Context, ownerID, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, ownerID, id)
}

func (s *ExpenseService) Create(ctx context.Context, ownerID string, in ExpenseInput) (core.Expense, error) {
	e := in.expense(ownerID)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	err := s.store.InTx(ctx, func(tx storage.Store) error {
		if err := checkRefs(ctx, tx, ownerID, e.CategoryID, e.TripID); err != nil {
			return err
		}
		return tx.CreateExpense(ctx, &e)
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	created, err := s.store.GetExpense(ctx, ownerID, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("reload expense: %w", err)
	}
	s.notifier.Committed(ctx, ownerID, expenseEvent(amqp.ExpenseCreated, created))
	return created, nil
}

func (s *ExpenseService) Update(ctx context.Context, ownerID, id string, in ExpenseInput) (core.Expense, error) {
	e := in.expense(ownerID)
	e.ID = id
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	err := s.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetExpense(ctx, ownerID, id); err != nil {
			return err
		}
		if err := checkRefs(ctx, tx, ownerID, e.CategoryID, e.TripID); err != nil {
			return err
		}
		return tx.UpdateExpense(ctx, e)
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	updated, err := s.store.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("reload expense: %w", err)
	}
	s.notifier.Committed(ctx, ownerID, expenseEvent(amqp.ExpenseUpdated, updated))
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, ownerID, id string) error {
	var gone core.Expense
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		var err error
		if gone, err = tx.GetExpense(ctx, ownerID, id); err != nil {
			return err
		}
		return tx.DeleteExpense(ctx, ownerID, id)
	})
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.notifier.Committed(ctx, ownerID, expenseEvent(amqp.ExpenseDeleted, gone))
	return nil
}

func (in ExpenseInput) expense(ownerID string) core.Expense {
	return core.Expense{
		OwnerID:     ownerID,
		Amount:      in.Amount,
		Description: in.Description,
		Date:        in.Date,
		CategoryID:  in.CategoryID,
		ReceiptRef:  in.ReceiptRef,
		TripID:      in.TripID,
	}
}

// checkRefs resolves the referenced category and optional trip within the owner's scope.
func checkRefs(ctx context.Context, s storage.Store, ownerID, categoryID, tripID string) error {
	if _, err := s.GetCategory(ctx, ownerID, categoryID); err != nil {
		return fmt.Errorf("category %s: %w", categoryID, err)
	}
	if tripID != "" {
		if _, err := s.GetTrip(ctx, ownerID, tripID); err != nil {
			return fmt.Errorf("trip %s: %w", tripID, err)
		}
	}
	return nil
}

func expenseEvent(typ amqp.EventType, e core.Expense) amqp.ChangeEvent {
	ev := amqp.NewChangeEvent(typ, e.OwnerID, e.ID)
	ev.TripID = e.TripID
	ev.Amount = e.Amount.StringFixed(2)
	ev.Description = e.Description
	ev.Category = e.Category.Name
	return ev
}
