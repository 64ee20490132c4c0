package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"tripledger/internal/core"
	"tripledger/internal/storage"
)

// resolve attaches the category the expense references.
func (st *state) resolve(e core.Expense) core.Expense {
	if c, ok := st.categories[e.CategoryID]; ok {
		e.Category = c.v
	}
	return e
}

// checkRefs reports a missing or foreign category or trip as core.ErrNotFound.
func (st *state) checkRefs(e core.Expense) error {
	c, ok := st.categories[e.CategoryID]
	if !ok || c.v.OwnerID != e.OwnerID {
		return fmt.Errorf("expense category %s: %w", e.CategoryID, core.ErrNotFound)
	}
	if e.TripID != "" {
		t, ok := st.trips[e.TripID]
		if !ok || t.v.OwnerID != e.OwnerID {
			return fmt.Errorf("expense trip %s: %w", e.TripID, core.ErrNotFound)
		}
	}
	return nil
}

func (s *Store) CreateExpense(_ context.Context, e *core.Expense) error {
	return s.write(func(st *state) error {
		if err := st.checkRefs(*e); err != nil {
			return err
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.CreatedAt = now()
		e.UpdatedAt = e.CreatedAt
		stored := *e
		stored.Category = core.Category{}
		st.expenses[e.ID] = row[core.Expense]{v: stored, seq: st.next()}
		return nil
	})
}

func (s *Store) GetExpense(_ context.Context, ownerID, id string) (core.Expense, error) {
	var out core.Expense
	err := s.read(func(st *state) error {
		r, ok := st.expenses[id]
		if !ok || r.v.OwnerID != ownerID {
			return core.ErrNotFound
		}
		out = st.resolve(r.v)
		return nil
	})
	return out, err
}

func (s *Store) ListExpenses(_ context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}

	var rows []row[core.Expense]
	_ = s.read(func(st *state) error {
		for _, r := range st.expenses {
			if f.Matches(r.v) {
				r.v = st.resolve(r.v)
				rows = append(rows, r)
			}
		}
		return nil
	})

	slices.SortFunc(rows, func(a, b row[core.Expense]) int {
		c := compareExpenses(f.SortBy, a, b)
		if f.SortOrder == storage.SortDesc {
			return -c
		}
		return c
	})

	out := make([]core.Expense, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.v)
	}
	return out, nil
}

func compareExpenses(sortBy string, a, b row[core.Expense]) int {
	var c int
	switch sortBy {
	case storage.SortByAmount:
		c = a.v.Amount.Cmp(b.v.Amount)
	case storage.SortByDate:
		c = a.v.Date.Compare(b.v.Date.Time)
	}
	if c != 0 {
		return c
	}
	if c = a.v.CreatedAt.Compare(b.v.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	return s.write(func(st *state) error {
		r, ok := st.expenses[e.ID]
		if !ok || r.v.OwnerID != e.OwnerID {
			return core.ErrNotFound
		}
		if err := st.checkRefs(e); err != nil {
			return err
		}
		e.CreatedAt = r.v.CreatedAt
		e.UpdatedAt = now()
		e.Category = core.Category{}
		r.v = e
		st.expenses[e.ID] = r
		return nil
	})
}

func (s *Store) DeleteExpense(_ context.Context, ownerID, id string) error {
	return s.write(func(st *state) error {
		r, ok := st.expenses[id]
		if !ok || r.v.OwnerID != ownerID {
			return core.ErrNotFound
		}
		delete(st.expenses, id)
		return nil
	})
}

func (s *Store) ListTripExpenseIDs(_ context.Context, ownerID, tripID string) ([]string, error) {
	var rows []row[core.Expense]
	_ = s.read(func(st *state) error {
		for _, r := range st.expenses {
			if r.v.OwnerID == ownerID && r.v.TripID == tripID {
				rows = append(rows, r)
			}
		}
		return nil
	})
	slices.SortFunc(rows, func(a, b row[core.Expense]) int {
		return compareExpenses(storage.SortByDate, a, b)
	})

	var ids []string
	for _, r := range rows {
		ids = append(ids, r.v.ID)
	}
	return ids, nil
}

func (s *Store) UpdateTripExpense(_ context.Context, ownerID, tripID, id string, f core.LineItemFields) error {
	return s.write(func(st *state) error {
		r, ok := st.expenses[id]
		if !ok || r.v.OwnerID != ownerID || r.v.TripID != tripID {
			return core.ErrNotFound
		}
		e := r.v
		e.Amount = f.Amount.Decimal
		e.Description = f.Description
		e.Date = f.Date
		e.CategoryID = f.CategoryID
		if err := st.checkRefs(e); err != nil {
			return err
		}
		e.UpdatedAt = now()
		r.v = e
		st.expenses[id] = r
		return nil
	})
}

func (s *Store) DeleteTripExpenses(_ context.Context, ownerID, tripID string, ids []string) (int64, error) {
	var n int64
	err := s.write(func(st *state) error {
		for _, id := range ids {
			r, ok := st.expenses[id]
			if !ok || r.v.OwnerID != ownerID || r.v.TripID != tripID {
				continue
			}
			delete(st.expenses, id)
			n++
		}
		return nil
	})
	return n, err
}
