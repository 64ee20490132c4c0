package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"tripledger/internal/core"
)

func (s *Store) CreateTrip(_ context.Context, t *core.Trip) error {
	return s.write(func(st *state) error {
		if _, ok := st.users[t.OwnerID]; !ok {
			return fmt.Errorf("trip owner %s: %w", t.OwnerID, core.ErrNotFound)
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.CreatedAt = now()
		t.UpdatedAt = t.CreatedAt
		stored := *t
		stored.Expenses = nil
		st.trips[t.ID] = row[core.Trip]{v: stored, seq: st.next()}
		return nil
	})
}

func (s *Store) GetTrip(_ context.Context, ownerID, id string) (core.Trip, error) {
	var out core.Trip
	err := s.read(func(st *state) error {
		r, ok := st.trips[id]
		if !ok || r.v.OwnerID != ownerID {
			return core.ErrNotFound
		}
		out = r.v
		return nil
	})
	return out, err
}

func (s *Store) ListTrips(_ context.Context, ownerID string) ([]core.Trip, error) {
	var rows []row[core.Trip]
	_ = s.read(func(st *state) error {
		for _, r := range st.trips {
			if r.v.OwnerID == ownerID {
				rows = append(rows, r)
			}
		}
		return nil
	})
	slices.SortFunc(rows, func(a, b row[core.Trip]) int {
		if c := b.v.CreatedAt.Compare(a.v.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	out := make([]core.Trip, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.v)
	}
	return out, nil
}

func (s *Store) UpdateTrip(_ context.Context, t core.Trip) error {
	return s.write(func(st *state) error {
		r, ok := st.trips[t.ID]
		if !ok || r.v.OwnerID != t.OwnerID {
			return core.ErrNotFound
		}
		t.CreatedAt = r.v.CreatedAt
		t.UpdatedAt = now()
		t.Expenses = nil
		r.v = t
		st.trips[t.ID] = r
		return nil
	})
}

func (s *Store) DeleteTrip(_ context.Context, ownerID, id string) error {
	return s.write(func(st *state) error {
		r, ok := st.trips[id]
		if !ok || r.v.OwnerID != ownerID {
			return core.ErrNotFound
		}
		for eid, e := range st.expenses {
			if e.v.TripID == id && e.v.OwnerID == ownerID {
				e.v.TripID = ""
				st.expenses[eid] = e
			}
		}
		delete(st.trips, id)
		return nil
	})
}
