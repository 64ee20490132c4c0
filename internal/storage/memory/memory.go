// Package memory is an in-process storage.Store for development and tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripledger/internal/core"
	"tripledger/internal/storage"
)

type (
	row[T any] struct {
		v   T
		seq int64 // Insertion order, breaks ties on equal timestamps
	}

	state struct {
		seq        int64
		users      map[string]row[core.User]
		categories map[string]row[core.Category]
		expenses   map[string]row[core.Expense]
		trips      map[string]row[core.Trip]
	}

	memDB struct {
		txMu sync.Mutex // Held by a running transaction and by writes outside one
		mu   sync.RWMutex
		st   state
	}

	// Store keeps everything in maps. Transactions are serialized and roll
	// back by restoring a snapshot taken when they began.
	//
	// Reads outside a transaction do not wait for one. They can observe
	// writes of a transaction that is still open and may yet roll back.
	Store struct {
		db   *memDB
		inTx bool
	}
)

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{db: &memDB{st: state{
		users:      map[string]row[core.User]{},
		categories: map[string]row[core.Category]{},
		expenses:   map[string]row[core.Expense]{},
		trips:      map[string]row[core.Trip]{},
	}}}
}

func (st *state) clone() state {
	return state{
		seq:        st.seq,
		users:      maps.Clone(st.users),
		categories: maps.Clone(st.categories),
		expenses:   maps.Clone(st.expenses),
		trips:      maps.Clone(st.trips),
	}
}

func (st *state) next() int64 {
	st.seq++
	return st.seq
}

func (s *Store) read(fn func(st *state) error) error {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(&s.db.st)
}

func (s *Store) write(fn func(st *state) error) error {
	if !s.inTx {
		s.db.txMu.Lock()
		defer s.db.txMu.Unlock()
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(&s.db.st)
}

func (s *Store) InTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.RLock()
	snapshot := s.db.st.clone()
	s.db.mu.RUnlock()

	if err := fn(&Store{db: s.db, inTx: true}); err != nil {
		s.db.mu.Lock()
		s.db.st = snapshot
		s.db.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error              { return nil }

func now() time.Time {
	return time.Now().UTC()
}

// Users

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	return s.write(func(st *state) error {
		for _, r := range st.users {
			if r.v.Email == u.Email {
				return fmt.Errorf("email %s: %w", u.Email, core.ErrConflict)
			}
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		u.CreatedAt = now()
		st.users[u.ID] = row[core.User]{v: *u, seq: st.next()}
		return nil
	})
}

func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	var out core.User
	err := s.read(func(st *state) error {
		r, ok := st.users[id]
		if !ok {
			return core.ErrNotFound
		}
		out = r.v
		return nil
	})
	return out, err
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	var out core.User
	err := s.read(func(st *state) error {
		for _, r := range st.users {
			if r.v.Email == email {
				out = r.v
				return nil
			}
		}
		return core.ErrNotFound
	})
	return out, err
}

func (s *Store) UpdateUser(_ context.Context, u core.User) error {
	return s.write(func(st *state) error {
		r, ok := st.users[u.ID]
		if !ok {
			return core.ErrNotFound
		}
		for id, other := range st.users {
			if id != u.ID && other.v.Email == u.Email {
				return fmt.Errorf("email %s: %w", u.Email, core.ErrConflict)
			}
		}
		u.CreatedAt = r.v.CreatedAt
		r.v = u
		st.users[u.ID] = r
		return nil
	})
}

// Categories

func (s *Store) CreateCategory(_ context.Context, c *core.Category) error {
	return s.write(func(st *state) error {
		if _, ok := st.users[c.OwnerID]; !ok {
			return fmt.Errorf("category owner %s: %w", c.OwnerID, core.ErrNotFound)
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		st.categories[c.ID] = row[core.Category]{v: *c, seq: st.next()}
		return nil
	})
}

func (s *Store) GetCategory(_ context.Context, ownerID, id string) (core.Category, error) {
	var out core.Category
	err := s.read(func(st *state) error {
		r, ok := st.categories[id]
		if !ok || r.v.OwnerID != ownerID {
			return core.ErrNotFound
		}
		out = r.v
		return nil
	})
	return out, err
}

func (s *Store) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	out := []core.Category{}
	err := s.read(func(st *state) error {
		for _, r := range st.categories {
			if r.v.OwnerID == ownerID {
				out = append(out, r.v)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b core.Category) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, err
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	return s.write(func(st *state) error {
		r, ok := st.categories[c.ID]
		if !ok || r.v.OwnerID != c.OwnerID {
			return core.ErrNotFound
		}
		r.v = c
		st.categories[c.ID] = r
		return nil
	})
}

func (s *Store) DeleteCategory(_ context.Context, ownerID, id string) error {
	return s.write(func(st *state) error {
		r, ok := st.categories[id]
		if !ok || r.v.OwnerID != ownerID {
			return core.ErrNotFound
		}
		inUse := 0
		for _, e := range st.expenses {
			if e.v.CategoryID == id {
				inUse++
			}
		}
		if inUse > 0 {
			return fmt.Errorf("category used by %d expenses: %w", inUse, core.ErrConflict)
		}
		delete(st.categories, id)
		return nil
	})
}
