package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripledger/internal/amqp"
	"tripledger/internal/cache"
	"tripledger/internal/core"
	"tripledger/internal/metrics"
	"tripledger/internal/storage"
	"tripledger/internal/storage/memory"
	"tripledger/internal/storage/sqlite"
	"tripledger/internal/storage/storagetest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev amqp.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []amqp.EventType
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func (p *recordingPublisher) last() amqp.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

// failingStore fails every CreateExpense issued inside a transaction.
type failingStore struct {
	storage.Store
	inTx bool
	err  error
}

func (f *failingStore) InTx(ctx context.Context, fn func(tx storage.Store) error) error {
	return f.Store.InTx(ctx, func(tx storage.Store) error {
		return fn(&failingStore{Store: tx, inTx: true, err: f.err})
	})
}

func (f *failingStore) CreateExpense(ctx context.Context, e *core.Expense) error {
	if f.inTx {
		return f.err
	}
	return f.Store.CreateExpense(ctx, e)
}

// gatedStore holds every ListExpenses call until release is closed.
type gatedStore struct {
	storage.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) ListExpenses(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Store.ListExpenses(ctx, f)
}

type env struct {
	store     storage.Store
	pub       *recordingPublisher
	metrics   *metrics.Metrics
	trips     *TripService
	expenses  *ExpenseService
	cats      *CategoryService
	dashboard *DashboardService
	user      core.User
	food      core.Category
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithStore(t, memory.New())
}

type opener func(t *testing.T) storage.Store

var backends = []struct {
	name string
	open opener
}{
	{"memory", func(*testing.T) storage.Store { return memory.New() }},
	{"sqlite", openSQLite},
}

func openSQLite(t *testing.T) storage.Store {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// eachBackend runs fn once per storage engine.
func eachBackend(t *testing.T, fn func(t *testing.T, open opener)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) { fn(t, b.open) })
	}
}

func newEnvWithStore(t *testing.T, store storage.Store) *env {
	t.Helper()
	m := metrics.New()
	pub := &recordingPublisher{}
	dash := NewDashboardService(store, cache.NewLRUCache[core.Summary](16, time.Minute), m)
	n := NewNotifier(pub, dash, m)
	u, food := storagetest.Fixture(t, store, "owner@example.com")
	return &env{
		store:     store,
		pub:       pub,
		metrics:   m,
		trips:     NewTripService(store, n, m, 2),
		expenses:  NewExpenseService(store, n),
		cats:      NewCategoryService(store, n),
		dashboard: dash,
		user:      u,
		food:      food,
	}
}

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func line(a, cat string) core.LineItemFields {
	f := core.LineItemFields{Date: core.NewDate(2024, 1, 2), CategoryID: cat}
	if a != "" {
		f.Amount = amount(a)
	}
	return f
}

func keep(id, a, cat string) core.LineItem {
	return core.ExistingLineItem{ID: id, LineItemFields: line(a, cat)}
}

func add(a, cat string) core.LineItem {
	return core.NewLineItem{LineItemFields: line(a, cat)}
}

// seedTrip creates a trip holding one line item per amount.
func (e *env) seedTrip(t *testing.T, name string, amounts ...string) core.Trip {
	t.Helper()
	var items []core.LineItem
	for _, a := range amounts {
		items = append(items, add(a, e.food.ID))
	}
	trip, err := e.trips.Create(context.Background(), e.user.ID, TripInput{Name: name, StartDate: core.NewDate(2024, 1, 1)}, items)
	require.NoError(t, err)
	require.Len(t, trip.Expenses, len(amounts))
	return trip
}

func ids(t core.Trip) []string {
	var out []string
	for _, e := range t.Expenses {
		out = append(out, e.ID)
	}
	return out
}

func findAmount(t core.Trip, id string) decimal.Decimal {
	for _, e := range t.Expenses {
		if e.ID == id {
			return e.Amount
		}
	}
	return decimal.NewFromInt(-1)
}

func TestReconcileScenario(t *testing.T) {
	eachBackend(t, func(t *testing.T, open opener) {
		e := newEnvWithStore(t, open(t))
		ctx := context.Background()
		trip := e.seedTrip(t, "Paris", "100", "50")
		e1 := trip.Expenses[0].ID
		if !trip.Expenses[0].Amount.Equal(decimal.NewFromInt(100)) {
			e1 = trip.Expenses[1].ID
		}

		got, err := e.trips.Reconcile(ctx, e.user.ID, trip.ID, []core.LineItem{
			keep(e1, "200", e.food.ID),
			add("30", e.food.ID),
		})
		require.NoError(t, err)

		require.Len(t, got.Expenses, 2)
		assert.Contains(t, ids(got), e1)
		assert.True(t, findAmount(got, e1).Equal(decimal.NewFromInt(200)))
		assert.True(t, got.Total().Equal(decimal.NewFromInt(230)))
		for _, ex := range got.Expenses {
			assert.Equal(t, "Food", ex.Category.Name, "category detail loaded")
			assert.Equal(t, trip.ID, ex.TripID)
		}

		ev := e.pub.last()
		assert.Equal(t, amqp.TripReconciled, ev.Type)
		assert.Equal(t, 1, ev.Created)
		assert.Equal(t, 1, ev.Updated)
		assert.Equal(t, 1, ev.Deleted)
	})
}

func TestReconcileEmptyDeletesAll(t *testing.T) {
	e := newEnv(t)
	trip := e.seedTrip(t, "Rome", "1", "2", "3")

	for name, items := range map[string][]core.LineItem{
		"nil":             nil,
		"empty":           {},
		"only incomplete": {add("", e.food.ID), keep(trip.Expenses[0].ID, "5", "")},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := e.trips.Reconcile(context.Background(), e.user.ID, trip.ID, items)
			require.NoError(t, err)
			assert.Empty(t, got.Expenses)
			assert.NotNil(t, got.Expenses)
		})
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	eachBackend(t, func(t *testing.T, open opener) {
		e := newEnvWithStore(t, open(t))
		ctx := context.Background()
		trip := e.seedTrip(t, "Nice", "10", "20")

		var items []core.LineItem
		for _, ex := range trip.Expenses {
			items = append(items, keep(ex.ID, ex.Amount.String(), ex.CategoryID))
		}

		first, err := e.trips.Reconcile(ctx, e.user.ID, trip.ID, items)
		require.NoError(t, err)
		second, err := e.trips.Reconcile(ctx, e.user.ID, trip.ID, items)
		require.NoError(t, err)

		assert.ElementsMatch(t, ids(trip), ids(first))
		assert.ElementsMatch(t, ids(first), ids(second))
		ev := e.pub.last()
		assert.Zero(t, ev.Created)
		assert.Zero(t, ev.Deleted)
	})
}

func TestReconcileForeignIdentifierBecomesCreate(t *testing.T) {
	eachBackend(t, func(t *testing.T, open opener) {
		e := newEnvWithStore(t, open(t))
		ctx := context.Background()
		mine := e.seedTrip(t, "Mine", "10")
		other := e.seedTrip(t, "Other", "77")
		otherID := other.Expenses[0].ID

		got, err := e.trips.Reconcile(ctx, e.user.ID, mine.ID, []core.LineItem{keep(otherID, "5", e.food.ID)})
		require.NoError(t, err)

		require.Len(t, got.Expenses, 1)
		assert.NotEqual(t, otherID, got.Expenses[0].ID, "a new record is created")
		assert.True(t, got.Expenses[0].Amount.Equal(decimal.NewFromInt(5)))

		untouched, err := e.trips.Get(ctx, e.user.ID, other.ID)
		require.NoError(t, err)
		require.Len(t, untouched.Expenses, 1)
		assert.Equal(t, otherID, untouched.Expenses[0].ID)
		assert.True(t, untouched.Expenses[0].Amount.Equal(decimal.NewFromInt(77)))
	})
}

func TestReconcileOtherUsersTripIsNotFound(t *testing.T) {
	eachBackend(t, func(t *testing.T, open opener) {
		e := newEnvWithStore(t, open(t))
		ctx := context.Background()
		trip := e.seedTrip(t, "Private", "10")
		intruder, theirFood := storagetest.Fixture(t, e.store, "intruder@example.com")

		_, err := e.trips.Reconcile(ctx, intruder.ID, trip.ID, []core.LineItem{})
		assert.ErrorIs(t, err, core.ErrNotFound)

		// Using someone else's category on my own trip is refused too.
		_, err = e.trips.Reconcile(ctx, e.user.ID, trip.ID, []core.LineItem{add("1", theirFood.ID)})
		assert.ErrorIs(t, err, core.ErrNotFound)

		got, err := e.trips.Get(ctx, e.user.ID, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, ids(trip), ids(got), "nothing changed")
	})
}

func TestReconcileValidationFailsBeforeMutation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	trip := e.seedTrip(t, "Bern", "10", "20")

	noDate := line("5", e.food.ID)
	noDate.Date = core.Date{}
	for name, items := range map[string][]core.LineItem{
		"negative": {add("-1", e.food.ID)},
		"no date":  {core.NewLineItem{LineItemFields: noDate}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := e.trips.Reconcile(ctx, e.user.ID, trip.ID, items)
			assert.ErrorIs(t, err, core.ErrValidation)

			got, err := e.trips.Get(ctx, e.user.ID, trip.ID)
			require.NoError(t, err)
			assert.ElementsMatch(t, ids(trip), ids(got))
		})
	}
}

func TestReconcileRollsBackOnMidwayFailure(t *testing.T) {
	eachBackend(t, func(t *testing.T, open opener) {
		store := &failingStore{Store: open(t), err: errors.New("disk full")}
		e := newEnvWithStore(t, store)
		ctx := context.Background()

		tripInput := TripInput{Name: "Oslo", StartDate: core.NewDate(2024, 1, 1)}
		trip, err := e.trips.Create(ctx, e.user.ID, tripInput, nil)
		require.NoError(t, err)
		seeded := core.Expense{OwnerID: e.user.ID, Amount: decimal.NewFromInt(9), Date: core.NewDate(2024, 1, 1), CategoryID: e.food.ID, TripID: trip.ID}
		require.NoError(t, store.CreateExpense(ctx, &seeded))

		before := len(e.pub.types())
		_, err = e.trips.Reconcile(ctx, e.user.ID, trip.ID, []core.LineItem{add("1", e.food.ID)})
		require.ErrorContains(t, err, "disk full")

		got, err := e.trips.Get(ctx, e.user.ID, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{seeded.ID}, ids(got), "the delete was rolled back")
		assert.Len(t, e.pub.types(), before, "no event for a failed reconciliation")
	})
}

func TestUpdatePatchOnlyKeepsLineItems(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	trip := e.seedTrip(t, "Lyon", "10")

	name := "Lyon & Annecy"
	end := core.NewNullDate(core.NewDate(2023, 12, 1))
	got, err := e.trips.Update(ctx, e.user.ID, trip.ID, core.TripPatch{Name: &name, EndDate: &end}, nil)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, "2023-12-01", got.EndDate.Date.String(), "end before start is accepted")
	assert.Equal(t, ids(trip), ids(got))
	assert.Equal(t, []amqp.EventType{amqp.TripCreated, amqp.TripReconciled, amqp.TripUpdated}, e.pub.types())

	blank := " "
	_, err = e.trips.Update(ctx, e.user.ID, trip.ID, core.TripPatch{Name: &blank}, nil)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestUpdatePatchAndItemsTogether(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	trip := e.seedTrip(t, "Porto", "10")

	desc := "weekend"
	got, err := e.trips.Update(ctx, e.user.ID, trip.ID, core.TripPatch{Description: &desc}, []core.LineItem{add("3", e.food.ID), add("4", e.food.ID)})
	require.NoError(t, err)
	assert.Equal(t, "weekend", got.Description)
	assert.Len(t, got.Expenses, 2)
	assert.NotContains(t, ids(got), trip.Expenses[0].ID)
}

func TestCreateTripValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.trips.Create(ctx, e.user.ID, TripInput{Name: "  ", StartDate: core.NewDate(2024, 1, 1)}, nil)
	assert.ErrorIs(t, err, core.ErrEmptyTripName)
	_, err = e.trips.Create(ctx, e.user.ID, TripInput{Name: "X"}, nil)
	assert.ErrorIs(t, err, core.ErrMissingStartDate)

	trip, err := e.trips.Create(ctx, e.user.ID, TripInput{Name: "X", StartDate: core.NewDate(2024, 1, 1)},
		[]core.LineItem{add("5", e.food.ID), add("", e.food.ID)})
	require.NoError(t, err)
	assert.Len(t, trip.Expenses, 1, "incomplete initial item skipped")
}

func TestDeleteTripDetachesExpenses(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	trip := e.seedTrip(t, "Gone", "10", "20")

	require.NoError(t, e.trips.Delete(ctx, e.user.ID, trip.ID))
	_, err := e.trips.Get(ctx, e.user.ID, trip.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	for _, id := range ids(trip) {
		ex, err := e.expenses.Get(ctx, e.user.ID, id)
		require.NoError(t, err)
		assert.Empty(t, ex.TripID)
	}
	assert.Equal(t, amqp.TripDeleted, e.pub.last().Type)
	assert.ErrorIs(t, e.trips.Delete(ctx, e.user.ID, trip.ID), core.ErrNotFound)
}

func TestListTripsNewestFirstWithTotals(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedTrip(t, "Old", "1", "2")
	e.seedTrip(t, "New", "5")

	trips, err := e.trips.List(ctx, e.user.ID)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "New", trips[0].Name)
	assert.True(t, trips[0].Total().Equal(decimal.NewFromInt(5)))
	assert.True(t, trips[1].Total().Equal(decimal.NewFromInt(3)))
}

func TestConcurrentReconcilesOfOneTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, open opener) {
		e := newEnvWithStore(t, open(t))
		ctx := context.Background()
		trip := e.seedTrip(t, "Busy", "1")

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := e.trips.Reconcile(ctx, e.user.ID, trip.ID, []core.LineItem{add("1", e.food.ID), add("2", e.food.ID)})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := e.trips.Get(ctx, e.user.ID, trip.ID)
		require.NoError(t, err)
		assert.Len(t, got.Expenses, 2, "each reconciliation replaced the previous one entirely")
		assert.Zero(t, e.trips.locks.size())
	})
}

func TestConcurrentReconcilesOfDifferentTrips(t *testing.T) {
	eachBackend(t, func(t *testing.T, open opener) {
		e := newEnvWithStore(t, open(t))
		ctx := context.Background()
		trips := []core.Trip{e.seedTrip(t, "North", "1"), e.seedTrip(t, "South", "1", "2")}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			trip := trips[i%2]
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := e.trips.Reconcile(ctx, e.user.ID, trip.ID, []core.LineItem{
					keep(trip.Expenses[0].ID, "4", e.food.ID),
					add("2", e.food.ID),
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		for _, trip := range trips {
			got, err := e.trips.Get(ctx, e.user.ID, trip.ID)
			require.NoError(t, err)
			assert.Len(t, got.Expenses, 2)
			assert.Contains(t, ids(got), trip.Expenses[0].ID)
			assert.True(t, got.Total().Equal(decimal.NewFromInt(6)))
		}
	})
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	e := newEnv(t)
	e.pub.err = errors.New("broker down")

	_, err := e.trips.Create(context.Background(), e.user.ID, TripInput{Name: "Still", StartDate: core.NewDate(2024, 1, 1)}, nil)
	assert.NoError(t, err)
}

func TestExpenseServiceScoping(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	other, theirFood := storagetest.Fixture(t, e.store, "other@example.com")
	theirTrip, err := e.trips.Create(ctx, other.ID, TripInput{Name: "Theirs", StartDate: core.NewDate(2024, 1, 1)}, nil)
	require.NoError(t, err)

	in := ExpenseInput{Amount: decimal.RequireFromString("12.50"), Date: core.NewDate(2024, 2, 1), CategoryID: e.food.ID, Description: "pizza"}
	created, err := e.expenses.Create(ctx, e.user.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Food", created.Category.Name)
	assert.Equal(t, amqp.ExpenseCreated, e.pub.last().Type)
	assert.Equal(t, "12.50", e.pub.last().Amount)

	foreignCat := in
	foreignCat.CategoryID = theirFood.ID
	_, err = e.expenses.Create(ctx, e.user.ID, foreignCat)
	assert.ErrorIs(t, err, core.ErrNotFound)

	foreignTrip := in
	foreignTrip.TripID = theirTrip.ID
	_, err = e.expenses.Create(ctx, e.user.ID, foreignTrip)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = e.expenses.Update(ctx, other.ID, created.ID, ExpenseInput{Amount: decimal.Zero, Date: core.NewDate(2024, 2, 1), CategoryID: theirFood.ID})
	assert.ErrorIs(t, err, core.ErrNotFound)

	in.Amount = decimal.NewFromInt(13)
	updated, err := e.expenses.Update(ctx, e.user.ID, created.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(13)))

	bad := in
	bad.CategoryID = ""
	_, err = e.expenses.Create(ctx, e.user.ID, bad)
	assert.ErrorIs(t, err, core.ErrMissingCategory)

	assert.ErrorIs(t, e.expenses.Delete(ctx, other.ID, created.ID), core.ErrNotFound)
	require.NoError(t, e.expenses.Delete(ctx, e.user.ID, created.ID))
	assert.Equal(t, amqp.ExpenseDeleted, e.pub.last().Type)
}

func TestExpenseListRejectsInvertedRange(t *testing.T) {
	e := newEnv(t)
	_, err := e.expenses.List(context.Background(), storage.ExpenseFilter{
		OwnerID: e.user.ID,
		From:    core.NewDate(2024, 2, 1),
		To:      core.NewDate(2024, 1, 1),
	})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCategoryService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.cats.Create(ctx, e.user.ID, "  ", "", "")
	assert.ErrorIs(t, err, core.ErrEmptyCategoryName)

	travel, err := e.cats.Create(ctx, e.user.ID, " Travel ", "✈️", "#000000")
	require.NoError(t, err)
	assert.Equal(t, "Travel", travel.Name)

	color := "#FFFFFF"
	got, err := e.cats.Update(ctx, e.user.ID, travel.ID, CategoryPatch{Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "Travel", got.Name)
	assert.Equal(t, "#FFFFFF", got.Color)

	list, err := e.cats.List(ctx, e.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = e.expenses.Create(ctx, e.user.ID, ExpenseInput{Amount: decimal.NewFromInt(1), Date: core.NewDate(2024, 1, 1), CategoryID: travel.ID})
	require.NoError(t, err)
	assert.ErrorIs(t, e.cats.Delete(ctx, e.user.ID, travel.ID), core.ErrConflict)
}

func TestDashboardSummaryAndInvalidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	transport, err := e.cats.Create(ctx, e.user.ID, "Transport", "🚗", "#36A2EB")
	require.NoError(t, err)

	for _, in := range []ExpenseInput{
		{Amount: decimal.NewFromInt(100), Date: core.NewDate(2024, 1, 1), CategoryID: e.food.ID},
		{Amount: decimal.NewFromInt(50), Date: core.NewDate(2024, 1, 1), CategoryID: e.food.ID},
		{Amount: decimal.NewFromInt(75), Date: core.NewDate(2024, 1, 2), CategoryID: transport.ID},
	} {
		_, err := e.expenses.Create(ctx, e.user.ID, in)
		require.NoError(t, err)
	}

	q := SummaryQuery{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 1, 31)}
	sum, err := e.dashboard.Summary(ctx, e.user.ID, q)
	require.NoError(t, err)
	assert.True(t, sum.TotalAmount.Equal(decimal.NewFromInt(225)))
	assert.Equal(t, 3, sum.TransactionCount)
	require.Len(t, sum.ByCategory, 2)
	assert.Equal(t, "Food", sum.ByCategory[0].Name)
	assert.True(t, sum.ByCategory[0].Total.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 2, sum.ByCategory[0].Count)
	require.Len(t, sum.ByDate, 2)
	assert.Equal(t, "2024-01-01", sum.ByDate[0].Date.String())

	cached, err := e.dashboard.Summary(ctx, e.user.ID, q)
	require.NoError(t, err)
	assert.Equal(t, sum.TransactionCount, cached.TransactionCount)

	_, err = e.expenses.Create(ctx, e.user.ID, ExpenseInput{Amount: decimal.NewFromInt(5), Date: core.NewDate(2024, 1, 3), CategoryID: e.food.ID})
	require.NoError(t, err)
	fresh, err := e.dashboard.Summary(ctx, e.user.ID, q)
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.TransactionCount, "mutation invalidated the cached summary")

	onlyTransport, err := e.dashboard.Summary(ctx, e.user.ID, SummaryQuery{CategoryID: transport.ID})
	require.NoError(t, err)
	assert.True(t, onlyTransport.TotalAmount.Equal(decimal.NewFromInt(75)))

	_, err = e.dashboard.Summary(ctx, e.user.ID, SummaryQuery{From: core.NewDate(2024, 2, 1), To: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestDashboardSharedFillSurvivesLeaderCancel(t *testing.T) {
	gated := &gatedStore{Store: memory.New(), entered: make(chan struct{}), release: make(chan struct{})}
	e := newEnvWithStore(t, gated)
	ctx := context.Background()
	_, err := e.expenses.Create(ctx, e.user.ID, ExpenseInput{Amount: decimal.NewFromInt(8), Date: core.NewDate(2024, 1, 1), CategoryID: e.food.ID})
	require.NoError(t, err)

	leaderCtx, cancel := context.WithCancel(ctx)
	leader := make(chan error, 1)
	go func() {
		_, err := e.dashboard.Summary(leaderCtx, e.user.ID, SummaryQuery{})
		leader <- err
	}()
	<-gated.entered

	var sum core.Summary
	waiter := make(chan error, 1)
	go func() {
		var err error
		sum, err = e.dashboard.Summary(ctx, e.user.ID, SummaryQuery{})
		waiter <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	close(gated.release)
	require.NoError(t, <-waiter, "a cancelled first caller does not fail the others")
	assert.Equal(t, 1, sum.TransactionCount)
	assert.NoError(t, <-leader)
}

func TestDashboardEmpty(t *testing.T) {
	e := newEnv(t)
	sum, err := e.dashboard.Summary(context.Background(), e.user.ID, SummaryQuery{})
	require.NoError(t, err)
	assert.True(t, sum.TotalAmount.IsZero())
	assert.Zero(t, sum.TransactionCount)
	assert.NotNil(t, sum.ByCategory)
	assert.NotNil(t, sum.ByDate)
}

func TestKeyedMutexReleasesKeys(t *testing.T) {
	var k keyedMutex
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())
	unlockA()
	unlockB()
	assert.Zero(t, k.size())
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.Committed(context.Background(), "owner", amqp.NewChangeEvent(amqp.TripCreated, "owner", "t"))
}
