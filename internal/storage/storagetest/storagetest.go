// Package storagetest holds the behaviour every storage.Store backend must share.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripledger/internal/core"
	"tripledger/internal/storage"
)

// Run exercises a fresh store from newStore against the shared contract.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"users", testUsers},
		{"categories", testCategories},
		{"expenses filter and sort", testExpenseFilter},
		{"expenses owner scoping", testExpenseScoping},
		{"trip line items", testTripLineItems},
		{"trip delete detaches", testTripDeleteDetaches},
		{"transaction rollback", testRollback},
		{"transaction commit", testCommit},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

// Fixture creates a user with one category and returns both.
func Fixture(t *testing.T, s storage.Store, email string) (core.User, core.Category) {
	t.Helper()
	ctx := context.Background()
	u := core.User{Email: email, Name: "Test", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, &u))
	c := core.Category{OwnerID: u.ID, Name: "Food", Icon: "🍔", Color: "#FF6384"}
	require.NoError(t, s.CreateCategory(ctx, &c))
	return u, c
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := core.User{Email: "a@example.com", Name: "A", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(ctx, &u))
	require.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	dup := core.User{Email: "a@example.com", PasswordHash: "hash"}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), core.ErrConflict)

	byEmail, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	u.Name = "Renamed"
	u.Avatar = "avatar.png"
	require.NoError(t, s.UpdateUser(ctx, u))
	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", byID.Name)
	assert.Equal(t, "avatar.png", byID.Avatar)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testCategories(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, food := Fixture(t, s, "c@example.com")
	other, _ := Fixture(t, s, "other@example.com")

	travel := core.Category{OwnerID: u.ID, Name: "Travel"}
	require.NoError(t, s.CreateCategory(ctx, &travel))
	bills := core.Category{OwnerID: u.ID, Name: "Bills"}
	require.NoError(t, s.CreateCategory(ctx, &bills))

	list, err := s.ListCategories(ctx, u.ID)
	require.NoError(t, err)
	names := []string{}
	for _, c := range list {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Bills", "Food", "Travel"}, names)

	_, err = s.GetCategory(ctx, other.ID, food.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "foreign category looks absent")

	food.Name = "Food & Drinks"
	require.NoError(t, s.UpdateCategory(ctx, food))
	got, err := s.GetCategory(ctx, u.ID, food.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food & Drinks", got.Name)

	foreign := food
	foreign.OwnerID = other.ID
	assert.ErrorIs(t, s.UpdateCategory(ctx, foreign), core.ErrNotFound)

	e := core.Expense{OwnerID: u.ID, Amount: dec("1"), Date: core.NewDate(2024, 1, 1), CategoryID: food.ID}
	require.NoError(t, s.CreateExpense(ctx, &e))
	assert.ErrorIs(t, s.DeleteCategory(ctx, u.ID, food.ID), core.ErrConflict)

	require.NoError(t, s.DeleteCategory(ctx, u.ID, bills.ID))
	assert.ErrorIs(t, s.DeleteCategory(ctx, u.ID, bills.ID), core.ErrNotFound)
}

func testExpenseFilter(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, food := Fixture(t, s, "f@example.com")
	transport := core.Category{OwnerID: u.ID, Name: "Transport"}
	require.NoError(t, s.CreateCategory(ctx, &transport))

	seed := []core.Expense{
		{Amount: dec("9.5"), Date: core.NewDate(2024, 1, 1), CategoryID: food.ID, Description: "a"},
		{Amount: dec("100"), Date: core.NewDate(2024, 1, 2), CategoryID: transport.ID, Description: "b"},
		{Amount: dec("20.25"), Date: core.NewDate(2024, 1, 3), CategoryID: food.ID, Description: "c"},
	}
	for i := range seed {
		seed[i].OwnerID = u.ID
		require.NoError(t, s.CreateExpense(ctx, &seed[i]))
	}

	all, err := s.ListExpenses(ctx, storage.ExpenseFilter{OwnerID: u.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, descriptions(all), "default is newest date first")
	assert.Equal(t, "Food", all[0].Category.Name, "category resolved on read")

	byAmount, err := s.ListExpenses(ctx, storage.ExpenseFilter{OwnerID: u.ID, SortBy: storage.SortByAmount, SortOrder: storage.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, descriptions(byAmount), "amounts compare numerically")

	ranged, err := s.ListExpenses(ctx, storage.ExpenseFilter{OwnerID: u.ID, From: core.NewDate(2024, 1, 2), To: core.NewDate(2024, 1, 3)})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, descriptions(ranged), "both bounds inclusive")

	fromOnly, err := s.ListExpenses(ctx, storage.ExpenseFilter{OwnerID: u.ID, From: core.NewDate(2024, 1, 3)})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, descriptions(fromOnly))

	byCat, err := s.ListExpenses(ctx, storage.ExpenseFilter{OwnerID: u.ID, CategoryID: transport.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, descriptions(byCat))

	_, err = s.ListExpenses(ctx, storage.ExpenseFilter{OwnerID: u.ID, SortBy: "bogus"})
	assert.ErrorIs(t, err, core.ErrValidation)

	got, err := s.GetExpense(ctx, u.ID, seed[2].ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("20.25")))
	assert.Equal(t, "2024-01-03", got.Date.String())
}

func testExpenseScoping(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, food := Fixture(t, s, "s@example.com")
	other, _ := Fixture(t, s, "s2@example.com")

	e := core.Expense{OwnerID: u.ID, Amount: dec("5"), Date: core.NewDate(2024, 2, 1), CategoryID: food.ID}
	require.NoError(t, s.CreateExpense(ctx, &e))

	_, err := s.GetExpense(ctx, other.ID, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteExpense(ctx, other.ID, e.ID), core.ErrNotFound)

	hijack := e
	hijack.OwnerID = other.ID
	hijack.Amount = dec("0")
	assert.ErrorIs(t, s.UpdateExpense(ctx, hijack), core.ErrNotFound)

	theirs, err := s.ListExpenses(ctx, storage.ExpenseFilter{OwnerID: other.ID})
	require.NoError(t, err)
	assert.Empty(t, theirs)

	e.Amount = dec("6")
	e.Description = "lunch"
	require.NoError(t, s.UpdateExpense(ctx, e))
	got, err := s.GetExpense(ctx, u.ID, e.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("6")))
	assert.Equal(t, "lunch", got.Description)

	require.NoError(t, s.DeleteExpense(ctx, u.ID, e.ID))
	_, err = s.GetExpense(ctx, u.ID, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testTripLineItems(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, food := Fixture(t, s, "t@example.com")
	other, otherFood := Fixture(t, s, "t2@example.com")

	trip := core.Trip{OwnerID: u.ID, Name: "Lisbon", StartDate: core.NewDate(2024, 5, 1)}
	require.NoError(t, s.CreateTrip(ctx, &trip))

	var ids []string
	for _, amount := range []string{"10", "20"} {
		e := core.Expense{OwnerID: u.ID, Amount: dec(amount), Date: core.NewDate(2024, 5, 2), CategoryID: food.ID, TripID: trip.ID}
		require.NoError(t, s.CreateExpense(ctx, &e))
		ids = append(ids, e.ID)
	}
	loose := core.Expense{OwnerID: u.ID, Amount: dec("1"), Date: core.NewDate(2024, 5, 2), CategoryID: food.ID}
	require.NoError(t, s.CreateExpense(ctx, &loose))
	foreign := core.Expense{OwnerID: other.ID, Amount: dec("1"), Date: core.NewDate(2024, 5, 2), CategoryID: otherFood.ID}
	require.NoError(t, s.CreateExpense(ctx, &foreign))

	got, err := s.ListTripExpenseIDs(ctx, u.ID, trip.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, got)

	// Rows outside the trip are never touched by scoped writes.
	upd := core.LineItemFields{Amount: decimal.NewNullDecimal(dec("99")), Date: core.NewDate(2024, 5, 3), CategoryID: food.ID, Description: "dinner"}
	assert.ErrorIs(t, s.UpdateTripExpense(ctx, u.ID, trip.ID, loose.ID, upd), core.ErrNotFound)
	assert.ErrorIs(t, s.UpdateTripExpense(ctx, other.ID, trip.ID, ids[0], upd), core.ErrNotFound)
	require.NoError(t, s.UpdateTripExpense(ctx, u.ID, trip.ID, ids[0], upd))

	updated, err := s.GetExpense(ctx, u.ID, ids[0])
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(dec("99")))
	assert.Equal(t, "dinner", updated.Description)
	assert.Equal(t, trip.ID, updated.TripID)

	n, err := s.DeleteTripExpenses(ctx, u.ID, trip.ID, []string{ids[1], loose.ID, foreign.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.GetExpense(ctx, u.ID, loose.ID)
	assert.NoError(t, err, "expense outside the trip survives")
	_, err = s.GetExpense(ctx, other.ID, foreign.ID)
	assert.NoError(t, err, "foreign expense survives")

	n, err = s.DeleteTripExpenses(ctx, u.ID, trip.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testTripDeleteDetaches(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, food := Fixture(t, s, "d@example.com")
	other, _ := Fixture(t, s, "d2@example.com")

	first := core.Trip{OwnerID: u.ID, Name: "First", StartDate: core.NewDate(2024, 1, 1)}
	require.NoError(t, s.CreateTrip(ctx, &first))
	second := core.Trip{OwnerID: u.ID, Name: "Second", Description: "later", StartDate: core.NewDate(2024, 2, 1), EndDate: core.NewNullDate(core.NewDate(2024, 2, 3))}
	require.NoError(t, s.CreateTrip(ctx, &second))

	trips, err := s.ListTrips(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, second.ID, trips[0].ID, "newest first")
	assert.Equal(t, "2024-02-03", trips[0].EndDate.Date.String())

	e := core.Expense{OwnerID: u.ID, Amount: dec("3"), Date: core.NewDate(2024, 2, 2), CategoryID: food.ID, TripID: second.ID}
	require.NoError(t, s.CreateExpense(ctx, &e))

	assert.ErrorIs(t, s.DeleteTrip(ctx, other.ID, second.ID), core.ErrNotFound)
	require.NoError(t, s.DeleteTrip(ctx, u.ID, second.ID))

	_, err = s.GetTrip(ctx, u.ID, second.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	kept, err := s.GetExpense(ctx, u.ID, e.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.TripID)

	first.Name = "First, renamed"
	first.EndDate = core.NewNullDate(core.NewDate(2023, 12, 31))
	require.NoError(t, s.UpdateTrip(ctx, first))
	got, err := s.GetTrip(ctx, u.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First, renamed", got.Name)
	assert.Equal(t, "2023-12-31", got.EndDate.Date.String())
	assert.Nil(t, got.Expenses)
}

func testRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, food := Fixture(t, s, "r@example.com")
	trip := core.Trip{OwnerID: u.ID, Name: "Rome", StartDate: core.NewDate(2024, 3, 1)}
	require.NoError(t, s.CreateTrip(ctx, &trip))
	e := core.Expense{OwnerID: u.ID, Amount: dec("10"), Date: core.NewDate(2024, 3, 1), CategoryID: food.ID, TripID: trip.ID}
	require.NoError(t, s.CreateExpense(ctx, &e))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx storage.Store) error {
		if _, err := tx.DeleteTripExpenses(ctx, u.ID, trip.ID, []string{e.ID}); err != nil {
			return err
		}
		created := core.Expense{OwnerID: u.ID, Amount: dec("1"), Date: core.NewDate(2024, 3, 2), CategoryID: food.ID, TripID: trip.ID}
		if err := tx.CreateExpense(ctx, &created); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	ids, err := s.ListTripExpenseIDs(ctx, u.ID, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{e.ID}, ids, "nothing from the failed transaction is visible")
}

func testCommit(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, food := Fixture(t, s, "m@example.com")
	var id string
	require.NoError(t, s.InTx(ctx, func(tx storage.Store) error {
		e := core.Expense{OwnerID: u.ID, Amount: dec("2"), Date: core.NewDate(2024, 4, 1), CategoryID: food.ID}
		if err := tx.CreateExpense(ctx, &e); err != nil {
			return err
		}
		id = e.ID
		_, err := tx.GetExpense(ctx, u.ID, id)
		return err
	}))
	_, err := s.GetExpense(ctx, u.ID, id)
	assert.NoError(t, err)
}

func descriptions(es []core.Expense) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Description)
	}
	return out
}
