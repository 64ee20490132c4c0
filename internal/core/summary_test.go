package core

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	food      = Category{ID: "c1", Name: "Food", Icon: "🍔", Color: "#FF6384"}
	transport = Category{ID: "c2", Name: "Transport", Icon: "🚗", Color: "#36A2EB"}
)

func exp(amount string, date string, cat Category) Expense {
	return Expense{
		Amount:     decimal.RequireFromString(amount),
		Date:       MustParseDate(date),
		CategoryID: cat.ID,
		Category:   cat,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)

	assert.True(t, s.TotalAmount.IsZero())
	assert.Equal(t, 0, s.TransactionCount)
	assert.NotNil(t, s.ByCategory)
	assert.NotNil(t, s.ByDate)
	assert.Empty(t, s.ByCategory)
	assert.Empty(t, s.ByDate)
}

func TestSummarizeScenario(t *testing.T) {
	s := Summarize([]Expense{
		exp("100", "2024-01-01", food),
		exp("50", "2024-01-01", food),
		exp("75", "2024-01-02", transport),
	})

	assert.True(t, s.TotalAmount.Equal(decimal.NewFromInt(225)), "total = %s", s.TotalAmount)
	assert.Equal(t, 3, s.TransactionCount)

	require.Len(t, s.ByCategory, 2)
	assert.Equal(t, "Food", s.ByCategory[0].Name)
	assert.Equal(t, "🍔", s.ByCategory[0].Icon)
	assert.Equal(t, "#FF6384", s.ByCategory[0].Color)
	assert.True(t, s.ByCategory[0].Total.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 2, s.ByCategory[0].Count)
	assert.Equal(t, "Transport", s.ByCategory[1].Name)
	assert.True(t, s.ByCategory[1].Total.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, 1, s.ByCategory[1].Count)

	require.Len(t, s.ByDate, 2)
	assert.Equal(t, "2024-01-01", s.ByDate[0].Date.String())
	assert.True(t, s.ByDate[0].Total.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "2024-01-02", s.ByDate[1].Date.String())
	assert.True(t, s.ByDate[1].Total.Equal(decimal.NewFromInt(75)))
}

func TestSummarizeCategoryOrderIsFirstOccurrence(t *testing.T) {
	s := Summarize([]Expense{
		exp("1", "2024-03-01", transport),
		exp("2", "2024-03-01", food),
		exp("3", "2024-03-01", transport),
	})

	require.Len(t, s.ByCategory, 2)
	assert.Equal(t, "Transport", s.ByCategory[0].Name)
	assert.Equal(t, "Food", s.ByCategory[1].Name)
}

func TestSummarizeMergesCategoriesSharingAName(t *testing.T) {
	a := Category{ID: "a", Name: "Food", Icon: "A", Color: "#000001"}
	b := Category{ID: "b", Name: "Food", Icon: "B", Color: "#000002"}
	s := Summarize([]Expense{exp("10", "2024-03-01", a), exp("5", "2024-03-02", b)})

	require.Len(t, s.ByCategory, 1)
	assert.Equal(t, "A", s.ByCategory[0].Icon, "display metadata comes from the first record")
	assert.Equal(t, 2, s.ByCategory[0].Count)
	assert.True(t, s.ByCategory[0].Total.Equal(decimal.NewFromInt(15)))
}

func TestSummarizeTotalsAgreeAndDatesSorted(t *testing.T) {
	base := []Expense{
		exp("12.34", "2024-02-29", food),
		exp("0.01", "2023-12-31", transport),
		exp("99.99", "2024-01-15", food),
		exp("5", "2024-01-15", transport),
		exp("0", "2024-07-04", food),
		exp("1000.5", "2022-06-01", transport),
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		in := append([]Expense(nil), base...)
		rng.Shuffle(len(in), func(a, b int) { in[a], in[b] = in[b], in[a] })

		s := Summarize(in)

		catSum := decimal.Zero
		for _, c := range s.ByCategory {
			catSum = catSum.Add(c.Total)
		}
		dateSum := decimal.Zero
		for _, d := range s.ByDate {
			dateSum = dateSum.Add(d.Total)
		}
		assert.True(t, catSum.Equal(s.TotalAmount), "category sum %s != total %s", catSum, s.TotalAmount)
		assert.True(t, dateSum.Equal(s.TotalAmount), "date sum %s != total %s", dateSum, s.TotalAmount)

		require.Len(t, s.ByDate, 5)
		for k := 1; k < len(s.ByDate); k++ {
			assert.False(t, s.ByDate[k].Date.Before(s.ByDate[k-1].Date),
				"byDate not sorted at %d: %s before %s", k, s.ByDate[k].Date, s.ByDate[k-1].Date)
		}
	}
}

func TestSummarizeTruncatesToDay(t *testing.T) {
	e1 := exp("1", "2024-05-01T08:30:00Z", food)
	e2 := exp("2", "2024-05-01T22:10:00Z", food)
	s := Summarize([]Expense{e1, e2})

	require.Len(t, s.ByDate, 1)
	assert.Equal(t, "2024-05-01", s.ByDate[0].Date.String())
}
