package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryTotal represents an amount aggregated by category name.
type CategoryTotal struct {
	Name  string
	Icon  string
	Color string
	Total decimal.Decimal
	Count int
}

// DateTotal represents an amount aggregated by calendar day.
type DateTotal struct {
	Date  Date
	Total decimal.Decimal
}

// Summary is the aggregate of an already filtered set of expenses.
type Summary struct {
	TotalAmount      decimal.Decimal
	TransactionCount int
	ByCategory       []CategoryTotal
	ByDate           []DateTotal
}

// Summarize aggregates expenses by category and by day. It does no filtering:
// callers pass the exact set to summarize.
//
// Categories are grouped by name, so two categories sharing a display name are
// merged; icon and color come from the first expense seen in the group, and
// groups keep first-occurrence order. Days are sorted ascending.
func Summarize(expenses []Expense) Summary {
	s := Summary{
		TotalAmount:      decimal.Zero,
		TransactionCount: len(expenses),
		ByCategory:       []CategoryTotal{},
		ByDate:           []DateTotal{},
	}

	catIdx := make(map[string]int)
	dateIdx := make(map[string]int)
	for _, e := range expenses {
		s.TotalAmount = s.TotalAmount.Add(e.Amount)

		name := e.Category.Name
		i, ok := catIdx[name]
		if !ok {
			i = len(s.ByCategory)
			catIdx[name] = i
			s.ByCategory = append(s.ByCategory, CategoryTotal{
				Name:  name,
				Icon:  e.Category.Icon,
				Color: e.Category.Color,
				Total: decimal.Zero,
			})
		}
		s.ByCategory[i].Total = s.ByCategory[i].Total.Add(e.Amount)
		s.ByCategory[i].Count++

		day := DateOf(e.Date.Time)
		j, ok := dateIdx[day.String()]
		if !ok {
			j = len(s.ByDate)
			dateIdx[day.String()] = j
			s.ByDate = append(s.ByDate, DateTotal{Date: day, Total: decimal.Zero})
		}
		s.ByDate[j].Total = s.ByDate[j].Total.Add(e.Amount)
	}

	sort.SliceStable(s.ByDate, func(a, b int) bool {
		return s.ByDate[a].Date.Before(s.ByDate[b].Date)
	})
	return s
}
