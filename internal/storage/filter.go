package storage

import (
	"fmt"
	"strings"

	"tripledger/internal/core"
)

const (
	SortByDate      = "date"
	SortByAmount    = "amount"
	SortByCreatedAt = "createdAt"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ExpenseFilter selects an owner's expenses. Zero values match everything.
type ExpenseFilter struct {
	OwnerID    string
	From       core.Date // Inclusive
	To         core.Date // Inclusive
	CategoryID string
	TripID     string
	SortBy     string
	SortOrder  string
}

// Normalize fills sort defaults and rejects unknown sort options.
func (f ExpenseFilter) Normalize() (ExpenseFilter, error) {
	switch f.SortBy {
	case "":
		f.SortBy = SortByDate
	case SortByDate, SortByAmount, SortByCreatedAt:
	default:
		return f, core.NewValidationError("sortBy", fmt.Sprintf("must be one of %s, %s, %s", SortByDate, SortByAmount, SortByCreatedAt))
	}

	switch strings.ToLower(f.SortOrder) {
	case "":
		f.SortOrder = SortDesc
	case SortAsc, SortDesc:
		f.SortOrder = strings.ToLower(f.SortOrder)
	default:
		return f, core.NewValidationError("sortOrder", "must be asc or desc")
	}
	return f, nil
}

// Matches reports whether e passes the filter's owner, range, category and trip conditions.
func (f ExpenseFilter) Matches(e core.Expense) bool {
	if e.OwnerID != f.OwnerID {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if f.CategoryID != "" && e.CategoryID != f.CategoryID {
		return false
	}
	if f.TripID != "" && e.TripID != f.TripID {
		return false
	}
	return true
}
