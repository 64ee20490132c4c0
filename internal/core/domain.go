package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	User struct {
		ID           string
		Email        string
		Name         string
		PasswordHash string
		Avatar       string // Opaque reference, stored as-is
		CreatedAt    time.Time
	}

	Category struct {
		ID      string
		OwnerID string
		Name    string
		Icon    string // Display glyph
		Color   string // CSS color, e.g. #FF6384
	}

	Expense struct {
		ID          string
		OwnerID     string
		Amount      decimal.Decimal
		Description string
		Date        Date
		CategoryID  string
		Category    Category // Resolved by the store on reads
		ReceiptRef  string
		TripID      string // Empty when not linked to a trip
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Trip struct {
		ID          string
		OwnerID     string
		Name        string
		Description string
		StartDate   Date
		EndDate     NullDate
		Expenses    []Expense // Linked line items, loaded on reads
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// TripPatch carries the scalar trip fields a caller wants to change.
	// Nil fields are left untouched; a non-nil EndDate with Valid=false clears it.
	TripPatch struct {
		Name        *string
		Description *string
		StartDate   *Date
		EndDate     *NullDate
	}
)

// DefaultCategories are seeded for every newly registered user.
var DefaultCategories = []Category{
	{Name: "Food & Drinks", Icon: "🍔", Color: "#FF6384"},
	{Name: "Transportation", Icon: "🚗", Color: "#36A2EB"},
	{Name: "Shopping", Icon: "🛒", Color: "#FFCE56"},
	{Name: "Entertainment", Icon: "🎬", Color: "#4BC0C0"},
	{Name: "Bills & Utilities", Icon: "💡", Color: "#9966FF"},
	{Name: "Health", Icon: "💊", Color: "#FF9F40"},
	{Name: "Other", Icon: "📦", Color: "#C9CBCF"},
}

// Total is the sum of the linked expense amounts. It is never stored.
func (t Trip) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range t.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}

func (t Trip) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyTripName
	}
	if t.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	// End date is accepted as-is, even when it precedes the start date.
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	return nil
}

func (e Expense) Validate() error {
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrMissingCategory
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p TripPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.StartDate == nil && p.EndDate == nil
}

// Apply copies the provided fields onto t and validates the result.
func (p TripPatch) Apply(t *Trip) error {
	if p.Name != nil {
		t.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = *p.EndDate
	}
	return t.Validate()
}
