package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	// LineItem is one expense entry of a trip-editing proposal: either an
	// ExistingLineItem that claims an identifier or a NewLineItem.
	LineItem interface {
		Fields() LineItemFields
		isLineItem()
	}

	LineItemFields struct {
		Amount      decimal.NullDecimal
		Description string
		Date        Date
		CategoryID  string
		ReceiptRef  string // Only used when the item is created
	}

	// ExistingLineItem claims to edit the persisted expense ID. The claim is
	// only honoured when ID is currently linked to the trip being reconciled.
	ExistingLineItem struct {
		ID string
		LineItemFields
	}

	NewLineItem struct {
		LineItemFields
	}

	// ReconciliationPlan is the create/update/delete set that brings a trip's
	// persisted line items in line with a proposal.
	ReconciliationPlan struct {
		Keep    []string // Existing IDs that survive, in existing order
		Delete  []string // Existing IDs to remove, in existing order
		Updates []ExistingLineItem
		Creates []LineItemFields
		Skipped int // Incomplete entries left out entirely
	}
)

func (f LineItemFields) Fields() LineItemFields { return f }

func (ExistingLineItem) isLineItem() {}
func (NewLineItem) isLineItem()      {}

// Complete reports whether the entry carries both an amount and a category.
// Incomplete entries are treated as not-yet-real data, never as errors.
func (f LineItemFields) Complete() bool {
	return f.Amount.Valid && strings.TrimSpace(f.CategoryID) != ""
}

// Validate checks a complete entry before anything is written.
func (f LineItemFields) Validate() error {
	if f.Amount.Decimal.IsNegative() {
		return ErrInvalidAmount
	}
	if f.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// Expense builds the expense a create would persist for this entry.
func (f LineItemFields) Expense(ownerID, tripID string) Expense {
	return Expense{
		OwnerID:     ownerID,
		Amount:      f.Amount.Decimal,
		Description: f.Description,
		Date:        f.Date,
		CategoryID:  f.CategoryID,
		ReceiptRef:  f.ReceiptRef,
		TripID:      tripID,
	}
}

// ValidateLineItems validates every complete entry, reporting the first failure with its index.
func ValidateLineItems(items []LineItem) error {
	for i, item := range items {
		f := item.Fields()
		if !f.Complete() {
			continue
		}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("line item %d: %w", i, err)
		}
	}
	return nil
}

// PlanReconciliation diffs a proposal against the identifiers currently linked
// to a trip. It performs no I/O.
//
// Identifiers that are not in existingIDs are never updated: the entry is
// created as a new expense instead. When the same existing identifier appears
// more than once the last occurrence wins.
func PlanReconciliation(existingIDs []string, items []LineItem) ReconciliationPlan {
	existing := make(map[string]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = struct{}{}
	}

	var plan ReconciliationPlan
	updateIdx := make(map[string]int)
	for _, item := range items {
		if item == nil || !item.Fields().Complete() {
			plan.Skipped++
			continue
		}
		switch it := item.(type) {
		case ExistingLineItem:
			if _, ok := existing[it.ID]; !ok {
				plan.Creates = append(plan.Creates, it.LineItemFields)
				continue
			}
			if i, dup := updateIdx[it.ID]; dup {
				plan.Updates[i] = it
				continue
			}
			updateIdx[it.ID] = len(plan.Updates)
			plan.Updates = append(plan.Updates, it)
		case NewLineItem:
			plan.Creates = append(plan.Creates, it.LineItemFields)
		}
	}

	seen := make(map[string]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, kept := updateIdx[id]; kept {
			plan.Keep = append(plan.Keep, id)
		} else {
			plan.Delete = append(plan.Delete, id)
		}
	}
	return plan
}

// CategoryIDs returns the distinct categories the plan writes, in first-use order.
func (p ReconciliationPlan) CategoryIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, u := range p.Updates {
		add(u.CategoryID)
	}
	for _, c := range p.Creates {
		add(c.CategoryID)
	}
	return out
}

// IsNoop reports whether applying the plan would change no line items.
func (p ReconciliationPlan) IsNoop() bool {
	return len(p.Delete) == 0 && len(p.Updates) == 0 && len(p.Creates) == 0
}
