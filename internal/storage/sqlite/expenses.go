package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tripledger/internal/core"
	"tripledger/internal/storage"
)

const expenseSelect = `SELECT e.id, e.user_id, e.amount, COALESCE(e.description, ''), e.date, e.category_id,
	c.name, c.icon, c.color, COALESCE(e.receipt_ref, ''), COALESCE(e.trip_id, ''), e.created_at, e.updated_at
FROM expenses e
JOIN categories c ON c.id = e.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e                    core.Expense
		amount, date         string
		createdAt, updatedAt string
	)
	err := s.Scan(&e.ID, &e.OwnerID, &amount, &e.Description, &date, &e.CategoryID,
		&e.Category.Name, &e.Category.Icon, &e.Category.Color, &e.ReceiptRef, &e.TripID, &createdAt, &updatedAt)
	if err != nil {
		return core.Expense{}, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Expense{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if e.Date, err = core.ParseDate(date); err != nil {
		return core.Expense{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at: %w", err)
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse updated_at: %w", err)
	}
	e.Category.ID = e.CategoryID
	e.Category.OwnerID = e.OwnerID
	return e, nil
}

func (r *Repository) CreateExpense(ctx context.Context, e *core.Expense) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = now()
	e.UpdatedAt = e.CreatedAt

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, amount, description, date, category_id, receipt_ref, trip_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Amount.String(), nullString(e.Description), e.Date.String(), e.CategoryID,
		nullString(e.ReceiptRef), nullString(e.TripID), formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("expense references: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *Repository) GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	row := r.q.QueryRowContext(ctx, expenseSelect+` WHERE e.id = ? AND e.user_id = ?`, id, ownerID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("query expense: %w", err)
	}
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}

	where := []string{"e.user_id = ?"}
	args := []any{f.OwnerID}
	if !f.From.IsZero() {
		where = append(where, "e.date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "e.date <= ?")
		args = append(args, f.To.String())
	}
	if f.CategoryID != "" {
		where = append(where, "e.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.TripID != "" {
		where = append(where, "e.trip_id = ?")
		args = append(args, f.TripID)
	}

	query := expenseSelect + " WHERE " + strings.Join(where, " AND ") + " ORDER BY " + orderBy(f)
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func orderBy(f storage.ExpenseFilter) string {
	dir := "DESC"
	if f.SortOrder == storage.SortAsc {
		dir = "ASC"
	}
	switch f.SortBy {
	case storage.SortByAmount:
		return fmt.Sprintf("CAST(e.amount AS REAL) %s, e.created_at %s, e.rowid %s", dir, dir, dir)
	case storage.SortByCreatedAt:
		return fmt.Sprintf("e.created_at %s, e.rowid %s", dir, dir)
	default:
		return fmt.Sprintf("e.date %s, e.created_at %s, e.rowid %s", dir, dir, dir)
	}
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	e.UpdatedAt = now()
	res, err := r.q.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, description = ?, date = ?, category_id = ?, receipt_ref = ?, trip_id = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		e.Amount.String(), nullString(e.Description), e.Date.String(), e.CategoryID,
		nullString(e.ReceiptRef), nullString(e.TripID), formatTime(e.UpdatedAt), e.ID, e.OwnerID)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("expense references: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return expectAffected(res)
}

func (r *Repository) DeleteExpense(ctx context.Context, ownerID, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectAffected(res)
}

func (r *Repository) ListTripExpenseIDs(ctx context.Context, ownerID, tripID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id FROM expenses WHERE trip_id = ? AND user_id = ? ORDER BY date, created_at, rowid`, tripID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trip expense ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expense id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) UpdateTripExpense(ctx context.Context, ownerID, tripID, id string, f core.LineItemFields) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, description = ?, date = ?, category_id = ?, updated_at = ?
		WHERE id = ? AND trip_id = ? AND user_id = ?`,
		f.Amount.Decimal.String(), nullString(f.Description), f.Date.String(), f.CategoryID,
		formatTime(now()), id, tripID, ownerID)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("line item category: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update trip expense: %w", err)
	}
	return expectAffected(res)
}

func (r *Repository) DeleteTripExpenses(ctx context.Context, ownerID, tripID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{tripID, ownerID}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM expenses WHERE trip_id = ? AND user_id = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete trip expenses: %w", err)
	}
	return res.RowsAffected()
}
