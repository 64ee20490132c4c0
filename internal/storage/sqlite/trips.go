package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tripledger/internal/core"
	"tripledger/internal/storage"
)

const tripColumns = `id, user_id, name, COALESCE(description, ''), start_date, end_date, created_at, updated_at`

func scanTrip(s rowScanner) (core.Trip, error) {
	var (
		t                    core.Trip
		start                string
		end                  sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Description, &start, &end, &createdAt, &updatedAt); err != nil {
		return core.Trip{}, err
	}
	var err error
	if t.StartDate, err = core.ParseDate(start); err != nil {
		return core.Trip{}, fmt.Errorf("parse start_date %q: %w", start, err)
	}
	if end.Valid && end.String != "" {
		d, err := core.ParseDate(end.String)
		if err != nil {
			return core.Trip{}, fmt.Errorf("parse end_date %q: %w", end.String, err)
		}
		t.EndDate = core.NewNullDate(d)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Trip{}, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Trip{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return t, nil
}

func (r *Repository) CreateTrip(ctx context.Context, t *core.Trip) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO trips (id, user_id, name, description, start_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Name, nullString(t.Description), t.StartDate.String(), nullDate(t.EndDate),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("trip owner %s: %w", t.OwnerID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

func (r *Repository) GetTrip(ctx context.Context, ownerID, id string) (core.Trip, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = ? AND user_id = ?`, id, ownerID)
	t, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Trip{}, core.ErrNotFound
	}
	if err != nil {
		return core.Trip{}, fmt.Errorf("query trip: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTrips(ctx context.Context, ownerID string) ([]core.Trip, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	out := []core.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateTrip(ctx context.Context, t core.Trip) error {
	t.UpdatedAt = now()
	res, err := r.q.ExecContext(ctx,
		`UPDATE trips SET name = ?, description = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		t.Name, nullString(t.Description), t.StartDate.String(), nullDate(t.EndDate), formatTime(t.UpdatedAt),
		t.ID, t.OwnerID)
	if err != nil {
		return fmt.Errorf("update trip: %w", err)
	}
	return expectAffected(res)
}

func (r *Repository) DeleteTrip(ctx context.Context, ownerID, id string) error {
	return r.InTx(ctx, func(tx storage.Store) error {
		txRepo := tx.(*Repository)
		if _, err := txRepo.q.ExecContext(ctx,
			`UPDATE expenses SET trip_id = NULL WHERE trip_id = ? AND user_id = ?`, id, ownerID); err != nil {
			return fmt.Errorf("detach trip expenses: %w", err)
		}
		res, err := txRepo.q.ExecContext(ctx, `DELETE FROM trips WHERE id = ? AND user_id = ?`, id, ownerID)
		if err != nil {
			return fmt.Errorf("delete trip: %w", err)
		}
		return expectAffected(res)
	})
}
