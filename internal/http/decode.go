package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"tripledger/internal/core"
	"tripledger/internal/storage"
)

const maxBodyBytes = 1 << 20

var errBadBody = errors.New("invalid request body")

// decodeJSON reads one JSON value from the body into dst. Unknown fields are
// ignored. Validation errors raised by field decoders are passed through.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadBody)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

// amountField accepts a JSON number or a numeric string. Strings follow
// core.ParseAmount, so a decimal comma is allowed there but an exponent is
// not. null, "" and an absent key all leave it unset.
type amountField struct {
	decimal.NullDecimal
}

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		a.NullDecimal = decimal.NullDecimal{}
		return nil
	}

	if len(data) == 0 || data[0] != '"' {
		return a.setNumber(data)
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return core.ErrInvalidAmount
	}
	if strings.TrimSpace(s) == "" {
		a.NullDecimal = decimal.NullDecimal{}
		return nil
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return err
	}
	a.NullDecimal = decimal.NullDecimal{Decimal: d, Valid: true}
	return nil
}

// setNumber takes a bare JSON number, exponent form included.
func (a *amountField) setNumber(data []byte) error {
	if bytes.HasPrefix(data, []byte("-")) {
		return core.ErrInvalidAmount
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return core.ErrInvalidAmount
	}
	a.NullDecimal = decimal.NullDecimal{Decimal: d, Valid: true}
	return nil
}

// optionalDate tells an absent key apart from an explicit null.
type optionalDate struct {
	Set   bool
	Value core.NullDate
}

func (o *optionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	return o.Value.UnmarshalJSON(data)
}

// expenseFilter reads the list query parameters. Blank values are ignored.
func expenseFilter(ownerID string, q url.Values) (storage.ExpenseFilter, error) {
	f := storage.ExpenseFilter{
		OwnerID:    ownerID,
		CategoryID: strings.TrimSpace(q.Get("categoryId")),
		TripID:     strings.TrimSpace(q.Get("tripId")),
		SortBy:     strings.TrimSpace(q.Get("sortBy")),
		SortOrder:  strings.TrimSpace(q.Get("sortOrder")),
	}
	var err error
	if f.From, err = queryDate(q, "startDate"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(q, "endDate"); err != nil {
		return f, err
	}
	return f, nil
}

func queryDate(q url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.NewValidationError(key, "must be YYYY-MM-DD or RFC 3339")
	}
	return d, nil
}
