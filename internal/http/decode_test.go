package http

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripledger/internal/core"
)

func TestAmountFieldUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string // empty means unset
		wantErr error
	}{
		{name: "number", input: `{"amount": 12.5}`, want: "12.5"},
		{name: "string", input: `{"amount": "7.25"}`, want: "7.25"},
		{name: "decimal comma", input: `{"amount": "12,50"}`, want: "12.5"},
		{name: "zero", input: `{"amount": 0}`, want: "0"},
		{name: "null", input: `{"amount": null}`},
		{name: "blank string", input: `{"amount": "  "}`},
		{name: "absent", input: `{}`},
		{name: "negative", input: `{"amount": -1}`, wantErr: core.ErrInvalidAmount},
		{name: "exponent number", input: `{"amount": 1e3}`, want: "1000"},
		{name: "fractional exponent number", input: `{"amount": 2.5E-1}`, want: "0.25"},
		{name: "negative with exponent", input: `{"amount": -1e2}`, wantErr: core.ErrInvalidAmount},
		{name: "exponent string", input: `{"amount": "1e3"}`, wantErr: core.ErrInvalidAmount},
		{name: "garbage", input: `{"amount": "abc"}`, wantErr: core.ErrInvalidAmount},
		{name: "boolean", input: `{"amount": true}`, wantErr: core.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req lineItemRequest
			err := json.Unmarshal([]byte(tt.input), &req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.want == "" {
				assert.False(t, req.Amount.Valid)
				return
			}
			require.True(t, req.Amount.Valid)
			assert.Equal(t, tt.want, req.Amount.Decimal.String())
		})
	}
}

func TestOptionalDate(t *testing.T) {
	var absent, cleared, set tripRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x"}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"endDate":null}`), &cleared))
	require.NoError(t, json.Unmarshal([]byte(`{"endDate":"2024-05-02"}`), &set))

	assert.Nil(t, absent.patch().EndDate)

	p := cleared.patch()
	require.NotNil(t, p.EndDate)
	assert.False(t, p.EndDate.Valid)

	p = set.patch()
	require.NotNil(t, p.EndDate)
	assert.True(t, p.EndDate.Valid)
	assert.Equal(t, "2024-05-02", p.EndDate.Date.String())
}

func TestLineItemsKeepNilDistinct(t *testing.T) {
	assert.Nil(t, lineItems(nil))
	assert.NotNil(t, lineItems([]lineItemRequest{}))

	items := lineItems([]lineItemRequest{{ID: "e1"}, {}})
	require.Len(t, items, 2)
	assert.IsType(t, core.ExistingLineItem{}, items[0])
	assert.IsType(t, core.NewLineItem{}, items[1])
}

func TestExpenseFilter(t *testing.T) {
	q := url.Values{
		"startDate":  {"2024-01-01"},
		"endDate":    {"2024-01-31"},
		"categoryId": {" c1 "},
		"sortBy":     {"amount"},
		"sortOrder":  {"asc"},
	}
	f, err := expenseFilter("u1", q)
	require.NoError(t, err)
	assert.Equal(t, "u1", f.OwnerID)
	assert.Equal(t, "c1", f.CategoryID)
	assert.Equal(t, "2024-01-01", f.From.String())
	assert.Equal(t, "2024-01-31", f.To.String())
	assert.Equal(t, "amount", f.SortBy)

	_, err = expenseFilter("u1", url.Values{"endDate": {"31/01/2024"}})
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "endDate", ve.Field)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.ErrMissingDate, 400},
		{core.ErrNotFound, 404},
		{core.ErrConflict, 409},
		{core.ErrUnauthorized, 401},
		{errBadBody, 400},
		{assert.AnError, 500},
	}
	for _, tt := range tests {
		status, resp := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		if status == 500 {
			assert.Equal(t, "Server error", resp.Error)
		}
	}
}
