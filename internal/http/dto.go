package http

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"tripledger/internal/core"
)

type (
	userDTO struct {
		ID     string `json:"id"`
		Email  string `json:"email"`
		Name   string `json:"name"`
		Avatar string `json:"avatar,omitempty"`
	}

	authResponse struct {
		Token string  `json:"token"`
		User  userDTO `json:"user"`
	}

	profileResponse struct {
		User userDTO `json:"user"`
	}

	categoryDTO struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
	}

	expenseDTO struct {
		ID          string       `json:"id"`
		Amount      json.Number  `json:"amount"`
		Description string       `json:"description"`
		Date        core.Date    `json:"date"`
		CategoryID  string       `json:"categoryId"`
		Category    *categoryDTO `json:"category,omitempty"`
		ReceiptURL  string       `json:"receiptUrl,omitempty"`
		TripID      *string      `json:"tripId"`
		CreatedAt   time.Time    `json:"createdAt"`
		UpdatedAt   time.Time    `json:"updatedAt"`
	}

	tripDTO struct {
		ID          string        `json:"id"`
		Name        string        `json:"name"`
		Description string        `json:"description"`
		StartDate   core.Date     `json:"startDate"`
		EndDate     core.NullDate `json:"endDate"`
		Expenses    []expenseDTO  `json:"expenses"`
		Total       json.Number   `json:"total"`
		CreatedAt   time.Time     `json:"createdAt"`
		UpdatedAt   time.Time     `json:"updatedAt"`
	}

	categoryTotalDTO struct {
		Name  string      `json:"name"`
		Icon  string      `json:"icon"`
		Color string      `json:"color"`
		Total json.Number `json:"total"`
		Count int         `json:"count"`
	}

	dateTotalDTO struct {
		Date  core.Date   `json:"date"`
		Total json.Number `json:"total"`
	}

	summaryDTO struct {
		TotalExpense      json.Number        `json:"totalExpense"`
		TotalTransactions int                `json:"totalTransactions"`
		ByCategory        []categoryTotalDTO `json:"byCategory"`
		ByDate            []dateTotalDTO     `json:"byDate"`
	}
)

// Request bodies.
type (
	registerRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	profileRequest struct {
		Name     *string `json:"name"`
		Password *string `json:"password"`
		Avatar   *string `json:"avatar"`
	}

	categoryRequest struct {
		Name  *string `json:"name"`
		Icon  *string `json:"icon"`
		Color *string `json:"color"`
	}

	expenseRequest struct {
		Amount      amountField `json:"amount"`
		Description string      `json:"description"`
		Date        core.Date   `json:"date"`
		CategoryID  string      `json:"categoryId"`
		ReceiptURL  string      `json:"receiptUrl"`
		TripID      string      `json:"tripId"`
	}

	// lineItemRequest is one entry of a trip's expenses array. An entry with
	// an id claims an existing expense.
	lineItemRequest struct {
		ID          string      `json:"id"`
		Amount      amountField `json:"amount"`
		Description string      `json:"description"`
		Date        core.Date   `json:"date"`
		CategoryID  string      `json:"categoryId"`
		ReceiptURL  string      `json:"receiptUrl"`
	}

	tripRequest struct {
		Name        *string            `json:"name"`
		Description *string            `json:"description"`
		StartDate   *core.Date         `json:"startDate"`
		EndDate     optionalDate       `json:"endDate"`
		Expenses    *[]lineItemRequest `json:"expenses"`
	}

	reconcileRequest struct {
		Expenses []lineItemRequest `json:"expenses"`
	}
)

func amountJSON(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func toUserDTO(u core.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Name: u.Name, Avatar: u.Avatar}
}

func toCategoryDTO(c core.Category) categoryDTO {
	return categoryDTO{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color}
}

func toCategoryDTOs(cats []core.Category) []categoryDTO {
	out := make([]categoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryDTO(c))
	}
	return out
}

func toExpenseDTO(e core.Expense) expenseDTO {
	dto := expenseDTO{
		ID:          e.ID,
		Amount:      amountJSON(e.Amount),
		Description: e.Description,
		Date:        e.Date,
		CategoryID:  e.CategoryID,
		ReceiptURL:  e.ReceiptRef,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.Category.ID != "" {
		c := toCategoryDTO(e.Category)
		dto.Category = &c
	}
	if e.TripID != "" {
		id := e.TripID
		dto.TripID = &id
	}
	return dto
}

func toExpenseDTOs(expenses []core.Expense) []expenseDTO {
	out := make([]expenseDTO, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseDTO(e))
	}
	return out
}

func toTripDTO(t core.Trip) tripDTO {
	return tripDTO{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		Expenses:    toExpenseDTOs(t.Expenses),
		Total:       amountJSON(t.Total()),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toSummaryDTO(s core.Summary) summaryDTO {
	dto := summaryDTO{
		TotalExpense:      amountJSON(s.TotalAmount),
		TotalTransactions: s.TransactionCount,
		ByCategory:        make([]categoryTotalDTO, 0, len(s.ByCategory)),
		ByDate:            make([]dateTotalDTO, 0, len(s.ByDate)),
	}
	for _, c := range s.ByCategory {
		dto.ByCategory = append(dto.ByCategory, categoryTotalDTO{
			Name:  c.Name,
			Icon:  c.Icon,
			Color: c.Color,
			Total: amountJSON(c.Total),
			Count: c.Count,
		})
	}
	for _, d := range s.ByDate {
		dto.ByDate = append(dto.ByDate, dateTotalDTO{Date: d.Date, Total: amountJSON(d.Total)})
	}
	return dto
}

func (l lineItemRequest) lineItem() core.LineItem {
	f := core.LineItemFields{
		Amount:      l.Amount.NullDecimal,
		Description: l.Description,
		Date:        l.Date,
		CategoryID:  l.CategoryID,
		ReceiptRef:  l.ReceiptURL,
	}
	if l.ID != "" {
		return core.ExistingLineItem{ID: l.ID, LineItemFields: f}
	}
	return core.NewLineItem{LineItemFields: f}
}

// lineItems converts the array, keeping nil distinct from empty.
func lineItems(reqs []lineItemRequest) []core.LineItem {
	if reqs == nil {
		return nil
	}
	items := make([]core.LineItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, r.lineItem())
	}
	return items
}

func (t tripRequest) patch() core.TripPatch {
	p := core.TripPatch{
		Name:        t.Name,
		Description: t.Description,
		StartDate:   t.StartDate,
	}
	if t.EndDate.Set {
		end := t.EndDate.Value
		p.EndDate = &end
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
