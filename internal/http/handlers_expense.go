package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tripledger/internal/core"
	"tripledger/internal/services"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := expenseFilter(UserID(r.Context()), r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	expenses, err := s.deps.Expenses.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTOs(expenses))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Expenses.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := decodeExpense(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.deps.Expenses.Create(r.Context(), UserID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := decodeExpense(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.deps.Expenses.Update(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Expenses.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Expense deleted"})
}

// decodeExpense reads a standalone expense body. Unlike trip line items, the
// amount is mandatory here.
func decodeExpense(w http.ResponseWriter, r *http.Request) (services.ExpenseInput, error) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return services.ExpenseInput{}, err
	}
	if !req.Amount.Valid {
		return services.ExpenseInput{}, core.ErrMissingAmount
	}
	return services.ExpenseInput{
		Amount:      req.Amount.Decimal,
		Description: req.Description,
		Date:        req.Date,
		CategoryID:  req.CategoryID,
		ReceiptRef:  req.ReceiptURL,
		TripID:      req.TripID,
	}, nil
}
