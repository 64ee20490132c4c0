package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tripledger/internal/core"
	"tripledger/internal/services"
)

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.deps.Trips.List(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]tripDTO, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Trips.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTripDTO(t))
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in := services.TripInput{
		Name:        deref(req.Name),
		Description: deref(req.Description),
		EndDate:     req.EndDate.Value,
	}
	if req.StartDate != nil {
		in.StartDate = *req.StartDate
	}
	var items []core.LineItem
	if req.Expenses != nil {
		items = lineItems(*req.Expenses)
	}

	t, err := s.deps.Trips.Create(r.Context(), UserID(r.Context()), in, items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTripDTO(t))
}

// handleUpdateTrip patches the scalar fields. When the body carries an
// expenses array the line items are reconciled against it as well.
func (s *Server) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var items []core.LineItem
	if req.Expenses != nil {
		items = lineItems(*req.Expenses)
	}

	t, err := s.deps.Trips.Update(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), req.patch(), items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTripDTO(t))
}

func (s *Server) handleReconcileTrip(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Expenses == nil {
		writeError(w, r, core.NewValidationError("expenses", "is required"))
		return
	}

	t, err := s.deps.Trips.Reconcile(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), lineItems(req.Expenses))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTripDTO(t))
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Trips.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Trip deleted"})
}
