package http

import (
	"net/http"
	"strings"

	"tripledger/internal/services"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := queryDate(q, "startDate")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryDate(q, "endDate")
	if err != nil {
		writeError(w, r, err)
		return
	}

	sum, err := s.deps.Dashboard.Summary(r.Context(), UserID(r.Context()), services.SummaryQuery{
		From:       from,
		To:         to,
		CategoryID: strings.TrimSpace(q.Get("categoryId")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(sum))
}
