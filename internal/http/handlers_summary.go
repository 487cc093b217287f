package http

import (
	"net/http"

	"finbook/internal/services"
	"finbook/internal/storage"
)

// handleSummary returns the aggregated financial overview for a period.
// Query params: from, to (YYYY-MM-DD, both optional), accountId (optional).
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, user storage.User) {
	q := r.URL.Query()
	summary, err := s.summaries.Summarize(r.Context(), services.SummaryRequest{
		UserID:    user.ID,
		AccountID: q.Get("accountId"),
		From:      q.Get("from"),
		To:        q.Get("to"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
