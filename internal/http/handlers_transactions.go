package http

import (
	"net/http"

	"finbook/internal/core"
	"finbook/internal/storage"
)

// transactionRequest is the JSON body for create and update. Amount is in
// miliunits, date is YYYY-MM-DD.
type transactionRequest struct {
	Amount     int64   `json:"amount"`
	Payee      string  `json:"payee"`
	Notes      *string `json:"notes"`
	Date       string  `json:"date"`
	AccountID  string  `json:"accountId"`
	CategoryID *string `json:"categoryId"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Amount:     core.Money{Miliunits: req.Amount},
		Payee:      req.Payee,
		Notes:      req.Notes,
		Date:       date,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
	}, nil
}

// transactionView is the serialized shape of a transaction joined with its
// account and category names.
type transactionView struct {
	ID         string    `json:"id"`
	Amount     int64     `json:"amount"`
	Payee      string    `json:"payee"`
	Notes      *string   `json:"notes,omitempty"`
	Date       core.Date `json:"date"`
	AccountID  string    `json:"accountId"`
	Account    string    `json:"account"`
	CategoryID *string   `json:"categoryId,omitempty"`
	Category   *string   `json:"category,omitempty"`
}

func toTransactionView(d storage.TransactionDetail) transactionView {
	return transactionView{
		ID:         d.ID,
		Amount:     d.Amount.Miliunits,
		Payee:      d.Payee,
		Notes:      d.Notes,
		Date:       d.Date,
		AccountID:  d.AccountID,
		Account:    d.Account,
		CategoryID: d.CategoryID,
		Category:   d.Category,
	}
}

func coreTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:         t.ID,
		Amount:     t.Amount.Miliunits,
		Payee:      t.Payee,
		Notes:      t.Notes,
		Date:       t.Date,
		AccountID:  t.AccountID,
		CategoryID: t.CategoryID,
	}
}

// handleListTransactions returns the user's transactions, newest first.
// Query params: from, to (YYYY-MM-DD), accountId. All optional.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, user storage.User) {
	q := r.URL.Query()
	filter := storage.TransactionFilter{UserID: user.ID, AccountID: q.Get("accountId")}

	if raw := q.Get("from"); raw != "" {
		from, err := core.ParseDate(raw)
		if err != nil {
			respondError(w, r, err)
			return
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := core.ParseDate(raw)
		if err != nil {
			respondError(w, r, err)
			return
		}
		filter.To = to
	}

	details, err := s.transactions.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	views := make([]transactionView, len(details))
	for i, d := range details {
		views[i] = toTransactionView(d)
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, user storage.User) {
	detail, err := s.transactions.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionView(detail))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, user storage.User) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		respondError(w, r, err)
		return
	}
	created, err := s.transactions.Create(r.Context(), user.ID, t)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, coreTransactionView(created))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, user storage.User) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		respondError(w, r, err)
		return
	}
	t.ID = r.PathValue("id")
	if err := s.transactions.Update(r.Context(), user.ID, t); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, coreTransactionView(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, user storage.User) {
	if err := s.transactions.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBulkCreateTransactions persists a batch of transactions atomically.
// One invalid entry rejects the whole batch.
func (s *Server) handleBulkCreateTransactions(w http.ResponseWriter, r *http.Request, user storage.User) {
	var reqs []transactionRequest
	if err := decodeJSON(w, r, &reqs); err != nil {
		respondStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(reqs) == 0 {
		respondStatus(w, http.StatusBadRequest, "batch must not be empty")
		return
	}
	txs := make([]core.Transaction, len(reqs))
	for i, req := range reqs {
		t, err := req.toTransaction()
		if err != nil {
			respondError(w, r, err)
			return
		}
		txs[i] = t
	}
	created, err := s.transactions.BulkCreate(r.Context(), user.ID, txs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	views := make([]transactionView, len(created))
	for i, t := range created {
		views[i] = coreTransactionView(t)
	}
	respondJSON(w, http.StatusCreated, views)
}

// handleBulkDeleteTransactions deletes the user's transactions among the
// posted ids. Ids belonging to other users are silently skipped; the response
// reports what was actually removed.
func (s *Server) handleBulkDeleteTransactions(w http.ResponseWriter, r *http.Request, user storage.User) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		respondStatus(w, http.StatusBadRequest, "ids must not be empty")
		return
	}
	deleted, err := s.transactions.BulkDelete(r.Context(), user.ID, req.IDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if deleted == nil {
		deleted = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
