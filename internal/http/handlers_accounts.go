package http

import (
	"net/http"

	"github.com/google/uuid"

	"finbook/internal/core"
	"finbook/internal/storage"
)

type nameRequest struct {
	Name string `json:"name"`
}

type accountView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, user storage.User) {
	accounts, err := s.catalog.ListAccounts(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	views := make([]accountView, len(accounts))
	for i, a := range accounts {
		views[i] = accountView{ID: a.ID, Name: a.Name}
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request, user storage.User) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account := core.Account{ID: uuid.NewString(), Name: req.Name, UserID: user.ID}
	if err := account.Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.catalog.CreateAccount(r.Context(), account); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, accountView{ID: account.ID, Name: account.Name})
}

func (s *Server) handleRenameAccount(w http.ResponseWriter, r *http.Request, user storage.User) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := r.PathValue("id")
	if err := (core.Account{ID: id, Name: req.Name, UserID: user.ID}).Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.catalog.RenameAccount(r.Context(), user.ID, id, req.Name); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, accountView{ID: id, Name: req.Name})
}

// handleBulkDeleteAccounts removes the user's accounts among the posted ids,
// cascading to their transactions.
func (s *Server) handleBulkDeleteAccounts(w http.ResponseWriter, r *http.Request, user storage.User) {
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
	deleted, err := s.catalog.BulkDeleteAccounts(r.Context(), user.ID, req.IDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if len(deleted) > 0 {
		s.summaries.Invalidate(user.ID)
	}
	if deleted == nil {
		deleted = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// handleDeleteAccount removes an account and, through the schema cascade, all
// its transactions. The user's summaries are invalidated accordingly.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, user storage.User) {
	if err := s.catalog.DeleteAccount(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	s.summaries.Invalidate(user.ID)
	w.WriteHeader(http.StatusNoContent)
}
