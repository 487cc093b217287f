package http

import (
	"net/http"

	"github.com/google/uuid"

	"finbook/internal/core"
	"finbook/internal/storage"
)

type categoryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, user storage.User) {
	categories, err := s.catalog.ListCategories(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	views := make([]categoryView, len(categories))
	for i, c := range categories {
		views[i] = categoryView{ID: c.ID, Name: c.Name}
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, user storage.User) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	category := core.Category{ID: uuid.NewString(), Name: req.Name, UserID: user.ID}
	if err := category.Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.catalog.CreateCategory(r.Context(), category); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, categoryView{ID: category.ID, Name: category.Name})
}

// handleRenameCategory renames a category. Summary breakdowns group by name,
// so cached summaries for the user are invalidated.
func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request, user storage.User) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := r.PathValue("id")
	if err := (core.Category{ID: id, Name: req.Name, UserID: user.ID}).Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.catalog.RenameCategory(r.Context(), user.ID, id, req.Name); err != nil {
		respondError(w, r, err)
		return
	}
	s.summaries.Invalidate(user.ID)
	respondJSON(w, http.StatusOK, categoryView{ID: id, Name: req.Name})
}

// handleBulkDeleteCategories removes the user's categories among the posted
// ids; affected transactions keep existing uncategorized.
func (s *Server) handleBulkDeleteCategories(w http.ResponseWriter, r *http.Request, user storage.User) {
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
	deleted, err := s.catalog.BulkDeleteCategories(r.Context(), user.ID, req.IDs)
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

// handleDeleteCategory removes a category; affected transactions keep
// existing uncategorized.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, user storage.User) {
	if err := s.catalog.DeleteCategory(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	s.summaries.Invalidate(user.ID)
	w.WriteHeader(http.StatusNoContent)
}
