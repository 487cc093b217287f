package http

import (
	"errors"
	"net/http"
	"strconv"

	"finbook/internal/importer"
	"finbook/internal/storage"
)

// maxUploadBytes bounds spreadsheet uploads.
const maxUploadBytes = 10 << 20

// handleImportUpload accepts a multipart CSV or XLSX upload and returns the
// raw cell grid for the client-side mapping step. Nothing is persisted here.
func (s *Server) handleImportUpload(w http.ResponseWriter, r *http.Request, user storage.User) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondStatus(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondStatus(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	grid, err := importer.ParseUpload(file, header.Filename)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFile) {
			respondStatus(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		respondStatus(w, http.StatusBadRequest, "could not parse upload")
		return
	}
	respondJSON(w, http.StatusOK, grid)
}

// handleImportSheet pulls the grid from the configured remote spreadsheet.
// Returns 404 when no sheet source is configured.
func (s *Server) handleImportSheet(w http.ResponseWriter, r *http.Request, user storage.User) {
	if s.sheet == nil {
		respondStatus(w, http.StatusNotFound, "no spreadsheet source configured")
		return
	}
	readRange := r.URL.Query().Get("range")
	grid, err := s.sheet.Grid(r.Context(), readRange)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, grid)
}

// importCommitRequest carries the grid back together with the user-confirmed
// column mapping. Mapping keys are zero-based column indexes as strings.
type importCommitRequest struct {
	Data      [][]string        `json:"data"`
	Mapping   map[string]string `json:"mapping"`
	AccountID string            `json:"accountId"`
}

type importCommitResponse struct {
	Created int      `json:"created"`
	Dropped int      `json:"dropped"`
	IDs     []string `json:"ids"`
}

// handleImportCommit reconciles the grid with the mapping and persists the
// resulting records into the target account as one atomic batch. Any row that
// fails to reconcile rejects the whole commit with per-row diagnostics.
func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request, user storage.User) {
	// Import grids can be large; use the upload bound instead of the JSON one.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	var req importCommitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mapping := importer.NewMapping()
	for rawCol, rawRole := range req.Mapping {
		col, err := strconv.Atoi(rawCol)
		if err != nil || col < 0 {
			respondStatus(w, http.StatusBadRequest, "mapping keys must be column indexes")
			return
		}
		mapping.Assign(col, importer.Role(rawRole))
	}

	result, err := importer.Reconcile(req.Data, mapping)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrEmptyGrid), errors.Is(err, importer.ErrMappingIncomplete):
			respondStatus(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, r, err)
		}
		return
	}
	if len(result.Errors) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"dropped": result.Dropped,
			"errors":  result.Errors,
		})
		return
	}

	created, err := s.transactions.Import(r.Context(), user.ID, req.AccountID, result.Records)
	if err != nil {
		respondError(w, r, err)
		return
	}
	ids := make([]string, len(created))
	for i, t := range created {
		ids[i] = t.ID
	}
	respondJSON(w, http.StatusCreated, importCommitResponse{
		Created: len(created),
		Dropped: result.Dropped,
		IDs:     ids,
	})
}
