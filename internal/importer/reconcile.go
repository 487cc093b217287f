package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"finbook/internal/core"
)

// inputDateLayout is the fixed pattern expected in import cells; reconciled
// records carry the canonical core.DateLayout form instead.
const inputDateLayout = "2006-01-02 15:04:05"

var (
	ErrEmptyGrid         = errors.New("import grid has no rows")
	ErrMappingIncomplete = errors.New("column mapping is missing required roles")
)

// Record is one normalized transaction ready for bulk insertion. The target
// account is stamped downstream once the user confirms it.
type Record struct {
	Amount int64   `json:"amount"`
	Date   string  `json:"date"`
	Payee  string  `json:"payee"`
	Notes  *string `json:"notes,omitempty"`
}

// RowError is a per-row diagnostic for a row that could not be reconciled.
type RowError struct {
	Row    int    `json:"row"` // 1-based grid row, header is row 1
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
}

// Result is the outcome of reconciling one grid: the usable records, the
// count of fully-unmapped rows that were dropped, and a diagnostic for every
// row excluded because a required cell failed to parse.
type Result struct {
	Records []Record   `json:"records"`
	Dropped int        `json:"dropped"`
	Errors  []RowError `json:"errors,omitempty"`
}

// Reconcile transforms a raw grid (row 0 is the header row) into normalized
// records using the user-confirmed column mapping. Rows where every mapped
// cell is absent are dropped; rows whose amount or date fail to parse are
// excluded and reported in Result.Errors rather than silently degraded. The
// transformation is a pure single pass: no I/O, deterministic for identical
// inputs.
func Reconcile(grid [][]string, mapping *Mapping) (Result, error) {
	if len(grid) == 0 {
		return Result{}, ErrEmptyGrid
	}
	if mapping == nil || !mapping.Complete() {
		return Result{}, ErrMappingIncomplete
	}

	columns := len(grid[0])
	var res Result
	for i, row := range grid[1:] {
		rowNum := i + 2 // header is row 1

		cells := make(map[Role]string, len(RequiredRoles)+1)
		empty := true
		for col := 0; col < columns; col++ {
			role := mapping.RoleFor(col)
			if role == "" {
				continue
			}
			cell := cellAt(row, col)
			cells[role] = cell
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
		}
		if empty {
			res.Dropped++
			continue
		}

		amount, err := core.ParseAmountToMiliunits(cells[RoleAmount])
		if err != nil {
			res.Errors = append(res.Errors, RowError{
				Row:    rowNum,
				Field:  string(RoleAmount),
				Reason: fmt.Sprintf("cannot parse %q as a decimal amount", cells[RoleAmount]),
			})
			continue
		}

		parsed, err := time.Parse(inputDateLayout, strings.TrimSpace(cells[RoleDate]))
		if err != nil {
			res.Errors = append(res.Errors, RowError{
				Row:    rowNum,
				Field:  string(RoleDate),
				Reason: fmt.Sprintf("cannot parse %q, expected %q", cells[RoleDate], inputDateLayout),
			})
			continue
		}

		rec := Record{
			Amount: amount,
			Date:   parsed.Format(core.DateLayout),
			Payee:  strings.TrimSpace(cells[RolePayee]),
		}
		if notes, ok := cells[RoleNotes]; ok {
			if trimmed := strings.TrimSpace(notes); trimmed != "" {
				rec.Notes = &trimmed
			}
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// cellAt tolerates ragged rows, which spreadsheet parsers produce freely.
func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
