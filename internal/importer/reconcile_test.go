package importer

import (
	"strings"
	"testing"
)

func completeMapping() *Mapping {
	m := NewMapping()
	m.Assign(0, RoleDate)
	m.Assign(1, RolePayee)
	m.Assign(2, RoleAmount)
	return m
}

func TestReconcile(t *testing.T) {
	grid := [][]string{
		{"Date", "Payee", "Amount", "Reference"},
		{"2024-03-05 14:22:00", "Grocery Store", "-12.345", "ref-1"},
		{"2024-03-06 09:00:00", "Employer", "2500", "ref-2"},
	}

	res, err := Reconcile(grid, completeMapping())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}

	first := res.Records[0]
	if first.Date != "2024-03-05" {
		t.Errorf("date = %q, want 2024-03-05", first.Date)
	}
	if first.Amount != -12345 {
		t.Errorf("amount = %d, want -12345", first.Amount)
	}
	if first.Payee != "Grocery Store" {
		t.Errorf("payee = %q", first.Payee)
	}

	if res.Records[1].Amount != 2500000 {
		t.Errorf("whole amount = %d, want 2500000", res.Records[1].Amount)
	}
}

func TestReconcileRoundsExtraPrecision(t *testing.T) {
	grid := [][]string{
		{"Date", "Payee", "Amount"},
		{"2024-03-05 14:22:00", "Shop", "12.3456"},
	}
	res, err := Reconcile(grid, completeMapping())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Records[0].Amount != 12346 {
		t.Errorf("amount = %d, want 12346 (rounded, not truncated)", res.Records[0].Amount)
	}
}

func TestReconcileDropsUnmappedRows(t *testing.T) {
	m := completeMapping() // columns 0-2 mapped, column 3 is not
	grid := [][]string{
		{"Date", "Payee", "Amount", "Extra"},
		{"", "", "", "only unmapped data"},
		{"2024-01-01 00:00:00", "Shop", "1.00", ""},
	}
	res, err := Reconcile(grid, m)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", res.Dropped)
	}
	if len(res.Records) != 1 {
		t.Errorf("expected 1 record, got %d", len(res.Records))
	}
}

func TestReconcileCollectsRowErrors(t *testing.T) {
	grid := [][]string{
		{"Date", "Payee", "Amount"},
		{"not a date", "Shop", "1.00"},
		{"2024-01-02 00:00:00", "Shop", "not a number"},
		{"2024-01-03 00:00:00", "Shop", "3.00"},
	}
	res, err := Reconcile(grid, completeMapping())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected only the clean row, got %d records", len(res.Records))
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 row errors, got %d", len(res.Errors))
	}
	if res.Errors[0].Row != 2 || res.Errors[0].Field != "date" {
		t.Errorf("first error = %+v, want row 2 date", res.Errors[0])
	}
	if res.Errors[1].Row != 3 || res.Errors[1].Field != "amount" {
		t.Errorf("second error = %+v, want row 3 amount", res.Errors[1])
	}
}

func TestReconcileNotesOptional(t *testing.T) {
	m := completeMapping()
	m.Assign(3, RoleNotes)
	grid := [][]string{
		{"Date", "Payee", "Amount", "Notes"},
		{"2024-01-01 00:00:00", "Shop", "1.00", "weekly shop"},
		{"2024-01-02 00:00:00", "Shop", "2.00", ""},
	}
	res, err := Reconcile(grid, m)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Records[0].Notes == nil || *res.Records[0].Notes != "weekly shop" {
		t.Errorf("notes not carried: %+v", res.Records[0])
	}
	if res.Records[1].Notes != nil {
		t.Errorf("empty notes should stay nil, got %q", *res.Records[1].Notes)
	}
}

func TestReconcileGuards(t *testing.T) {
	if _, err := Reconcile(nil, completeMapping()); err != ErrEmptyGrid {
		t.Errorf("empty grid: got %v", err)
	}

	incomplete := NewMapping()
	incomplete.Assign(0, RoleDate)
	grid := [][]string{{"Date"}, {"2024-01-01 00:00:00"}}
	if _, err := Reconcile(grid, incomplete); err != ErrMappingIncomplete {
		t.Errorf("incomplete mapping: got %v", err)
	}
}

func TestParseUploadCSV(t *testing.T) {
	csvData := "Date,Payee,Amount\n2024-01-01 00:00:00,Shop,1.00\n"
	grid, err := ParseUpload(strings.NewReader(csvData), "export.csv")
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(grid) != 2 || grid[1][1] != "Shop" {
		t.Fatalf("unexpected grid: %v", grid)
	}
}

func TestParseUploadUnsupported(t *testing.T) {
	if _, err := ParseUpload(strings.NewReader(""), "export.pdf"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
