package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/store"
)

type fakeRelational struct {
	store.RelationalStore

	records []*entity.ExtractionRecord
}

func (f *fakeRelational) ListRecordsByYear(context.Context, int) ([]*entity.ExtractionRecord, error) {
	return f.records, nil
}

func TestExportYearXLSX(t *testing.T) {
	rel := &fakeRelational{records: []*entity.ExtractionRecord{
		{
			ID:         uuid.New(),
			DocumentID: uuid.New(),
			FormType:   constants.FormW2,
			Fields: entity.FieldMap{
				"employer_name":        "Acme Corporation",
				"wages":                entity.Amount(7500000),
				"federal_tax_withheld": entity.Amount(850000),
			},
			ValidationStatus: constants.ValidationValid,
		},
		{
			ID:         uuid.New(),
			DocumentID: uuid.New(),
			FormType:   constants.Form1099INT,
			Fields: entity.FieldMap{
				"payer_name":      "First National Bank",
				"interest_income": entity.Amount(125033),
			},
			ValidationStatus: constants.ValidationWithWarnings,
			Warnings:         []string{"payer_tin does not match ein format"},
		},
	}}

	data, err := NewService(rel, nil).ExportYearXLSX(context.Background(), 2024)
	if err != nil {
		t.Fatalf("ExportYearXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	const sheet = "Tax Documents"
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus two records", len(rows))
	}
	if rows[0][0] != "Form Type" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "W2" || rows[1][2] != "Acme Corporation" || rows[1][3] != "75000.00" {
		t.Errorf("W2 row = %v", rows[1])
	}
	if rows[2][0] != "FORM_1099_INT" || rows[2][3] != "1250.33" {
		t.Errorf("1099-INT row = %v", rows[2])
	}
}

func TestExportEmptyYear(t *testing.T) {
	data, err := NewService(&fakeRelational{}, nil).ExportYearXLSX(context.Background(), 2019)
	if err != nil {
		t.Fatalf("ExportYearXLSX: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("workbook bytes empty")
	}
}
