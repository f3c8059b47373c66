package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/core/ports"
)

type docRepoFake struct {
	ports.DocumentRepository

	docs []domain.Document
}

func (f *docRepoFake) List(_ context.Context, filter ports.ListFilter) ([]domain.Document, int, error) {
	if filter.Page > 1 {
		return nil, len(f.docs), nil
	}
	return f.docs, len(f.docs), nil
}

type errRepoFake struct {
	ports.ErrorRepository

	unresolved map[string]int
}

func (f *errRepoFake) CountUnresolved(_ context.Context, documentID string) (int, error) {
	return f.unresolved[documentID], nil
}

func TestExportWritesDocumentRows(t *testing.T) {
	uploaded := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	docs := &docRepoFake{docs: []domain.Document{
		{
			ID:               "doc-1",
			ProjectName:      "Solar Phase 2",
			InstallerCompany: "SunWorks",
			DocumentType:     domain.TypeRebateForm,
			Status:           domain.StatusReviewed,
			Filename:         "form.png",
			UploadedAt:       uploaded,
		},
		{
			ID:           "doc-2",
			ProjectName:  "Heat Pump Retrofit",
			DocumentType: domain.TypeLoanDocument,
			Status:       domain.StatusPending,
			Filename:     "loan.pdf",
			UploadedAt:   uploaded,
		},
	}}
	errs := &errRepoFake{unresolved: map[string]int{"doc-1": 2}}

	var buf bytes.Buffer
	svc := NewService(docs, errs, nil)
	if err := svc.Export(context.Background(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	book, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows("Documents")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Uploaded" || rows[0][6] != "Unresolved Errors" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "Solar Phase 2" || rows[1][6] != "2" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][4] != string(domain.StatusPending) {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}
