package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/core/ports"
)

const pageSize = 200

// Service produces an XLSX workbook of all documents with their unresolved
// error counts, for offline compliance review.
type Service struct {
	docs   ports.DocumentRepository
	errs   ports.ErrorRepository
	logger *slog.Logger
}

func NewService(docs ports.DocumentRepository, errs ports.ErrorRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, errs: errs, logger: logger}
}

func (s *Service) Export(ctx context.Context, w io.Writer) error {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Documents"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{
		"Uploaded",
		"Project",
		"Installer",
		"Document Type",
		"Status",
		"Filename",
		"Unresolved Errors",
		"Reviewed At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	total := 0
	for page := 1; ; page++ {
		docs, _, err := s.docs.List(ctx, ports.ListFilter{Page: page, PageSize: pageSize})
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		if len(docs) == 0 {
			break
		}

		for _, doc := range docs {
			unresolved, err := s.errs.CountUnresolved(ctx, doc.ID)
			if err != nil {
				return fmt.Errorf("count unresolved errors: %w", err)
			}
			writeDocumentRow(f, sheet, row, doc, unresolved)
			row++
			total++
		}

		if len(docs) < pageSize {
			break
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "C", 26)
	_ = f.SetColWidth(sheet, "D", "E", 18)
	_ = f.SetColWidth(sheet, "F", "F", 32)
	_ = f.SetColWidth(sheet, "G", "G", 16)
	_ = f.SetColWidth(sheet, "H", "H", 20)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export_xlsx_ok",
		"rows", total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func writeDocumentRow(f *excelize.File, sheet string, row int, doc domain.Document, unresolved int) {
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	write(1, doc.UploadedAt.UTC().Format("2006-01-02 15:04"))
	write(2, doc.ProjectName)
	write(3, doc.InstallerCompany)
	write(4, string(doc.DocumentType))
	write(5, string(doc.Status))
	write(6, doc.Filename)
	write(7, unresolved)
	if doc.ReviewedAt != nil {
		write(8, doc.ReviewedAt.UTC().Format("2006-01-02 15:04"))
	} else {
		write(8, "")
	}
}
