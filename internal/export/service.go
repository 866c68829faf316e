package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/parse"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/repository"
)

// Service produces XLSX bytes for the operational document report: one row
// per processed document with its state, kind, and key extracted fields.
type Service struct {
	docs   repository.DocumentRepository
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

var allStatuses = []constants.DocStatus{
	constants.StatusPending,
	constants.StatusWaitingForPair,
	constants.StatusCompleted,
	constants.StatusDuplicate,
	constants.StatusError,
}

// DocumentsXLSX returns an XLSX workbook listing every processed document.
func (s *Service) DocumentsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	docs, err := s.docs.ListByStatus(ctx, allStatuses, 0)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Uploaded",
		"Filename",
		"Kind",
		"Status",
		"Case Number",
		"Plate",
		"Tenant",
		"Paired Document",
		"Message",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, d := range docs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, d.CreatedAt.UTC().Format(time.RFC3339))
		write(2, d.Filename)
		write(3, string(d.Kind))
		write(4, string(d.Status))
		write(5, extractedCaseNumber(d))
		write(6, extractedPlate(d))
		if d.TenantID != nil {
			write(7, d.TenantID.String())
		}
		if d.PairID != nil {
			write(8, d.PairID.String())
		}
		if d.Message != nil {
			write(9, *d.Message)
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "B", "B", 36)
	_ = f.SetColWidth(sheet, "C", "D", 16)
	_ = f.SetColWidth(sheet, "E", "F", 14)
	_ = f.SetColWidth(sheet, "G", "H", 38)
	_ = f.SetColWidth(sheet, "I", "I", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok", "rows", len(docs), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func extractedCaseNumber(d *repository.ProcessedDocument) string {
	if d.Kind != constants.KindCaseOrder || len(d.Extracted) == 0 {
		return ""
	}
	var fields parse.CaseOrderFields
	if err := json.Unmarshal(d.Extracted, &fields); err != nil || fields.CaseNumber == nil {
		return ""
	}
	return *fields.CaseNumber
}

func extractedPlate(d *repository.ProcessedDocument) string {
	if d.Kind != constants.KindCertificate || len(d.Extracted) == 0 {
		return ""
	}
	var fields parse.CertificateFields
	if err := json.Unmarshal(d.Extracted, &fields); err != nil || fields.Plate == nil {
		return ""
	}
	return *fields.Plate
}
