package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/repository"
)

func TestDocumentsXLSX(t *testing.T) {
	docs := repository.NewMemoryDocumentRepository()
	ctx := context.Background()
	base := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)

	orderPayload, _ := json.Marshal(map[string]string{"case_number": "1234"})
	order := &repository.ProcessedDocument{
		Filename:  "oficio_1234.pdf",
		Kind:      constants.KindCaseOrder,
		Status:    constants.StatusCompleted,
		Extracted: orderPayload,
		CreatedAt: base,
	}
	if err := docs.Create(ctx, order); err != nil {
		t.Fatalf("Create: %v", err)
	}

	certPayload, _ := json.Marshal(map[string]string{"plate": "ABCD12"})
	msg := "no usable text could be extracted"
	rows := []*repository.ProcessedDocument{
		{
			Filename:  "cav_abcd12.pdf",
			Kind:      constants.KindCertificate,
			Status:    constants.StatusCompleted,
			Extracted: certPayload,
			CreatedAt: base.Add(time.Minute),
		},
		{
			Filename:  "ilegible.pdf",
			Kind:      constants.KindUnknown,
			Status:    constants.StatusError,
			Message:   &msg,
			CreatedAt: base.Add(2 * time.Minute),
		},
	}
	for _, d := range rows {
		if err := docs.Create(ctx, d); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	data, err := NewService(docs, nil).DocumentsXLSX(ctx)
	if err != nil {
		t.Fatalf("DocumentsXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer func() { _ = f.Close() }()

	const sheet = "Documents"
	if got, _ := f.GetCellValue(sheet, "A1"); got != "Uploaded" {
		t.Errorf("A1 = %q, want Uploaded", got)
	}
	if got, _ := f.GetCellValue(sheet, "B2"); got != "oficio_1234.pdf" {
		t.Errorf("B2 = %q, want oficio_1234.pdf", got)
	}
	if got, _ := f.GetCellValue(sheet, "E2"); got != "1234" {
		t.Errorf("E2 = %q, want case number 1234", got)
	}
	if got, _ := f.GetCellValue(sheet, "F3"); got != "ABCD12" {
		t.Errorf("F3 = %q, want plate ABCD12", got)
	}
	if got, _ := f.GetCellValue(sheet, "D4"); got != "ERROR" {
		t.Errorf("D4 = %q, want ERROR", got)
	}
	if got, _ := f.GetCellValue(sheet, "I4"); got != msg {
		t.Errorf("I4 = %q, want %q", got, msg)
	}
}

func TestDocumentsXLSXEmpty(t *testing.T) {
	data, err := NewService(repository.NewMemoryDocumentRepository(), nil).DocumentsXLSX(context.Background())
	if err != nil {
		t.Fatalf("DocumentsXLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer func() { _ = f.Close() }()
	rowsAll, err := f.GetRows("Documents")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rowsAll) != 1 {
		t.Errorf("got %d rows, want headers only", len(rowsAll))
	}
}
