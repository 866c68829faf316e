// Package cases turns a matched document pair into a case record. Creation
// is duplicate-safe: a case-number collision comes back as a business signal,
// not an error, and attachment persistence never rolls back a created case.
package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/parse"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/repository"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/storage"
)

// CreationInput is everything the orchestrator needs to build one case.
type CreationInput struct {
	TenantID    *uuid.UUID
	Order       parse.CaseOrderFields
	Certificate parse.CertificateFields

	OrderFilename string
	OrderPDF      []byte
	CertFilename  string
	CertPDF       []byte
}

// Outcome reports how creation ended.
type Outcome struct {
	Case      *repository.Case
	Duplicate bool // case number already existed; no case was created
}

// Creator builds the case-creation request and delegates to the case and
// attachment collaborators.
type Creator struct {
	cases       repository.CaseRepository
	attachments repository.AttachmentRepository
	store       storage.Store
	logger      *slog.Logger
}

func NewCreator(cases repository.CaseRepository, attachments repository.AttachmentRepository, store storage.Store, logger *slog.Logger) *Creator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Creator{cases: cases, attachments: attachments, store: store, logger: logger}
}

// Create validates the combined payload, creates the case and persists both
// originals as tagged attachments. A collision yields Outcome.Duplicate
// rather than an error.
func (c *Creator) Create(ctx context.Context, in CreationInput) (Outcome, error) {
	if in.Order.CaseNumber == nil || *in.Order.CaseNumber == "" {
		return Outcome{}, fmt.Errorf("cannot create case: missing field case number")
	}
	if in.Certificate.Plate == nil || *in.Certificate.Plate == "" {
		return Outcome{}, fmt.Errorf("cannot create case: missing field plate")
	}

	req := &repository.Case{
		CaseNumber:   *in.Order.CaseNumber,
		TenantID:     in.TenantID,
		Plate:        *in.Certificate.Plate,
		Brand:        in.Certificate.Brand,
		Model:        in.Certificate.Model,
		Year:         in.Certificate.Year,
		Color:        in.Certificate.Color,
		VIN:          in.Certificate.VIN,
		VehicleType:  in.Certificate.VehicleType,
		FuelType:     in.Certificate.FuelType,
		Addresses:    in.Order.Addresses,
		LegalContext: in.Order.LegalContext,
		OrderDate:    in.Order.OrderDate,
	}
	// Owner goes on the case only when both halves of the identity are known.
	if in.Order.OwnerRUT != nil && in.Order.OwnerName != nil {
		req.OwnerRUT = in.Order.OwnerRUT
		req.OwnerName = in.Order.OwnerName
	}

	created, err := c.cases.Create(ctx, req)
	if errors.Is(err, repository.ErrCaseNumberExists) {
		c.logger.Info("case number already exists", "case_number", req.CaseNumber, "tenant_id", in.TenantID)
		return Outcome{Duplicate: true}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("create case: %w", err)
	}

	// Best-effort secondary write: the case stands even when attaching fails.
	c.attach(ctx, created.ID, in.OrderPDF, in.OrderFilename, constants.TagOriginalOrder)
	c.attach(ctx, created.ID, in.CertPDF, in.CertFilename, constants.TagOriginalCertificate)

	c.logger.Info("case created",
		"case_id", created.ID, "case_number", created.CaseNumber, "plate", created.Plate)
	return Outcome{Case: created}, nil
}

func (c *Creator) attach(ctx context.Context, caseID uuid.UUID, pdf []byte, filename, tag string) {
	if len(pdf) == 0 {
		c.logger.Warn("no bytes to attach", "case_id", caseID, "tag", tag)
		return
	}
	path, err := c.store.Save(ctx, pdf, filename)
	if err != nil {
		c.logger.Error("attachment storage failed", "case_id", caseID, "tag", tag, "error", err)
		return
	}
	err = c.attachments.Attach(ctx, &repository.Attachment{
		CaseID:      caseID,
		Filename:    filename,
		StoragePath: path,
		MIMEType:    constants.MIMEPDF,
		Tag:         tag,
	})
	if err != nil {
		c.logger.Error("attachment record failed", "case_id", caseID, "tag", tag, "error", err)
	}
}
