package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrCaseNumberExists is the typed collision condition: the case number is
// already taken within the tenant. A business condition, not a fault.
var ErrCaseNumberExists = errors.New("case number already exists")

// Case is the record created once both halves of a pair are available.
type Case struct {
	ID         uuid.UUID
	CaseNumber string
	TenantID   *uuid.UUID

	Plate       string
	Brand       *string
	Model       *string
	Year        *int
	Color       *string
	VIN         *string
	VehicleType *string
	FuelType    *string

	OwnerRUT  *string
	OwnerName *string
	Addresses []string

	LegalContext *string
	OrderDate    *time.Time

	CreatedAt time.Time
}

// CaseRepository persists cases. Create must fail with ErrCaseNumberExists
// when the (tenant, case number) pair is already present.
type CaseRepository interface {
	Create(ctx context.Context, c *Case) (*Case, error)
	GetByNumber(ctx context.Context, tenantID *uuid.UUID, caseNumber string) (*Case, error)
}

// Attachment is a stored original file tagged onto a created case.
type Attachment struct {
	ID          uuid.UUID
	CaseID      uuid.UUID
	Filename    string
	StoragePath string
	MIMEType    string
	Tag         string
	CreatedAt   time.Time
}

// AttachmentRepository persists case attachments.
type AttachmentRepository interface {
	Attach(ctx context.Context, a *Attachment) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Attachment, error)
}
