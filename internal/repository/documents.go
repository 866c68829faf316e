package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
)

// ProcessedDocument is one uploaded file and its processing ledger row.
// Rows are never deleted; they double as the audit trail and as the durable
// queue that survives restarts.
type ProcessedDocument struct {
	ID          uuid.UUID
	Filename    string
	StoragePath string
	Kind        constants.DocKind
	Status      constants.DocStatus
	PairID      *uuid.UUID
	TenantID    *uuid.UUID
	CaseID      *uuid.UUID
	Extracted   json.RawMessage
	Message     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PairQuery describes the search for a complementary unclaimed document.
type PairQuery struct {
	ExcludeID uuid.UUID
	Kind      constants.DocKind // kind the candidate must have
	TenantID  *uuid.UUID        // match required only when set
	Center    *time.Time        // upload timestamp; window applies only when set
	Window    time.Duration     // total window width centered on Center
}

// DocumentRepository persists ProcessedDocument rows. Implementations must
// make ClaimForPairing an atomic compare-and-swap so two racing uploads can
// never claim the same candidate.
type DocumentRepository interface {
	Create(ctx context.Context, doc *ProcessedDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*ProcessedDocument, error)

	// SetClassified records kind and extracted payload after parsing.
	SetClassified(ctx context.Context, id uuid.UUID, kind constants.DocKind, extracted json.RawMessage) error

	// FindPairCandidate returns the newest claimable document matching the
	// query, ordered by creation time descending then id descending, or nil.
	FindPairCandidate(ctx context.Context, q PairQuery) (*ProcessedDocument, error)

	// ClaimForPairing links candidateID and withID to each other if and only
	// if both are still claimable and unclaimed, atomically. Claiming both
	// sides in one step means two processors can neither take the same
	// candidate nor claim each other mutually. Returns false when the claim
	// was lost to a concurrent processor.
	ClaimForPairing(ctx context.Context, candidateID, withID uuid.UUID) (bool, error)

	// ReleaseClaim undoes a claim after a downstream failure, clearing both
	// sides of the link so each document can pair with a later upload.
	ReleaseClaim(ctx context.Context, candidateID, withID uuid.UUID) error

	// CompletePair transitions both documents of a pair to COMPLETED with
	// mutual pair links and the shared case link.
	CompletePair(ctx context.Context, docID, pairID, caseID uuid.UUID) error

	// MarkDuplicatePair transitions both documents to DUPLICATE with mutual
	// pair links and an explanatory message. No case link is set.
	MarkDuplicatePair(ctx context.Context, docID, pairID uuid.UUID, message string) error

	// SetWaitingForPair parks an unpaired document. It must be a no-op when
	// the document was claimed or finished by a concurrent processor between
	// the candidate search and this call.
	SetWaitingForPair(ctx context.Context, id uuid.UUID) error
	MarkError(ctx context.Context, id uuid.UUID, message string) error

	// ResetForRetry lifts an ERROR document back to PENDING and clears its
	// message, so an operator can re-drive it once the underlying outage is
	// fixed. Documents in any other state are left untouched.
	ResetForRetry(ctx context.Context, id uuid.UUID) error

	// ListByStatus returns documents in any of the given states, oldest
	// first, capped at limit (0 = no cap). Used for re-submission and reports.
	ListByStatus(ctx context.Context, statuses []constants.DocStatus, limit int) ([]*ProcessedDocument, error)
}
