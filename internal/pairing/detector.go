// Package pairing finds the complementary half of a document pair and claims
// it. A pair is one case-order plus one certificate believed to belong to the
// same case, matched by tenant, kind and recency.
package pairing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/repository"
)

// Detector queries the document ledger for pairing candidates. All state
// lives in the repository, so any number of workers can pair concurrently.
type Detector struct {
	docs   repository.DocumentRepository
	window time.Duration
	logger *slog.Logger
}

func NewDetector(docs repository.DocumentRepository, window time.Duration, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Detector{docs: docs, window: window, logger: logger}
}

// FindPair returns the newest complementary unclaimed document for doc, or
// nil when none matches. The time window applies only when the document
// carries an upload timestamp; the tenant filter only when it has a tenant.
func (d *Detector) FindPair(ctx context.Context, doc *repository.ProcessedDocument) (*repository.ProcessedDocument, error) {
	complement := doc.Kind.Complement()
	if complement == doc.Kind {
		return nil, nil // UNKNOWN pairs with nothing
	}

	q := repository.PairQuery{
		ExcludeID: doc.ID,
		Kind:      complement,
		TenantID:  doc.TenantID,
		Window:    d.window,
	}
	if !doc.CreatedAt.IsZero() {
		center := doc.CreatedAt
		q.Center = &center
	}

	candidate, err := d.docs.FindPairCandidate(ctx, q)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		d.logger.Debug("no pairing candidate", "document_id", doc.ID, "kind", doc.Kind)
		return nil, nil
	}
	d.logger.Debug("pairing candidate found",
		"document_id", doc.ID, "candidate_id", candidate.ID, "candidate_kind", candidate.Kind)
	return candidate, nil
}

// Claim atomically takes candidateID for withID. Exactly one of any number
// of racing claimants wins; the rest get false.
func (d *Detector) Claim(ctx context.Context, candidateID, withID uuid.UUID) (bool, error) {
	claimed, err := d.docs.ClaimForPairing(ctx, candidateID, withID)
	if err != nil {
		return false, err
	}
	if !claimed {
		d.logger.Info("lost pairing claim to a concurrent processor",
			"candidate_id", candidateID, "document_id", withID)
	}
	return claimed, nil
}

// Release gives a claimed candidate back after a downstream failure.
func (d *Detector) Release(ctx context.Context, candidateID, withID uuid.UUID) error {
	return d.docs.ReleaseClaim(ctx, candidateID, withID)
}
