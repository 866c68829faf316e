package repository

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/common"
)

// MemoryDocumentRepository keeps everything under one mutex, which also makes
// the pairing claim trivially atomic. It backs the tests and small deployments
// that run without Postgres.
type MemoryDocumentRepository struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*ProcessedDocument
}

func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{docs: make(map[uuid.UUID]*ProcessedDocument)}
}

func (r *MemoryDocumentRepository) Create(_ context.Context, doc *ProcessedDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.UpdatedAt = doc.CreatedAt
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *MemoryDocumentRepository) GetByID(_ context.Context, id uuid.UUID) (*ProcessedDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *MemoryDocumentRepository) SetClassified(_ context.Context, id uuid.UUID, kind constants.DocKind, extracted json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	doc.Kind = kind
	doc.Extracted = extracted
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryDocumentRepository) FindPairCandidate(_ context.Context, q PairQuery) (*ProcessedDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matches []*ProcessedDocument
	for _, doc := range r.docs {
		if doc.ID == q.ExcludeID || doc.Kind != q.Kind {
			continue
		}
		if !doc.Status.Claimable() || doc.PairID != nil {
			continue
		}
		if q.TenantID != nil && (doc.TenantID == nil || *doc.TenantID != *q.TenantID) {
			continue
		}
		if q.Center != nil && q.Window > 0 {
			half := q.Window / 2
			if doc.CreatedAt.Before(q.Center.Add(-half)) || doc.CreatedAt.After(q.Center.Add(half)) {
				continue
			}
		}
		matches = append(matches, doc)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return strings.Compare(matches[i].ID.String(), matches[j].ID.String()) > 0
	})
	cp := *matches[0]
	return &cp, nil
}

func (r *MemoryDocumentRepository) ClaimForPairing(_ context.Context, candidateID, withID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cand, ok := r.docs[candidateID]
	if !ok {
		return false, common.ErrNotFound
	}
	own, ok := r.docs[withID]
	if !ok {
		return false, common.ErrNotFound
	}
	if !cand.Status.Claimable() || cand.PairID != nil {
		return false, nil
	}
	if !own.Status.Claimable() || own.PairID != nil {
		return false, nil
	}
	now := time.Now().UTC()
	candPair, ownPair := withID, candidateID
	cand.PairID, own.PairID = &candPair, &ownPair
	cand.UpdatedAt, own.UpdatedAt = now, now
	return true, nil
}

func (r *MemoryDocumentRepository) ReleaseClaim(_ context.Context, candidateID, withID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	release := func(id, partner uuid.UUID) {
		doc, ok := r.docs[id]
		if !ok {
			return
		}
		if doc.PairID != nil && *doc.PairID == partner && doc.Status.Claimable() {
			doc.PairID = nil
			doc.UpdatedAt = time.Now().UTC()
		}
	}
	release(candidateID, withID)
	release(withID, candidateID)
	return nil
}

func (r *MemoryDocumentRepository) CompletePair(_ context.Context, docID, pairID, caseID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.docs[docID]
	if !ok {
		return common.ErrNotFound
	}
	b, ok := r.docs[pairID]
	if !ok {
		return common.ErrNotFound
	}
	now := time.Now().UTC()
	aPair, bPair, cid := pairID, docID, caseID
	a.Status, b.Status = constants.StatusCompleted, constants.StatusCompleted
	a.PairID, b.PairID = &aPair, &bPair
	a.CaseID, b.CaseID = &cid, &cid
	a.UpdatedAt, b.UpdatedAt = now, now
	return nil
}

func (r *MemoryDocumentRepository) MarkDuplicatePair(_ context.Context, docID, pairID uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.docs[docID]
	if !ok {
		return common.ErrNotFound
	}
	b, ok := r.docs[pairID]
	if !ok {
		return common.ErrNotFound
	}
	now := time.Now().UTC()
	aPair, bPair := pairID, docID
	msgA, msgB := message, message
	a.Status, b.Status = constants.StatusDuplicate, constants.StatusDuplicate
	a.PairID, b.PairID = &aPair, &bPair
	a.Message, b.Message = &msgA, &msgB
	a.UpdatedAt, b.UpdatedAt = now, now
	return nil
}

func (r *MemoryDocumentRepository) SetWaitingForPair(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	// A concurrent processor may have claimed or even completed this document
	// since the caller looked for candidates; parking it then would tear up
	// the claim. The no-op keeps the other processor's outcome.
	if !doc.Status.Claimable() || doc.PairID != nil {
		return nil
	}
	doc.Status = constants.StatusWaitingForPair
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryDocumentRepository) MarkError(_ context.Context, id uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	doc.Status = constants.StatusError
	doc.Message = &message
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryDocumentRepository) ResetForRetry(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	if doc.Status != constants.StatusError {
		return nil
	}
	doc.Status = constants.StatusPending
	doc.Message = nil
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryDocumentRepository) ListByStatus(_ context.Context, statuses []constants.DocStatus, limit int) ([]*ProcessedDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[constants.DocStatus]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}
	var out []*ProcessedDocument
	for _, doc := range r.docs {
		if _, ok := wanted[doc.Status]; !ok {
			continue
		}
		cp := *doc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryCaseRepository enforces case-number uniqueness per tenant in memory.
type MemoryCaseRepository struct {
	mu    sync.Mutex
	cases map[string]*Case // key: tenant|number
}

func NewMemoryCaseRepository() *MemoryCaseRepository {
	return &MemoryCaseRepository{cases: make(map[string]*Case)}
}

func caseKey(tenantID *uuid.UUID, number string) string {
	t := ""
	if tenantID != nil {
		t = tenantID.String()
	}
	return t + "|" + number
}

func (r *MemoryCaseRepository) Create(_ context.Context, c *Case) (*Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := caseKey(c.TenantID, c.CaseNumber)
	if _, exists := r.cases[key]; exists {
		return nil, ErrCaseNumberExists
	}
	cp := *c
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.cases[key] = &cp
	out := cp
	return &out, nil
}

func (r *MemoryCaseRepository) GetByNumber(_ context.Context, tenantID *uuid.UUID, number string) (*Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[caseKey(tenantID, number)]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// MemoryAttachmentRepository stores attachment rows in memory.
type MemoryAttachmentRepository struct {
	mu   sync.Mutex
	rows []*Attachment
}

func NewMemoryAttachmentRepository() *MemoryAttachmentRepository {
	return &MemoryAttachmentRepository{}
}

func (r *MemoryAttachmentRepository) Attach(_ context.Context, a *Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MemoryAttachmentRepository) ListByCase(_ context.Context, caseID uuid.UUID) ([]*Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Attachment
	for _, a := range r.rows {
		if a.CaseID == caseID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
