package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
)

func newDoc(t *testing.T, repo *MemoryDocumentRepository, kind constants.DocKind, createdAt time.Time, tenantID *uuid.UUID) *ProcessedDocument {
	t.Helper()
	doc := &ProcessedDocument{
		Filename:    "doc.pdf",
		StoragePath: "doc.pdf",
		Kind:        kind,
		Status:      constants.StatusPending,
		TenantID:    tenantID,
		CreatedAt:   createdAt,
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return doc
}

func TestFindPairCandidatePrefersNewest(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	older := newDoc(t, repo, constants.KindCertificate, base.Add(-2*time.Hour), nil)
	newer := newDoc(t, repo, constants.KindCertificate, base.Add(-time.Hour), nil)
	order := newDoc(t, repo, constants.KindCaseOrder, base, nil)

	got, err := repo.FindPairCandidate(ctx, PairQuery{
		ExcludeID: order.ID,
		Kind:      constants.KindCertificate,
		Center:    &order.CreatedAt,
		Window:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("FindPairCandidate: %v", err)
	}
	if got == nil || got.ID != newer.ID {
		t.Errorf("got %v, want newest certificate %v", got, newer.ID)
	}
	_ = older
}

func TestFindPairCandidateFilters(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	base := time.Now().UTC()
	tenantA := uuid.New()
	tenantB := uuid.New()

	newDoc(t, repo, constants.KindCertificate, base.Add(-48*time.Hour), nil) // outside window
	newDoc(t, repo, constants.KindCaseOrder, base, nil)                      // wrong kind
	newDoc(t, repo, constants.KindCertificate, base, &tenantB)               // wrong tenant
	errored := newDoc(t, repo, constants.KindCertificate, base, &tenantA)
	if err := repo.MarkError(ctx, errored.ID, "boom"); err != nil {
		t.Fatalf("MarkError: %v", err)
	}
	match := newDoc(t, repo, constants.KindCertificate, base.Add(-time.Hour), &tenantA)

	order := newDoc(t, repo, constants.KindCaseOrder, base, &tenantA)
	got, err := repo.FindPairCandidate(ctx, PairQuery{
		ExcludeID: order.ID,
		Kind:      constants.KindCertificate,
		TenantID:  &tenantA,
		Center:    &order.CreatedAt,
		Window:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("FindPairCandidate: %v", err)
	}
	if got == nil || got.ID != match.ID {
		t.Errorf("got %v, want %v", got, match.ID)
	}
}

func TestFindPairCandidateSkipsClaimed(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	cert := newDoc(t, repo, constants.KindCertificate, base, nil)
	orderA := newDoc(t, repo, constants.KindCaseOrder, base, nil)
	orderB := newDoc(t, repo, constants.KindCaseOrder, base, nil)

	if ok, err := repo.ClaimForPairing(ctx, cert.ID, orderA.ID); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	got, err := repo.FindPairCandidate(ctx, PairQuery{ExcludeID: orderB.ID, Kind: constants.KindCertificate})
	if err != nil {
		t.Fatalf("FindPairCandidate: %v", err)
	}
	if got != nil {
		t.Errorf("claimed certificate still offered: %v", got.ID)
	}
}

func TestClaimForPairingLinksBothSides(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	cert := newDoc(t, repo, constants.KindCertificate, base, nil)
	order := newDoc(t, repo, constants.KindCaseOrder, base, nil)

	ok, err := repo.ClaimForPairing(ctx, cert.ID, order.ID)
	if err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}

	gotCert, _ := repo.GetByID(ctx, cert.ID)
	gotOrder, _ := repo.GetByID(ctx, order.ID)
	if gotCert.PairID == nil || *gotCert.PairID != order.ID {
		t.Errorf("certificate pair link = %v, want %v", gotCert.PairID, order.ID)
	}
	if gotOrder.PairID == nil || *gotOrder.PairID != cert.ID {
		t.Errorf("order pair link = %v, want %v", gotOrder.PairID, cert.ID)
	}
}

func TestClaimForPairingOnlyOneWinner(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	cert := newDoc(t, repo, constants.KindCertificate, base, nil)
	const racers = 16
	orders := make([]*ProcessedDocument, racers)
	for i := range orders {
		orders[i] = newDoc(t, repo, constants.KindCaseOrder, base, nil)
	}

	var wg sync.WaitGroup
	wins := make(chan uuid.UUID, racers)
	for _, o := range orders {
		wg.Add(1)
		go func(orderID uuid.UUID) {
			defer wg.Done()
			ok, err := repo.ClaimForPairing(ctx, cert.ID, orderID)
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if ok {
				wins <- orderID
			}
		}(o.ID)
	}
	wg.Wait()
	close(wins)

	var winners []uuid.UUID
	for id := range wins {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("got %d winners, want exactly 1", len(winners))
	}
	got, _ := repo.GetByID(ctx, cert.ID)
	if got.PairID == nil || *got.PairID != winners[0] {
		t.Errorf("certificate pair link = %v, want winner %v", got.PairID, winners[0])
	}
}

func TestReleaseClaimRestoresBothSides(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	cert := newDoc(t, repo, constants.KindCertificate, base, nil)
	order := newDoc(t, repo, constants.KindCaseOrder, base, nil)

	if ok, _ := repo.ClaimForPairing(ctx, cert.ID, order.ID); !ok {
		t.Fatal("claim should succeed")
	}
	if err := repo.ReleaseClaim(ctx, cert.ID, order.ID); err != nil {
		t.Fatalf("ReleaseClaim: %v", err)
	}

	gotCert, _ := repo.GetByID(ctx, cert.ID)
	gotOrder, _ := repo.GetByID(ctx, order.ID)
	if gotCert.PairID != nil || gotOrder.PairID != nil {
		t.Errorf("pair links not cleared: cert=%v order=%v", gotCert.PairID, gotOrder.PairID)
	}

	// Released documents are claimable again.
	if ok, _ := repo.ClaimForPairing(ctx, cert.ID, order.ID); !ok {
		t.Error("claim after release should succeed")
	}
}

func TestCompletePair(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	cert := newDoc(t, repo, constants.KindCertificate, base, nil)
	order := newDoc(t, repo, constants.KindCaseOrder, base, nil)
	caseID := uuid.New()

	if err := repo.CompletePair(ctx, order.ID, cert.ID, caseID); err != nil {
		t.Fatalf("CompletePair: %v", err)
	}
	for _, id := range []uuid.UUID{order.ID, cert.ID} {
		doc, _ := repo.GetByID(ctx, id)
		if doc.Status != constants.StatusCompleted {
			t.Errorf("doc %v status = %v, want COMPLETED", id, doc.Status)
		}
		if doc.CaseID == nil || *doc.CaseID != caseID {
			t.Errorf("doc %v case link = %v, want %v", id, doc.CaseID, caseID)
		}
	}
}

func TestMarkDuplicatePair(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	cert := newDoc(t, repo, constants.KindCertificate, base, nil)
	order := newDoc(t, repo, constants.KindCaseOrder, base, nil)

	if err := repo.MarkDuplicatePair(ctx, order.ID, cert.ID, "case already exists"); err != nil {
		t.Fatalf("MarkDuplicatePair: %v", err)
	}
	for _, id := range []uuid.UUID{order.ID, cert.ID} {
		doc, _ := repo.GetByID(ctx, id)
		if doc.Status != constants.StatusDuplicate {
			t.Errorf("doc %v status = %v, want DUPLICATE", id, doc.Status)
		}
		if doc.PairID == nil {
			t.Errorf("doc %v lost its pair link", id)
		}
		if doc.Message == nil || *doc.Message != "case already exists" {
			t.Errorf("doc %v message = %v", id, doc.Message)
		}
	}
}

func TestResetForRetry(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	errored := newDoc(t, repo, constants.KindCaseOrder, base, nil)
	if err := repo.MarkError(ctx, errored.ID, "pdftotext unavailable"); err != nil {
		t.Fatalf("MarkError: %v", err)
	}
	if err := repo.ResetForRetry(ctx, errored.ID); err != nil {
		t.Fatalf("ResetForRetry: %v", err)
	}
	got, _ := repo.GetByID(ctx, errored.ID)
	if got.Status != constants.StatusPending {
		t.Errorf("status = %v, want PENDING", got.Status)
	}
	if got.Message != nil {
		t.Errorf("message = %q, want cleared", *got.Message)
	}

	// Only ERROR rows are lifted; a parked document keeps its state.
	waiting := newDoc(t, repo, constants.KindCertificate, base, nil)
	if err := repo.SetWaitingForPair(ctx, waiting.ID); err != nil {
		t.Fatalf("SetWaitingForPair: %v", err)
	}
	if err := repo.ResetForRetry(ctx, waiting.ID); err != nil {
		t.Fatalf("ResetForRetry: %v", err)
	}
	got, _ = repo.GetByID(ctx, waiting.ID)
	if got.Status != constants.StatusWaitingForPair {
		t.Errorf("status = %v, want WAITING_FOR_PAIR", got.Status)
	}
}

func TestListByStatus(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	newDoc(t, repo, constants.KindCaseOrder, base.Add(-3*time.Hour), nil)
	d2 := newDoc(t, repo, constants.KindCaseOrder, base.Add(-2*time.Hour), nil)
	if err := repo.SetWaitingForPair(ctx, d2.ID); err != nil {
		t.Fatalf("SetWaitingForPair: %v", err)
	}
	d3 := newDoc(t, repo, constants.KindCertificate, base.Add(-time.Hour), nil)
	if err := repo.MarkError(ctx, d3.ID, "x"); err != nil {
		t.Fatalf("MarkError: %v", err)
	}

	got, err := repo.ListByStatus(ctx, []constants.DocStatus{constants.StatusPending, constants.StatusWaitingForPair}, 0)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d documents, want 2", len(got))
	}
	if !got[0].CreatedAt.Before(got[1].CreatedAt) {
		t.Error("expected oldest-first ordering")
	}

	capped, _ := repo.ListByStatus(ctx, []constants.DocStatus{constants.StatusPending, constants.StatusWaitingForPair}, 1)
	if len(capped) != 1 {
		t.Errorf("limit ignored: got %d", len(capped))
	}
}

func TestCaseRepositoryUniqueness(t *testing.T) {
	repo := NewMemoryCaseRepository()
	ctx := context.Background()
	tenant := uuid.New()

	first, err := repo.Create(ctx, &Case{CaseNumber: "1234", TenantID: &tenant, Plate: "ABCD12"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.ID == uuid.Nil {
		t.Error("expected assigned id")
	}

	if _, err := repo.Create(ctx, &Case{CaseNumber: "1234", TenantID: &tenant, Plate: "BC1234"}); err != ErrCaseNumberExists {
		t.Errorf("second create err = %v, want ErrCaseNumberExists", err)
	}

	// Same number under another tenant is a different case.
	other := uuid.New()
	if _, err := repo.Create(ctx, &Case{CaseNumber: "1234", TenantID: &other, Plate: "BC1234"}); err != nil {
		t.Errorf("create under other tenant: %v", err)
	}

	got, err := repo.GetByNumber(ctx, &tenant, "1234")
	if err != nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if got.Plate != "ABCD12" {
		t.Errorf("Plate = %q, want ABCD12", got.Plate)
	}
}
