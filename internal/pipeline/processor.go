// Package pipeline runs one uploaded document through extraction,
// classification, parsing, pairing and case creation, advancing its
// processing state as it goes. Failures are document-scoped: nothing in here
// ever aborts a sibling document.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/cases"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/classify"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/extract"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/pairing"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/parse"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/repository"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/storage"
)

// Result statuses exposed to the upload layer.
const (
	StatusWaiting   = "waiting"
	StatusCompleted = "completed"
	StatusDuplicate = "duplicate"
	StatusError     = "error"
)

// Result is the per-document outcome consumed by batch reporting and logs.
type Result struct {
	Status           string     `json:"status"`
	DocumentID       uuid.UUID  `json:"documentId"`
	PairedDocumentID *uuid.UUID `json:"pairedDocumentId,omitempty"`
	CaseID           *uuid.UUID `json:"caseId,omitempty"`
	Message          *string    `json:"message,omitempty"`
}

// claimAttempts bounds the find-then-claim retry when racing uploads steal
// candidates out from under us.
const claimAttempts = 3

// Processor coordinates the whole per-document pipeline.
type Processor struct {
	extractor  *extract.Extractor
	orderParse *parse.CaseOrderParser
	certParse  *parse.CertificateParser
	detector   *pairing.Detector
	creator    *cases.Creator
	docs       repository.DocumentRepository
	store      storage.Store
	logger     *slog.Logger
}

func NewProcessor(
	extractor *extract.Extractor,
	orderParse *parse.CaseOrderParser,
	certParse *parse.CertificateParser,
	detector *pairing.Detector,
	creator *cases.Creator,
	docs repository.DocumentRepository,
	store storage.Store,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		extractor:  extractor,
		orderParse: orderParse,
		certParse:  certParse,
		detector:   detector,
		creator:    creator,
		docs:       docs,
		store:      store,
		logger:     logger,
	}
}

// Ingest validates and records an upload, returning the PENDING row to
// dispatch. Invalid input never reaches a worker: the row is created straight
// in ERROR so the batch report and the audit trail still see it.
func (p *Processor) Ingest(ctx context.Context, filename string, data []byte, tenantID *uuid.UUID) (*repository.ProcessedDocument, error) {
	doc := &repository.ProcessedDocument{
		Filename: filename,
		Kind:     constants.KindUnknown,
		TenantID: tenantID,
	}

	if !constants.IsPDF(data) {
		msg := "invalid file format: not a PDF"
		doc.Status = constants.StatusError
		doc.Message = &msg
		if err := p.docs.Create(ctx, doc); err != nil {
			return nil, err
		}
		p.logger.Warn("upload rejected", "filename", filename, "reason", msg)
		return doc, nil
	}
	if len(data) > constants.MaxUploadBytes {
		msg := fmt.Sprintf("file too large: %d bytes (limit %d)", len(data), constants.MaxUploadBytes)
		doc.Status = constants.StatusError
		doc.Message = &msg
		if err := p.docs.Create(ctx, doc); err != nil {
			return nil, err
		}
		p.logger.Warn("upload rejected", "filename", filename, "reason", msg)
		return doc, nil
	}

	path, err := p.store.Save(ctx, data, filename)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	doc.StoragePath = path
	doc.Status = constants.StatusPending
	if err := p.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	p.logger.Info("document ingested", "document_id", doc.ID, "filename", filename, "tenant_id", tenantID)
	return doc, nil
}

// ProcessDocument runs the pipeline for one document id. It is idempotent:
// a document already in a terminal state returns its recorded result without
// redoing any work.
func (p *Processor) ProcessDocument(ctx context.Context, docID uuid.UUID) (Result, error) {
	doc, err := p.docs.GetByID(ctx, docID)
	if err != nil {
		return Result{Status: StatusError, DocumentID: docID}, fmt.Errorf("load document: %w", err)
	}

	if doc.Status.IsTerminal() {
		p.logger.Debug("document already terminal", "document_id", docID, "status", doc.Status)
		return resultFromDocument(doc), nil
	}

	res, err := p.process(ctx, doc)
	if err != nil {
		// Any unexpected failure dead-letters this document only.
		msg := err.Error()
		if markErr := p.docs.MarkError(ctx, doc.ID, msg); markErr != nil {
			p.logger.Error("failed to record error state", "document_id", doc.ID, "error", markErr)
		}
		p.logger.Error("document processing failed", "document_id", doc.ID, "error", err)
		return Result{Status: StatusError, DocumentID: doc.ID, Message: &msg}, err
	}
	return res, nil
}

// Reprocess is the operator re-drive entry point. Unlike ProcessDocument it
// lifts an ERROR dead-letter back to PENDING before running, giving a document
// that failed on a since-fixed outage a fresh pass. Other terminal states
// still return their recorded result untouched.
func (p *Processor) Reprocess(ctx context.Context, docID uuid.UUID) (Result, error) {
	doc, err := p.docs.GetByID(ctx, docID)
	if err != nil {
		return Result{Status: StatusError, DocumentID: docID}, fmt.Errorf("load document: %w", err)
	}
	if doc.Status == constants.StatusError {
		if err := p.docs.ResetForRetry(ctx, docID); err != nil {
			return Result{Status: StatusError, DocumentID: docID}, fmt.Errorf("reset for retry: %w", err)
		}
		p.logger.Info("document reset for retry", "document_id", docID)
	}
	return p.ProcessDocument(ctx, docID)
}

func (p *Processor) process(ctx context.Context, doc *repository.ProcessedDocument) (Result, error) {
	data, err := p.store.Read(ctx, doc.StoragePath)
	if err != nil {
		return Result{}, fmt.Errorf("read stored document: %w", err)
	}

	if doc.Kind == constants.KindUnknown || len(doc.Extracted) == 0 {
		if res, ok, err := p.classifyAndParse(ctx, doc, data); err != nil || !ok {
			return res, err
		}
	}

	return p.pairAndCreate(ctx, doc, data)
}

// classifyAndParse extracts text, classifies and parses the document,
// persisting kind and payload. ok=false means the document terminated here.
func (p *Processor) classifyAndParse(ctx context.Context, doc *repository.ProcessedDocument, data []byte) (Result, bool, error) {
	text := p.extractor.Text(ctx, data)
	if text == "" {
		msg := "no usable text could be extracted"
		if err := p.docs.MarkError(ctx, doc.ID, msg); err != nil {
			return Result{}, false, err
		}
		p.logger.Warn("document unreadable", "document_id", doc.ID, "filename", doc.Filename)
		return Result{Status: StatusError, DocumentID: doc.ID, Message: &msg}, false, nil
	}

	kind := classify.Classify(doc.Filename, text)
	if kind == constants.KindUnknown {
		msg := "document is neither a case-order nor a certificate"
		if err := p.docs.MarkError(ctx, doc.ID, msg); err != nil {
			return Result{}, false, err
		}
		p.logger.Warn("document unclassified", "document_id", doc.ID, "filename", doc.Filename)
		return Result{Status: StatusError, DocumentID: doc.ID, Message: &msg}, false, nil
	}

	var payload any
	switch kind {
	case constants.KindCaseOrder:
		payload = p.orderParse.Parse(text)
	case constants.KindCertificate:
		payload = p.certParse.Parse(text)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Result{}, false, fmt.Errorf("encode extracted payload: %w", err)
	}
	if err := p.docs.SetClassified(ctx, doc.ID, kind, raw); err != nil {
		return Result{}, false, err
	}
	doc.Kind = kind
	doc.Extracted = raw
	p.logger.Info("document classified", "document_id", doc.ID, "kind", kind)
	return Result{}, true, nil
}

// pairAndCreate looks for the complementary document, claims it, and turns
// the pair into a case. Losing a claim race falls back to another search;
// running out of candidates parks the document in WAITING_FOR_PAIR.
func (p *Processor) pairAndCreate(ctx context.Context, doc *repository.ProcessedDocument, data []byte) (Result, error) {
	// A pair claimed by an earlier run that died before finishing is resumed,
	// not re-searched; the claim already reserved both rows.
	if doc.PairID != nil {
		candidate, err := p.docs.GetByID(ctx, *doc.PairID)
		if err != nil {
			return Result{}, fmt.Errorf("load claimed pair: %w", err)
		}
		return p.createFromPair(ctx, doc, candidate, data)
	}

	for attempt := 0; attempt < claimAttempts; attempt++ {
		candidate, err := p.detector.FindPair(ctx, doc)
		if err != nil {
			return Result{}, fmt.Errorf("find pair: %w", err)
		}
		if candidate == nil {
			break
		}
		claimed, err := p.detector.Claim(ctx, candidate.ID, doc.ID)
		if err != nil {
			return Result{}, fmt.Errorf("claim pair: %w", err)
		}
		if !claimed {
			continue // lost the race; look again
		}
		return p.createFromPair(ctx, doc, candidate, data)
	}

	if err := p.docs.SetWaitingForPair(ctx, doc.ID); err != nil {
		return Result{}, err
	}
	p.logger.Info("document waiting for pair", "document_id", doc.ID, "kind", doc.Kind)
	return Result{Status: StatusWaiting, DocumentID: doc.ID}, nil
}

func (p *Processor) createFromPair(ctx context.Context, doc, candidate *repository.ProcessedDocument, data []byte) (Result, error) {
	candidateData, err := p.store.Read(ctx, candidate.StoragePath)
	if err != nil {
		_ = p.detector.Release(ctx, candidate.ID, doc.ID)
		return Result{}, fmt.Errorf("read paired document: %w", err)
	}

	in := cases.CreationInput{TenantID: doc.TenantID}
	if doc.TenantID == nil {
		in.TenantID = candidate.TenantID
	}

	var orderDoc, certDoc *repository.ProcessedDocument
	var orderData, certData []byte
	if doc.Kind == constants.KindCaseOrder {
		orderDoc, certDoc = doc, candidate
		orderData, certData = data, candidateData
	} else {
		orderDoc, certDoc = candidate, doc
		orderData, certData = candidateData, data
	}
	if err := json.Unmarshal(orderDoc.Extracted, &in.Order); err != nil {
		_ = p.detector.Release(ctx, candidate.ID, doc.ID)
		return Result{}, fmt.Errorf("decode case-order payload: %w", err)
	}
	if err := json.Unmarshal(certDoc.Extracted, &in.Certificate); err != nil {
		_ = p.detector.Release(ctx, candidate.ID, doc.ID)
		return Result{}, fmt.Errorf("decode certificate payload: %w", err)
	}
	in.OrderFilename, in.OrderPDF = orderDoc.Filename, orderData
	in.CertFilename, in.CertPDF = certDoc.Filename, certData

	outcome, err := p.creator.Create(ctx, in)
	if err != nil {
		// The candidate is not at fault; give it back for a later upload.
		_ = p.detector.Release(ctx, candidate.ID, doc.ID)
		return Result{}, err
	}

	pairID := candidate.ID
	if outcome.Duplicate {
		caseNumber := ""
		if in.Order.CaseNumber != nil {
			caseNumber = *in.Order.CaseNumber
		}
		msg := fmt.Sprintf("case %q already exists; pair preserved, no case created", caseNumber)
		if err := p.docs.MarkDuplicatePair(ctx, doc.ID, candidate.ID, msg); err != nil {
			return Result{}, err
		}
		p.logger.Info("duplicate case number",
			"document_id", doc.ID, "paired_document_id", candidate.ID, "case_number", caseNumber)
		return Result{Status: StatusDuplicate, DocumentID: doc.ID, PairedDocumentID: &pairID, Message: &msg}, nil
	}

	caseID := outcome.Case.ID
	if err := p.docs.CompletePair(ctx, doc.ID, candidate.ID, caseID); err != nil {
		return Result{}, err
	}
	p.logger.Info("pair completed",
		"document_id", doc.ID, "paired_document_id", candidate.ID, "case_id", caseID)
	return Result{Status: StatusCompleted, DocumentID: doc.ID, PairedDocumentID: &pairID, CaseID: &caseID}, nil
}

// resultFromDocument reconstructs the exposed result from a terminal row,
// which is what makes reprocessing idempotent.
func resultFromDocument(doc *repository.ProcessedDocument) Result {
	res := Result{
		DocumentID:       doc.ID,
		PairedDocumentID: doc.PairID,
		CaseID:           doc.CaseID,
		Message:          doc.Message,
	}
	switch doc.Status {
	case constants.StatusCompleted:
		res.Status = StatusCompleted
	case constants.StatusDuplicate:
		res.Status = StatusDuplicate
	case constants.StatusError:
		res.Status = StatusError
	default:
		res.Status = StatusWaiting
	}
	return res
}
