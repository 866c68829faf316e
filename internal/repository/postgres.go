package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/common"
)

const docColumns = `id, filename, storage_path, kind, status, pair_id, tenant_id, case_id, extracted, message, created_at, updated_at`

// PostgresDocumentRepository stores ProcessedDocument rows in Postgres.
// The pairing claim is a single conditional UPDATE, so concurrency safety
// comes from the database rather than from any in-process lock.
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresDocumentRepository(pool *pgxpool.Pool, logger *slog.Logger) *PostgresDocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDocumentRepository{pool: pool, logger: logger}
}

func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *ProcessedDocument) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.UpdatedAt = doc.CreatedAt
	_, err := r.pool.Exec(ctx, `
		INSERT INTO processed_documents (id, filename, storage_path, kind, status, tenant_id, extracted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		doc.ID, doc.Filename, doc.StoragePath, string(doc.Kind), string(doc.Status), doc.TenantID, doc.Extracted, doc.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create processed document", "document_id", doc.ID, "error", err)
		return err
	}
	return nil
}

func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*ProcessedDocument, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+docColumns+` FROM processed_documents WHERE id = $1`, id)
	return scanDocument(row)
}

func (r *PostgresDocumentRepository) SetClassified(ctx context.Context, id uuid.UUID, kind constants.DocKind, extracted json.RawMessage) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE processed_documents SET kind = $2, extracted = $3, updated_at = now() WHERE id = $1`,
		id, string(kind), extracted,
	)
	if err != nil {
		r.logger.Error("failed to set classification", "document_id", id, "error", err)
	}
	return err
}

func (r *PostgresDocumentRepository) FindPairCandidate(ctx context.Context, q PairQuery) (*ProcessedDocument, error) {
	sql := `SELECT ` + docColumns + ` FROM processed_documents
		WHERE id <> $1 AND kind = $2
		  AND status IN ('PENDING', 'WAITING_FOR_PAIR')
		  AND pair_id IS NULL
		  AND ($3::uuid IS NULL OR tenant_id = $3)
		  AND ($4::timestamptz IS NULL OR created_at BETWEEN $4::timestamptz - $5::interval AND $4::timestamptz + $5::interval)
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var half *time.Duration
	if q.Center != nil && q.Window > 0 {
		h := q.Window / 2
		half = &h
	}
	var center *time.Time
	if half != nil {
		center = q.Center
	}

	row := r.pool.QueryRow(ctx, sql, q.ExcludeID, string(q.Kind), q.TenantID, center, half)
	doc, err := scanDocument(row)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

// ClaimForPairing links both rows in one transaction. Rows are updated in
// ascending id order so two concurrent claims touching the same documents
// lock them in the same order and cannot deadlock; a conditional update that
// touches zero rows means the claim was lost and the whole claim rolls back.
func (r *PostgresDocumentRepository) ClaimForPairing(ctx context.Context, candidateID, withID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	first, second := candidateID, withID
	if second.String() < first.String() {
		first, second = second, first
	}
	const stmt = `UPDATE processed_documents SET pair_id = $2, updated_at = now()
		WHERE id = $1 AND status IN ('PENDING', 'WAITING_FOR_PAIR') AND pair_id IS NULL`
	for _, pair := range [][2]uuid.UUID{{first, second}, {second, first}} {
		tag, err := tx.Exec(ctx, stmt, pair[0], pair[1])
		if err != nil {
			r.logger.Error("pairing claim failed", "candidate_id", candidateID, "error", err)
			return false, err
		}
		if tag.RowsAffected() != 1 {
			return false, nil
		}
	}
	return true, tx.Commit(ctx)
}

func (r *PostgresDocumentRepository) ReleaseClaim(ctx context.Context, candidateID, withID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE processed_documents SET pair_id = NULL, updated_at = now()
		WHERE ((id = $1 AND pair_id = $2) OR (id = $2 AND pair_id = $1))
		  AND status IN ('PENDING', 'WAITING_FOR_PAIR')`,
		candidateID, withID,
	)
	if err != nil {
		r.logger.Error("claim release failed", "candidate_id", candidateID, "error", err)
	}
	return err
}

func (r *PostgresDocumentRepository) CompletePair(ctx context.Context, docID, pairID, caseID uuid.UUID) error {
	return r.finishPair(ctx, docID, pairID, &caseID, constants.StatusCompleted, nil)
}

func (r *PostgresDocumentRepository) MarkDuplicatePair(ctx context.Context, docID, pairID uuid.UUID, message string) error {
	return r.finishPair(ctx, docID, pairID, nil, constants.StatusDuplicate, &message)
}

// finishPair moves both documents of a pair to the same terminal state in
// one transaction, setting mutual pair links.
func (r *PostgresDocumentRepository) finishPair(ctx context.Context, docID, pairID uuid.UUID, caseID *uuid.UUID, status constants.DocStatus, message *string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const stmt = `UPDATE processed_documents
		SET status = $2, pair_id = $3, case_id = $4, message = $5, updated_at = now()
		WHERE id = $1`
	if _, err := tx.Exec(ctx, stmt, docID, string(status), pairID, caseID, message); err != nil {
		r.logger.Error("pair finish failed", "document_id", docID, "error", err)
		return err
	}
	if _, err := tx.Exec(ctx, stmt, pairID, string(status), docID, caseID, message); err != nil {
		r.logger.Error("pair finish failed", "document_id", pairID, "error", err)
		return err
	}
	return tx.Commit(ctx)
}

// SetWaitingForPair is conditional: a document claimed or completed by a
// concurrent processor in the meantime is left alone.
func (r *PostgresDocumentRepository) SetWaitingForPair(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE processed_documents SET status = 'WAITING_FOR_PAIR', updated_at = now()
		WHERE id = $1 AND status IN ('PENDING', 'WAITING_FOR_PAIR') AND pair_id IS NULL`, id)
	if err != nil {
		r.logger.Error("failed to mark waiting for pair", "document_id", id, "error", err)
	}
	return err
}

func (r *PostgresDocumentRepository) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE processed_documents SET status = 'ERROR', message = $2, updated_at = now() WHERE id = $1`,
		id, message)
	if err != nil {
		r.logger.Error("failed to mark document error", "document_id", id, "error", err)
	}
	return err
}

func (r *PostgresDocumentRepository) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE processed_documents SET status = 'PENDING', message = NULL, updated_at = now()
		WHERE id = $1 AND status = 'ERROR'`, id)
	if err != nil {
		r.logger.Error("failed to reset document for retry", "document_id", id, "error", err)
	}
	return err
}

func (r *PostgresDocumentRepository) ListByStatus(ctx context.Context, statuses []constants.DocStatus, limit int) ([]*ProcessedDocument, error) {
	vals := make([]string, len(statuses))
	for i, s := range statuses {
		vals[i] = string(s)
	}
	sql := `SELECT ` + docColumns + ` FROM processed_documents WHERE status = ANY($1) ORDER BY created_at ASC`
	args := []any{vals}
	if limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		r.logger.Error("failed to list documents by status", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*ProcessedDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row) (*ProcessedDocument, error) {
	var doc ProcessedDocument
	var kind, status string
	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.StoragePath, &kind, &status,
		&doc.PairID, &doc.TenantID, &doc.CaseID, &doc.Extracted, &doc.Message,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Kind = constants.DocKind(kind)
	doc.Status = constants.DocStatus(status)
	return &doc, nil
}

// PostgresCaseRepository stores cases; the unique index on (tenant, number)
// turns a collision into ErrCaseNumberExists.
type PostgresCaseRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresCaseRepository(pool *pgxpool.Pool, logger *slog.Logger) *PostgresCaseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCaseRepository{pool: pool, logger: logger}
}

func (r *PostgresCaseRepository) Create(ctx context.Context, c *Case) (*Case, error) {
	cp := *c
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	addresses, err := json.Marshal(cp.Addresses)
	if err != nil {
		return nil, err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO cases (id, case_number, tenant_id, plate, brand, model, year, color, vin, vehicle_type, fuel_type,
		                   owner_rut, owner_name, addresses, legal_context, order_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		cp.ID, cp.CaseNumber, cp.TenantID, cp.Plate, cp.Brand, cp.Model, cp.Year, cp.Color, cp.VIN,
		cp.VehicleType, cp.FuelType, cp.OwnerRUT, cp.OwnerName, addresses, cp.LegalContext, cp.OrderDate, cp.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrCaseNumberExists
		}
		r.logger.Error("failed to create case", "case_number", cp.CaseNumber, "error", err)
		return nil, err
	}
	return &cp, nil
}

func (r *PostgresCaseRepository) GetByNumber(ctx context.Context, tenantID *uuid.UUID, number string) (*Case, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, case_number, tenant_id, plate, brand, model, year, color, vin, vehicle_type, fuel_type,
		       owner_rut, owner_name, addresses, legal_context, order_date, created_at
		FROM cases
		WHERE case_number = $2
		  AND COALESCE(tenant_id, '00000000-0000-0000-0000-000000000000'::uuid) =
		      COALESCE($1::uuid, '00000000-0000-0000-0000-000000000000'::uuid)`,
		tenantID, number)

	var c Case
	var addresses []byte
	err := row.Scan(
		&c.ID, &c.CaseNumber, &c.TenantID, &c.Plate, &c.Brand, &c.Model, &c.Year, &c.Color, &c.VIN,
		&c.VehicleType, &c.FuelType, &c.OwnerRUT, &c.OwnerName, &addresses, &c.LegalContext, &c.OrderDate, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(addresses) > 0 {
		_ = json.Unmarshal(addresses, &c.Addresses)
	}
	return &c, nil
}

// PostgresAttachmentRepository stores attachment rows.
type PostgresAttachmentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresAttachmentRepository(pool *pgxpool.Pool, logger *slog.Logger) *PostgresAttachmentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAttachmentRepository{pool: pool, logger: logger}
}

func (r *PostgresAttachmentRepository) Attach(ctx context.Context, a *Attachment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attachments (id, case_id, filename, storage_path, mime_type, tag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.CaseID, a.Filename, a.StoragePath, a.MIMEType, a.Tag, a.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to attach file to case", "case_id", a.CaseID, "tag", a.Tag, "error", err)
	}
	return err
}

func (r *PostgresAttachmentRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, case_id, filename, storage_path, mime_type, tag, created_at
		FROM attachments WHERE case_id = $1 ORDER BY created_at ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.CaseID, &a.Filename, &a.StoragePath, &a.MIMEType, &a.Tag, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
