package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/core/ports"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	project_name TEXT NOT NULL,
	installer_company TEXT NOT NULL,
	document_type TEXT NOT NULL,
	status TEXT NOT NULL,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ,
	reviewed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_fields (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	field_name TEXT NOT NULL,
	field_value TEXT,
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	validation_notes TEXT NOT NULL DEFAULT '',
	is_validated BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_errors (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	field_name TEXT,
	error_message TEXT NOT NULL,
	suggested_fix TEXT NOT NULL,
	severity_level TEXT NOT NULL,
	error_type TEXT NOT NULL,
	is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_reviews (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	review_status TEXT NOT NULL,
	review_notes TEXT NOT NULL DEFAULT '',
	reviewer_name TEXT NOT NULL,
	reviewed_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at DESC);
CREATE INDEX IF NOT EXISTS idx_document_fields_document ON document_fields(document_id);
CREATE INDEX IF NOT EXISTS idx_document_errors_document ON document_errors(document_id);
CREATE INDEX IF NOT EXISTS idx_document_reviews_document ON document_reviews(document_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const documentColumns = `id, project_name, installer_company, document_type, status, filename, mime_type, storage_path, uploaded_at, processed_at, reviewed_at, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		doc.ID, doc.ProjectName, doc.InstallerCompany, string(doc.DocumentType), string(doc.Status),
		doc.Filename, doc.MimeType, doc.StoragePath, doc.UploadedAt, doc.ProcessedAt, doc.ReviewedAt,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Document, int, error) {
	where, args := buildListWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM documents` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	pageQuery := `SELECT ` + documentColumns + ` FROM documents` + where +
		fmt.Sprintf(" ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, pageQuery, append(args, filter.PageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate documents: %w", err)
	}
	return out, total, nil
}

func buildListWhere(filter ports.ListFilter) (string, []any) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.DocumentType != "" {
		args = append(args, string(filter.DocumentType))
		clauses = append(clauses, fmt.Sprintf("document_type = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		clauses = append(clauses, fmt.Sprintf("(project_name ILIKE $%d OR installer_company ILIKE $%d)", len(args), len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	now := time.Now().UTC()
	var processedAt any
	if status == domain.StatusProcessing {
		processedAt = now
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, processed_at = COALESCE($3, processed_at), updated_at = $4
WHERE id = $1
`, id, string(status), processedAt, now)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document status rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
	}
	return nil
}

// SaveExtraction replaces the field set and advances the document to reviewed
// in a single transaction. A crash mid-way leaves the previous fields intact.
func (r *DocumentRepository) SaveExtraction(ctx context.Context, id string, fields []domain.ExtractedField) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin extraction tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_fields WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("clear document fields: %w", err)
	}

	now := time.Now().UTC()
	for _, field := range fields {
		fieldID := field.ID
		if fieldID == "" {
			fieldID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO document_fields (id, document_id, field_name, field_value, confidence_score, validation_notes, is_validated, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, fieldID, id, field.FieldName, field.FieldValue, field.ConfidenceScore, field.ValidationNotes, field.IsValidated, now, now)
		if err != nil {
			return fmt.Errorf("insert document field: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `
UPDATE documents
SET status = $2, reviewed_at = $3, updated_at = $3
WHERE id = $1
`, id, string(domain.StatusReviewed), now)
	if err != nil {
		return fmt.Errorf("mark document reviewed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark document reviewed rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit extraction tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListFields(ctx context.Context, documentID string) ([]domain.ExtractedField, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, field_name, field_value, confidence_score, validation_notes, is_validated, created_at, updated_at
FROM document_fields
WHERE document_id = $1
ORDER BY field_name ASC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document fields: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ExtractedField, 0)
	for rows.Next() {
		var field domain.ExtractedField
		err := rows.Scan(
			&field.ID, &field.DocumentID, &field.FieldName, &field.FieldValue,
			&field.ConfidenceScore, &field.ValidationNotes, &field.IsValidated,
			&field.CreatedAt, &field.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document field: %w", err)
		}
		out = append(out, field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document fields: %w", err)
	}
	return out, nil
}

// SetReviewStatus applies a reviewer decision and appends the audit row in
// one transaction. A missing document rolls back without an orphan review.
func (r *DocumentRepository) SetReviewStatus(ctx context.Context, id string, status domain.DocumentStatus, notes, reviewer string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
UPDATE documents
SET status = $2, reviewed_at = $3, updated_at = $3
WHERE id = $1
`, id, string(status), now)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review status rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO document_reviews (id, document_id, review_status, review_notes, reviewer_name, reviewed_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, uuid.NewString(), id, string(status), notes, reviewer, now, now)
	if err != nil {
		return fmt.Errorf("insert document review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListReviews(ctx context.Context, documentID string) ([]domain.DocumentReview, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, review_status, review_notes, reviewer_name, reviewed_at, created_at
FROM document_reviews
WHERE document_id = $1
ORDER BY reviewed_at DESC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document reviews: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentReview, 0)
	for rows.Next() {
		var review domain.DocumentReview
		var status string
		err := rows.Scan(
			&review.ID, &review.DocumentID, &status, &review.ReviewNotes,
			&review.ReviewerName, &review.ReviewedAt, &review.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document review: %w", err)
		}
		review.ReviewStatus = domain.DocumentStatus(status)
		out = append(out, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document reviews: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) StatusCounts(ctx context.Context) (map[domain.DocumentStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT status, COUNT(*)
FROM documents
GROUP BY status
`)
	if err != nil {
		return nil, fmt.Errorf("count documents by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.DocumentStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.DocumentStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func (r *DocumentRepository) RecentActivity(ctx context.Context, limit int) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
ORDER BY updated_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0, limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent documents: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var doc domain.Document
	var docType, status string
	err := row.Scan(
		&doc.ID, &doc.ProjectName, &doc.InstallerCompany, &docType, &status,
		&doc.Filename, &doc.MimeType, &doc.StoragePath, &doc.UploadedAt,
		&doc.ProcessedAt, &doc.ReviewedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return domain.Document{}, err
	}
	doc.DocumentType = domain.DocumentType(docType)
	doc.Status = domain.DocumentStatus(status)
	return doc, nil
}
