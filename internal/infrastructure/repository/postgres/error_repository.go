package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greenvolt/docverify/internal/core/domain"
)

type ErrorRepository struct {
	db *sql.DB
}

func NewErrorRepository(db *sql.DB) *ErrorRepository {
	return &ErrorRepository{db: db}
}

// InsertErrors writes the detected errors in one transaction and returns them
// with generated ids and timestamps filled in.
func (r *ErrorRepository) InsertErrors(ctx context.Context, documentID string, errs []domain.DocumentError) ([]domain.DocumentError, error) {
	if len(errs) == 0 {
		return []domain.DocumentError{}, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin errors tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	out := make([]domain.DocumentError, 0, len(errs))
	for _, e := range errs {
		e.ID = uuid.NewString()
		e.DocumentID = documentID
		e.IsResolved = false
		e.CreatedAt = now
		e.UpdatedAt = now

		_, err := tx.ExecContext(ctx, `
INSERT INTO document_errors (id, document_id, field_name, error_message, suggested_fix, severity_level, error_type, is_resolved, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, e.ID, e.DocumentID, e.FieldName, e.ErrorMessage, e.SuggestedFix, string(e.SeverityLevel), e.ErrorType, e.IsResolved, e.CreatedAt, e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert document error: %w", err)
		}
		out = append(out, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit errors tx: %w", err)
	}
	return out, nil
}

func (r *ErrorRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentError, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, field_name, error_message, suggested_fix, severity_level, error_type, is_resolved, created_at, updated_at
FROM document_errors
WHERE document_id = $1
ORDER BY created_at ASC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document errors: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentError, 0)
	for rows.Next() {
		var e domain.DocumentError
		var severity string
		err := rows.Scan(
			&e.ID, &e.DocumentID, &e.FieldName, &e.ErrorMessage, &e.SuggestedFix,
			&severity, &e.ErrorType, &e.IsResolved, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document error: %w", err)
		}
		e.SeverityLevel = domain.SeverityLevel(severity)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document errors: %w", err)
	}
	return out, nil
}

// Resolve marks an error resolved. Resolving an already-resolved error is a
// no-op success, only an unknown id is reported.
func (r *ErrorRepository) Resolve(ctx context.Context, errorID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE document_errors
SET is_resolved = TRUE, updated_at = $2
WHERE id = $1
`, errorID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("resolve document error: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve document error rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("error %s: %w", errorID, domain.ErrErrorNotFound)
	}
	return nil
}

func (r *ErrorRepository) CountUnresolved(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM document_errors
WHERE document_id = $1 AND is_resolved = FALSE
`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unresolved errors: %w", err)
	}
	return count, nil
}
