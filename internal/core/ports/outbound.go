package ports

import (
	"context"
	"io"

	"github.com/greenvolt/docverify/internal/core/domain"
)

// ListFilter narrows document listings. Zero values mean "no filter".
type ListFilter struct {
	Page         int
	PageSize     int
	Status       domain.DocumentStatus
	DocumentType domain.DocumentType
	Search       string
}

// DocumentRepository persists the document aggregate: the document row, its
// extracted fields, and its review audit trail.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Document, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error

	// SaveExtraction replaces the document's field set and advances it to
	// reviewed in one transaction. Prior fields are discarded, not merged.
	SaveExtraction(ctx context.Context, id string, fields []domain.ExtractedField) error
	ListFields(ctx context.Context, documentID string) ([]domain.ExtractedField, error)

	// SetReviewStatus updates document status/reviewedAt and appends the audit
	// review row in one transaction. A missing document writes nothing.
	SetReviewStatus(ctx context.Context, id string, status domain.DocumentStatus, notes, reviewer string) error
	ListReviews(ctx context.Context, documentID string) ([]domain.DocumentReview, error)

	StatusCounts(ctx context.Context) (map[domain.DocumentStatus]int, error)
	RecentActivity(ctx context.Context, limit int) ([]domain.Document, error)
}

// ErrorRepository persists detected compliance errors.
type ErrorRepository interface {
	InsertErrors(ctx context.Context, documentID string, errs []domain.DocumentError) ([]domain.DocumentError, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentError, error)
	Resolve(ctx context.Context, errorID string) error
	CountUnresolved(ctx context.Context, documentID string) (int, error)
}

// FileStore stores and resolves uploaded document files.
type FileStore interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries document-uploaded events to the processing worker.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// FieldExtractor runs the multimodal extraction pass over a stored document.
type FieldExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]domain.ExtractedField, error)
}

// ErrorAnalyzer runs the compliance-analysis pass over extracted fields.
type ErrorAnalyzer interface {
	Analyze(ctx context.Context, docType domain.DocumentType, fields []domain.ExtractedField) ([]domain.DocumentError, error)
}
