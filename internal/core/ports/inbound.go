package ports

import (
	"context"
	"io"

	"github.com/greenvolt/docverify/internal/core/domain"
)

// UploadRequest carries the multipart upload metadata.
type UploadRequest struct {
	Filename         string
	MimeType         string
	ProjectName      string
	InstallerCompany string
	DocumentType     domain.DocumentType
}

// DocumentUploader is the inbound contract for document intake.
type DocumentUploader interface {
	Upload(ctx context.Context, req UploadRequest, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for the extraction pipeline.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) ([]domain.ExtractedField, error)
}

// DocumentErrorAnalyzer is the inbound contract for the error-analysis run.
type DocumentErrorAnalyzer interface {
	AnalyzeByID(ctx context.Context, documentID string) ([]domain.DocumentError, error)
}

// DocumentReviewer applies human review decisions and error resolutions.
type DocumentReviewer interface {
	SetStatus(ctx context.Context, documentID string, status domain.DocumentStatus, notes string) error
	ResolveError(ctx context.Context, errorID string) error
}

// DocumentDetails bundles one document with its dependent rows.
type DocumentDetails struct {
	Document *domain.Document        `json:"document"`
	Fields   []domain.ExtractedField `json:"fields"`
	Errors   []domain.DocumentError  `json:"errors"`
	Reviews  []domain.DocumentReview `json:"reviews"`
}

// Analytics is the dashboard read model.
type Analytics struct {
	StatusCounts   map[domain.DocumentStatus]int `json:"status_counts"`
	RecentActivity []domain.Document             `json:"recent_activity"`
}

// DocumentQueryService is the inbound read model over persisted state.
type DocumentQueryService interface {
	List(ctx context.Context, filter ListFilter) ([]domain.Document, int, error)
	Details(ctx context.Context, documentID string) (*DocumentDetails, error)
	Analytics(ctx context.Context) (*Analytics, error)
}
