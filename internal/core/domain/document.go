package domain

import "time"

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusReviewed   DocumentStatus = "reviewed"
	StatusApproved   DocumentStatus = "approved"
	StatusRejected   DocumentStatus = "rejected"
)

type DocumentType string

const (
	TypeIdentityDocument  DocumentType = "identity_document"
	TypeRebateForm        DocumentType = "rebate_form"
	TypeLoanDocument      DocumentType = "loan_document"
	TypeInstallationPhoto DocumentType = "installation_photo"
)

// DocumentTypes is the closed set of accepted document types.
var DocumentTypes = []DocumentType{
	TypeIdentityDocument,
	TypeRebateForm,
	TypeLoanDocument,
	TypeInstallationPhoto,
}

func ValidDocumentType(t DocumentType) bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Document struct {
	ID               string         `json:"id"`
	ProjectName      string         `json:"project_name"`
	InstallerCompany string         `json:"installer_company"`
	DocumentType     DocumentType   `json:"document_type"`
	Status           DocumentStatus `json:"status"`
	Filename         string         `json:"filename"`
	MimeType         string         `json:"mime_type"`
	StoragePath      string         `json:"storage_path"`
	UploadedAt       time.Time      `json:"uploaded_at"`
	ProcessedAt      *time.Time     `json:"processed_at,omitempty"`
	ReviewedAt       *time.Time     `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ExtractedField is one field/value pair pulled from a document by the
// inference model. FieldValue is nil when the model could not find the value.
type ExtractedField struct {
	ID              string    `json:"id,omitempty"`
	DocumentID      string    `json:"document_id,omitempty"`
	FieldName       string    `json:"field_name"`
	FieldValue      *string   `json:"field_value"`
	ConfidenceScore float64   `json:"confidence_score"`
	ValidationNotes string    `json:"validation_notes"`
	IsValidated     bool      `json:"is_validated"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

type SeverityLevel string

const (
	SeverityCritical SeverityLevel = "critical"
	SeverityHigh     SeverityLevel = "high"
	SeverityMedium   SeverityLevel = "medium"
	SeverityLow      SeverityLevel = "low"
)

// ErrorTypeAIAnalysis tags errors produced by the compliance-analysis run.
const ErrorTypeAIAnalysis = "ai_analysis"

// DocumentError is one compliance issue detected for a document.
// FieldName is nil for document-level issues.
type DocumentError struct {
	ID            string        `json:"id,omitempty"`
	DocumentID    string        `json:"document_id,omitempty"`
	FieldName     *string       `json:"field_name"`
	ErrorMessage  string        `json:"error_message"`
	SuggestedFix  string        `json:"suggested_fix"`
	SeverityLevel SeverityLevel `json:"severity_level"`
	ErrorType     string        `json:"error_type"`
	IsResolved    bool          `json:"is_resolved"`
	CreatedAt     time.Time     `json:"created_at,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at,omitempty"`
}

// DocumentReview is an append-only audit record of a human decision.
// Reviews are immutable once written and survive later status changes.
type DocumentReview struct {
	ID           string         `json:"id"`
	DocumentID   string         `json:"document_id"`
	ReviewStatus DocumentStatus `json:"review_status"`
	ReviewNotes  string         `json:"review_notes"`
	ReviewerName string         `json:"reviewer_name"`
	ReviewedAt   time.Time      `json:"reviewed_at"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ReviewableStatus reports whether a status may be applied by a human
// reviewer through the status transition handler.
func ReviewableStatus(s DocumentStatus) bool {
	switch s {
	case StatusApproved, StatusRejected, StatusReviewed:
		return true
	default:
		return false
	}
}

// NormalizeSeverity maps free-form model output onto the closed severity set.
// Unknown values land on medium rather than being dropped.
func NormalizeSeverity(raw string) SeverityLevel {
	switch SeverityLevel(raw) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return SeverityLevel(raw)
	default:
		return SeverityMedium
	}
}
