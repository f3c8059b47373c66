package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/core/ports"
)

// UploadDocumentUseCase persists a pending document and notifies the worker.
// A failed publish is non-fatal: the document stays pending and can be
// processed manually.
type UploadDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.FileStore
	queue   ports.MessageQueue
	log     *slog.Logger
}

func NewUploadDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.FileStore,
	queue ports.MessageQueue,
	log *slog.Logger,
) *UploadDocumentUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &UploadDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		log:     log,
	}
}

func (uc *UploadDocumentUseCase) Upload(ctx context.Context, req ports.UploadRequest, body io.Reader) (*domain.Document, error) {
	if err := validateUpload(req); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(req.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "save uploaded file", err)
	}

	doc := &domain.Document{
		ID:               id,
		ProjectName:      req.ProjectName,
		InstallerCompany: req.InstallerCompany,
		DocumentType:     req.DocumentType,
		Status:           domain.StatusPending,
		Filename:         req.Filename,
		MimeType:         req.MimeType,
		StoragePath:      storageKey,
		UploadedAt:       now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := uc.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
		uc.log.Warn("publish_uploaded_event_failed",
			"document_id", doc.ID,
			"error", err,
		)
	}

	return doc, nil
}

func validateUpload(req ports.UploadRequest) error {
	if strings.TrimSpace(req.ProjectName) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("project name is required"))
	}
	if strings.TrimSpace(req.InstallerCompany) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("installer company is required"))
	}
	if !domain.ValidDocumentType(req.DocumentType) {
		return domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("unknown document type %q", req.DocumentType))
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
