package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/core/ports"
)

// ProcessDocumentUseCase owns the extraction pipeline state machine:
// pending -> processing -> reviewed, with rejected as the terminal failure
// state. processing is committed before extraction starts and is visible to
// concurrent readers.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.FieldExtractor
	guard     *inflightGuard
	log       *slog.Logger
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.FieldExtractor,
	log *slog.Logger,
) *ProcessDocumentUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		guard:     newInflightGuard(),
		log:       log,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) ([]domain.ExtractedField, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.StoragePath == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process document",
			fmt.Errorf("document %s has no stored file", documentID))
	}

	release, ok := uc.guard.tryAcquire(documentID)
	if !ok {
		return nil, domain.WrapError(domain.ErrConflict, "process document",
			fmt.Errorf("document %s is already being processed", documentID))
	}
	defer release()

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}

	fields, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		uc.markRejected(ctx, documentID, err)
		return nil, err
	}

	if err := uc.repo.SaveExtraction(ctx, documentID, fields); err != nil {
		uc.markRejected(ctx, documentID, err)
		return nil, fmt.Errorf("save extraction: %w", err)
	}

	return fields, nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

// markRejected is the best-effort compensating write on the failure path.
// It must land even when the run died to cancellation or an expired deadline,
// so the caller's context is detached once it is no longer live. A secondary
// failure is logged, not returned, to avoid masking the cause.
func (uc *ProcessDocumentUseCase) markRejected(ctx context.Context, documentID string, cause error) {
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusRejected); err != nil {
		uc.log.Error("mark_rejected_failed",
			"document_id", documentID,
			"cause", cause,
			"error", err,
		)
	}
}
