package usecase

import (
	"context"
	"fmt"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/core/ports"
)

// ReviewDocumentUseCase applies human reviewer decisions. Every transition
// appends one immutable audit row in the same transaction as the status
// update; a missing document leaves no orphan review.
type ReviewDocumentUseCase struct {
	repo     ports.DocumentRepository
	errRepo  ports.ErrorRepository
	reviewer string
}

func NewReviewDocumentUseCase(
	repo ports.DocumentRepository,
	errRepo ports.ErrorRepository,
	reviewer string,
) *ReviewDocumentUseCase {
	if reviewer == "" {
		reviewer = "system"
	}
	return &ReviewDocumentUseCase{
		repo:     repo,
		errRepo:  errRepo,
		reviewer: reviewer,
	}
}

func (uc *ReviewDocumentUseCase) SetStatus(ctx context.Context, documentID string, status domain.DocumentStatus, notes string) error {
	if !domain.ReviewableStatus(status) {
		return domain.WrapError(domain.ErrInvalidInput, "set status",
			fmt.Errorf("status %q is not a reviewer decision", status))
	}
	if err := uc.repo.SetReviewStatus(ctx, documentID, status, notes, uc.reviewer); err != nil {
		return fmt.Errorf("set review status: %w", err)
	}
	return nil
}

// ResolveError marks one detected error resolved. Resolving an already
// resolved error succeeds; is_resolved only ever moves false -> true.
func (uc *ReviewDocumentUseCase) ResolveError(ctx context.Context, errorID string) error {
	if err := uc.errRepo.Resolve(ctx, errorID); err != nil {
		return fmt.Errorf("resolve document error: %w", err)
	}
	return nil
}
