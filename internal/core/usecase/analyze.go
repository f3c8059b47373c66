package usecase

import (
	"context"
	"fmt"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/core/ports"
)

// AnalyzeErrorsUseCase runs the compliance-analysis pass over a document's
// persisted field set. It is a separate operation from processing: the upload
// worker chains it automatically, the manual re-process endpoint does not.
type AnalyzeErrorsUseCase struct {
	repo     ports.DocumentRepository
	errRepo  ports.ErrorRepository
	analyzer ports.ErrorAnalyzer
}

func NewAnalyzeErrorsUseCase(
	repo ports.DocumentRepository,
	errRepo ports.ErrorRepository,
	analyzer ports.ErrorAnalyzer,
) *AnalyzeErrorsUseCase {
	return &AnalyzeErrorsUseCase{
		repo:     repo,
		errRepo:  errRepo,
		analyzer: analyzer,
	}
}

func (uc *AnalyzeErrorsUseCase) AnalyzeByID(ctx context.Context, documentID string) ([]domain.DocumentError, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	fields, err := uc.repo.ListFields(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list extracted fields: %w", err)
	}

	detected, err := uc.analyzer.Analyze(ctx, doc.DocumentType, fields)
	if err != nil {
		return nil, fmt.Errorf("analyze document errors: %w", err)
	}

	inserted, err := uc.errRepo.InsertErrors(ctx, documentID, detected)
	if err != nil {
		return nil, fmt.Errorf("insert document errors: %w", err)
	}
	return inserted, nil
}
