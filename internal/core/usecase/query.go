package usecase

import (
	"context"
	"fmt"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/core/ports"
)

const (
	defaultPageSize    = 10
	maxPageSize        = 100
	recentActivitySize = 5
)

// QueryUseCase is the read model over persisted pipeline state. Listings may
// observe documents transiently in processing; that is expected.
type QueryUseCase struct {
	repo    ports.DocumentRepository
	errRepo ports.ErrorRepository
}

func NewQueryUseCase(repo ports.DocumentRepository, errRepo ports.ErrorRepository) *QueryUseCase {
	return &QueryUseCase{repo: repo, errRepo: errRepo}
}

func (uc *QueryUseCase) List(ctx context.Context, filter ports.ListFilter) ([]domain.Document, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	docs, total, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

func (uc *QueryUseCase) Details(ctx context.Context, documentID string) (*ports.DocumentDetails, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	fields, err := uc.repo.ListFields(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list extracted fields: %w", err)
	}
	docErrors, err := uc.errRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document errors: %w", err)
	}
	reviews, err := uc.repo.ListReviews(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document reviews: %w", err)
	}
	return &ports.DocumentDetails{
		Document: doc,
		Fields:   fields,
		Errors:   docErrors,
		Reviews:  reviews,
	}, nil
}

func (uc *QueryUseCase) Analytics(ctx context.Context) (*ports.Analytics, error) {
	counts, err := uc.repo.StatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	recent, err := uc.repo.RecentActivity(ctx, recentActivitySize)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return &ports.Analytics{
		StatusCounts:   counts,
		RecentActivity: recent,
	}, nil
}
