package app

import (
	"context"
	"fmt"
	"time"

	"reviewdeck/internal/domain"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// QueryService answers the review listing contract. Listing responses are
// deliberately uncached: the browser side disables caching on them and the
// filter space is too wide for useful keys.
type QueryService struct {
	repo    domain.ReviewRepository
	timeout time.Duration
}

func NewQueryService(r domain.ReviewRepository, timeout time.Duration) *QueryService {
	return &QueryService{repo: r, timeout: timeout}
}

// ListReviews clamps pagination, then delegates predicate building to the
// store. Total counts all matches before the page is cut.
func (s *QueryService) ListReviews(ctx context.Context, f domain.ListFilter) (domain.ReviewPage, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Skip < 0 {
		f.Skip = 0
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	page, err := s.repo.ListReviews(ctx, f)
	if err != nil {
		return domain.ReviewPage{}, fmt.Errorf("list reviews: %w", err)
	}
	if page.Items == nil {
		page.Items = []domain.ReviewRecord{}
	}
	return page, nil
}
