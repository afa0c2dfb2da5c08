package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewdeck/internal/domain"
)

func TestListReviews_ClampsPagination(t *testing.T) {
	cases := []struct {
		name      string
		limit     int
		skip      int
		wantLimit int
		wantSkip  int
	}{
		{"defaults applied", 0, 0, 10, 0},
		{"negative limit", -5, 0, 10, 0},
		{"cap at max", 500, 0, 50, 0},
		{"negative skip", 20, -3, 20, 0},
		{"passthrough", 25, 40, 25, 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			svc := NewQueryService(repo, time.Second)

			_, err := svc.ListReviews(context.Background(), domain.ListFilter{Limit: tc.limit, Skip: tc.skip})
			require.NoError(t, err)
			assert.Equal(t, tc.wantLimit, repo.lastList.Limit)
			assert.Equal(t, tc.wantSkip, repo.lastList.Skip)
		})
	}
}

func TestListReviews_EmptyPageIsNotNil(t *testing.T) {
	repo := newFakeRepo()
	repo.listPage = domain.ReviewPage{Items: nil, Total: 0}
	svc := NewQueryService(repo, 0)

	page, err := svc.ListReviews(context.Background(), domain.ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestListReviews_WrapsStoreError(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("connection refused")
	svc := NewQueryService(repo, time.Second)

	_, err := svc.ListReviews(context.Background(), domain.ListFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list reviews")
	assert.ErrorIs(t, err, repo.listErr)
}

func TestListReviews_TotalCoversAllMatches(t *testing.T) {
	repo := newFakeRepo()
	repo.listPage = domain.ReviewPage{
		Items: []domain.ReviewRecord{{ReviewID: "r-1"}, {ReviewID: "r-2"}},
		Total: 12,
	}
	svc := NewQueryService(repo, 0)

	page, err := svc.ListReviews(context.Background(), domain.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 12, page.Total)
	assert.GreaterOrEqual(t, page.Total, len(page.Items))
}
