package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewdeck/internal/domain"
)

func validBatch() BatchPayload {
	return BatchPayload{
		BusinessProfileID:   "123",
		BusinessProfileName: "Cafe Central",
		ExecutionTimestamp:  "2026-03-01T00:00:00Z",
		Reviews: []IncomingReview{
			{ReviewID: "r-1", StarRating: "FIVE", Comment: "great", CreateTime: "2026-02-28T10:00:00Z"},
			{ReviewID: "r-2", StarRating: "TWO", Comment: "meh", CreateTime: "2026-02-27T10:00:00Z"},
		},
	}
}

func TestIngestBatch(t *testing.T) {
	repo := newFakeRepo()
	svc := NewIngestionService(nil, repo, newFakeCache(), nil)

	count, err := svc.IngestBatch(context.Background(), validBatch())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, repo.reviews, 2)

	p, ok := repo.profiles["123"]
	require.True(t, ok)
	assert.Equal(t, "Cafe Central", p.Name)
	assert.False(t, p.ExecutionTimestamp.IsZero())
}

func TestIngestBatch_SkipsDuplicates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewIngestionService(nil, repo, newFakeCache(), nil)

	count, err := svc.IngestBatch(context.Background(), validBatch())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// replay the same batch plus one new review
	batch := validBatch()
	batch.Reviews = append(batch.Reviews, IncomingReview{ReviewID: "r-3", StarRating: "FOUR"})
	count, err = svc.IngestBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, repo.reviews, 3)
}

func TestIngestBatch_InvalidRecordsAreSkipped(t *testing.T) {
	repo := newFakeRepo()
	svc := NewIngestionService(nil, repo, newFakeCache(), nil)

	batch := validBatch()
	batch.Reviews = append(batch.Reviews,
		IncomingReview{ReviewID: "", StarRating: "FIVE"},
		IncomingReview{ReviewID: "r-bad", StarRating: "SIX"},
	)

	count, err := svc.IngestBatch(context.Background(), batch)
	require.NoError(t, err, "one bad review must not fail the batch")
	assert.Equal(t, 2, count)
	assert.Len(t, repo.reviews, 2)
}

func TestIngestBatch_Rejections(t *testing.T) {
	svc := NewIngestionService(nil, newFakeRepo(), newFakeCache(), nil)

	_, err := svc.IngestBatch(context.Background(), BatchPayload{Reviews: validBatch().Reviews})
	assert.ErrorIs(t, err, domain.ErrMalformedInput, "missing businessProfileId")

	_, err = svc.IngestBatch(context.Background(), BatchPayload{BusinessProfileID: "123", Reviews: []IncomingReview{}})
	assert.ErrorIs(t, err, domain.ErrMalformedInput, "empty reviews")

	allInvalid := BatchPayload{
		BusinessProfileID: "123",
		Reviews:           []IncomingReview{{ReviewID: "r", StarRating: "SIX"}},
	}
	_, err = svc.IngestBatch(context.Background(), allInvalid)
	assert.ErrorIs(t, err, domain.ErrMalformedInput, "no valid reviews")
}

func TestIngestBatch_FallbackProfileName(t *testing.T) {
	repo := newFakeRepo()
	svc := NewIngestionService(nil, repo, newFakeCache(), map[string]string{"123": "Mapped Name"})

	batch := validBatch()
	batch.BusinessProfileName = ""
	_, err := svc.IngestBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, "Mapped Name", repo.profiles["123"].Name)
}

func TestIngestBatch_InvalidatesStatsCaches(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	require.NoError(t, cache.Set(context.Background(), "stats:dashboard:all", emptyDashboardStats(), 300))
	require.NoError(t, cache.Set(context.Background(), "stats:dashboard:123", emptyDashboardStats(), 300))
	require.NoError(t, cache.Set(context.Background(), "stats:profiles", []ProfileStat{}, 300))
	require.NoError(t, cache.Set(context.Background(), "trends:review:7d:all", []TrendBucket{}, 300))
	require.NoError(t, cache.Set(context.Background(), "trends:response:12m:123", []ResponseTrendBucket{}, 300))

	svc := NewIngestionService(nil, repo, cache, nil)
	_, err := svc.IngestBatch(context.Background(), validBatch())
	require.NoError(t, err)

	assert.Empty(t, cache.data, "every stats and trend key for the scope must be dropped")
}

func TestIngestWebhook(t *testing.T) {
	repo := newFakeRepo()
	svc := NewIngestionService(nil, repo, newFakeCache(), map[string]string{"11832958934823586542": "Harbor Cafe"})

	in := IncomingReview{
		ReviewID:   "r-9",
		StarRating: "FOUR",
		Comment:    "solid",
		CreateTime: "2026-03-01T00:00:00Z",
		Name:       "accounts/1/locations/11832958934823586542/reviews/r-9",
	}
	require.NoError(t, svc.IngestWebhook(context.Background(), in))

	stored, ok := repo.reviews["11832958934823586542|r-9"]
	require.True(t, ok)
	assert.Equal(t, "Harbor Cafe", stored.ProfileName)
	assert.Equal(t, domain.StarFour, stored.StarRating)

	// redelivery with a reply replaces the record
	in.Reply = &IncomingReply{Comment: "thanks!", UpdateTime: "2026-03-02T00:00:00Z"}
	require.NoError(t, svc.IngestWebhook(context.Background(), in))

	stored = repo.reviews["11832958934823586542|r-9"]
	require.NotNil(t, stored.Reply)
	assert.Equal(t, domain.StatusReplied, stored.Status)
	assert.Len(t, repo.reviews, 1)
}

func TestIngestWebhook_UnmappableResourceName(t *testing.T) {
	repo := newFakeRepo()
	svc := NewIngestionService(nil, repo, newFakeCache(), nil)

	in := IncomingReview{ReviewID: "r-1", StarRating: "ONE", Name: "no-location-here"}
	require.NoError(t, svc.IngestWebhook(context.Background(), in))

	_, ok := repo.reviews["unknown|r-1"]
	assert.True(t, ok, "unmappable names land under the unknown profile")
}

func TestIngestWebhook_RejectsInvalidRating(t *testing.T) {
	svc := NewIngestionService(nil, newFakeRepo(), newFakeCache(), nil)
	err := svc.IngestWebhook(context.Background(), IncomingReview{ReviewID: "r", StarRating: "SIX"})
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestIngestLocation(t *testing.T) {
	repo := newFakeRepo()
	src := &fakeSource{
		location: map[string]any{"locationName": "Dockside Grill"},
		reviews: []map[string]any{
			{"reviewId": "r-1", "starRating": "FIVE", "createTime": "2026-03-01T00:00:00Z"},
			{"reviewId": "r-2", "starRating": "THREE", "createTime": "2026-03-02T00:00:00Z"},
		},
	}
	svc := NewIngestionService(src, repo, newFakeCache(), nil)

	inserted, err := svc.IngestLocation(context.Background(), "77", 50)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Len(t, repo.reviews, 2)
	assert.Equal(t, "Dockside Grill", repo.profiles["77"].Name)
}

func TestIngestLocation_MissIsLoggedNotFatal(t *testing.T) {
	repo := newFakeRepo()
	src := &fakeSource{locErr: domain.ErrNotFound}
	svc := NewIngestionService(src, repo, newFakeCache(), nil)

	inserted, err := svc.IngestLocation(context.Background(), "77", 50)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Equal(t, []string{"77:location"}, repo.misses)
	assert.Empty(t, repo.reviews)
}

func TestIngestLocation_ReviewsMissIsLogged(t *testing.T) {
	repo := newFakeRepo()
	src := &fakeSource{
		location: map[string]any{"locationName": "X"},
		revErr:   errors.New("remote returned 403 forbidden"),
	}
	svc := NewIngestionService(src, repo, newFakeCache(), nil)

	_, err := svc.IngestLocation(context.Background(), "77", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"77:reviews"}, repo.misses)
}

func TestIngestLocation_OtherErrorsBubble(t *testing.T) {
	src := &fakeSource{locErr: errors.New("connection reset")}
	svc := NewIngestionService(src, newFakeRepo(), newFakeCache(), nil)

	_, err := svc.IngestLocation(context.Background(), "77", 50)
	assert.Error(t, err)
}

func TestIngestLocation_EmptyReviewsIsNoop(t *testing.T) {
	repo := newFakeRepo()
	src := &fakeSource{location: map[string]any{"locationName": "X"}}
	svc := NewIngestionService(src, repo, newFakeCache(), nil)

	inserted, err := svc.IngestLocation(context.Background(), "77", 50)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Empty(t, repo.reviews)
}
