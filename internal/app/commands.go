package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reviewdeck/internal/domain"
)

// IngestionService normalizes inbound review payloads and writes them to the
// store: insert-or-skip for batches, idempotent upsert for the webhook path.
// Stats caches are invalidated after any successful write.
type IngestionService struct {
	source       domain.ReviewSource
	repo         domain.ReviewRepository
	cache        domain.Cache
	profileNames map[string]string
}

func NewIngestionService(src domain.ReviewSource, r domain.ReviewRepository, c domain.Cache, profileNames map[string]string) *IngestionService {
	return &IngestionService{source: src, repo: r, cache: c, profileNames: profileNames}
}

// IngestBatch handles the bulk POST body: upserts the profile, then appends
// each valid review, skipping duplicates by reviewId. Invalid records are
// dropped individually so one bad review never fails the batch. Returns the
// number of reviews actually inserted.
func (s *IngestionService) IngestBatch(ctx context.Context, batch BatchPayload) (int, error) {
	profileID := strings.TrimSpace(batch.BusinessProfileID.String())
	if profileID == "" {
		return 0, fmt.Errorf("%w: missing businessProfileId", domain.ErrMalformedInput)
	}
	if len(batch.Reviews) == 0 {
		return 0, fmt.Errorf("%w: expected reviews array", domain.ErrMalformedInput)
	}

	profile := domain.ProfileDocument{
		ID:                 profileID,
		Name:               batch.BusinessProfileName,
		ExecutionTimestamp: parseWireTime(batch.ExecutionTimestamp, "executionTimestamp", profileID),
	}
	if profile.Name == "" {
		profile.Name = s.nameFor(profileID)
	}
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return 0, fmt.Errorf("upsert profile %s: %w", profileID, err)
	}

	recs := make([]domain.ReviewRecord, 0, len(batch.Reviews))
	for _, in := range batch.Reviews {
		rec, err := normalizeReview(profileID, profile.Name, in)
		if err != nil {
			log.Warn().Str("profile", profileID).Str("review", in.ReviewID).Err(err).Msg("review rejected")
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return 0, fmt.Errorf("%w: no valid reviews in batch", domain.ErrMalformedInput)
	}

	inserted, err := s.repo.InsertReviews(ctx, profileID, recs)
	if err != nil {
		return 0, fmt.Errorf("insert reviews for %s: %w", profileID, err)
	}
	s.invalidateStats(ctx, profileID)
	return inserted, nil
}

// IngestWebhook handles the per-review vendor webhook: the profile id is
// embedded in the resource name, and delivery is at-least-once, so the write
// is a full last-write-wins upsert rather than insert-or-skip.
func (s *IngestionService) IngestWebhook(ctx context.Context, in IncomingReview) error {
	profileID := ExtractProfileID(in.Name)
	rec, err := normalizeReview(profileID, s.nameFor(profileID), in)
	if err != nil {
		return err
	}

	if err := s.repo.UpsertProfile(ctx, domain.ProfileDocument{ID: profileID, Name: rec.ProfileName}); err != nil {
		return fmt.Errorf("upsert profile %s: %w", profileID, err)
	}
	if err := s.repo.UpsertReview(ctx, rec); err != nil {
		return fmt.Errorf("upsert review %s: %w", rec.ReviewID, err)
	}
	s.invalidateStats(ctx, profileID)
	return nil
}

// IngestLocation is the pull path: fetch the location and its reviews from
// the vendor API and feed them through the batch path. 404/401/403 from the
// vendor are recorded as misses and skipped; other errors bubble up. Returns
// the number of reviews actually inserted.
func (s *IngestionService) IngestLocation(ctx context.Context, locationID string, reviewCount int) (int, error) {
	loc, err := s.source.GetLocation(ctx, locationID)
	if err != nil {
		if miss, status := missStatus(err); miss {
			_ = s.repo.LogMiss(ctx, locationID, status, "location")
			return 0, nil
		}
		return 0, err
	}

	raw, err := s.source.ListReviews(ctx, locationID, reviewCount)
	if err != nil {
		if miss, status := missStatus(err); miss {
			_ = s.repo.LogMiss(ctx, locationID, status, "reviews")
			return 0, nil
		}
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}

	batch := BatchPayload{
		BusinessProfileID:   FlexID(locationID),
		BusinessProfileName: locationName(loc, locationID, s.profileNames),
		ExecutionTimestamp:  time.Now().UTC().Format(time.RFC3339),
		Reviews:             mapVendorReviews(raw),
	}
	inserted, err := s.IngestBatch(ctx, batch)
	if err != nil {
		return 0, err
	}
	log.Info().Str("location", locationID).Int("fetched", len(raw)).Int("inserted", inserted).Msg("location ingested")
	return inserted, nil
}

func (s *IngestionService) nameFor(profileID string) string {
	if n, ok := s.profileNames[profileID]; ok {
		return n
	}
	return "Profile " + profileID
}

// invalidateStats drops every cache key a write can stale: the dashboard
// rollups (global and this profile's) and all trend series.
func (s *IngestionService) invalidateStats(ctx context.Context, profileID string) {
	if s.cache == nil {
		return
	}
	canonical := domain.NewProfileRef(profileID).Canonical()
	_ = s.cache.Del(ctx, "stats:profiles")
	for _, scope := range []string{"all", canonical} {
		_ = s.cache.Del(ctx, "stats:dashboard:"+scope)
		for _, p := range []Period{Period7d, Period30d, Period3m, Period12m} {
			_ = s.cache.Del(ctx, fmt.Sprintf("trends:review:%s:%s", p, scope))
			_ = s.cache.Del(ctx, fmt.Sprintf("trends:response:%s:%s", p, scope))
		}
	}
}

func missStatus(err error) (bool, int) {
	if errors.Is(err, domain.ErrNotFound) {
		return true, 404
	}
	low := strings.ToLower(err.Error())
	if strings.Contains(low, "401") || strings.Contains(low, "unauthorized") {
		return true, 401
	}
	if strings.Contains(low, "403") || strings.Contains(low, "forbidden") {
		return true, 403
	}
	return false, 0
}
