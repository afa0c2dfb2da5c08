package app

import (
	"context"
	"encoding/json"
	"sort"

	"reviewdeck/internal/domain"
)

// fakeRepo is an in-memory ReviewRepository with the same insert-or-skip and
// upsert semantics as the MySQL store.
type fakeRepo struct {
	profiles map[string]domain.ProfileDocument
	reviews  map[string]domain.ReviewRecord // profileID + "|" + reviewID
	misses   []string
	lastList domain.ListFilter
	listPage domain.ReviewPage
	listErr  error
	fetchErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		profiles: map[string]domain.ProfileDocument{},
		reviews:  map[string]domain.ReviewRecord{},
	}
}

func (f *fakeRepo) UpsertProfile(_ context.Context, p domain.ProfileDocument) error {
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeRepo) InsertReviews(_ context.Context, profileID string, rs []domain.ReviewRecord) (int, error) {
	inserted := 0
	for _, r := range rs {
		key := profileID + "|" + r.ReviewID
		if _, ok := f.reviews[key]; ok {
			continue
		}
		f.reviews[key] = r
		inserted++
	}
	return inserted, nil
}

func (f *fakeRepo) UpsertReview(_ context.Context, r domain.ReviewRecord) error {
	f.reviews[r.ProfileID+"|"+r.ReviewID] = r
	return nil
}

func (f *fakeRepo) LogMiss(_ context.Context, profileID string, status int, reason string) error {
	f.misses = append(f.misses, profileID+":"+reason)
	_ = status
	return nil
}

func (f *fakeRepo) ListReviews(_ context.Context, filter domain.ListFilter) (domain.ReviewPage, error) {
	f.lastList = filter
	if f.listErr != nil {
		return domain.ReviewPage{}, f.listErr
	}
	return f.listPage, nil
}

func (f *fakeRepo) FetchReviews(_ context.Context, s domain.StatsScope) ([]domain.ReviewRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	keys := make([]string, 0, len(f.reviews))
	for k := range f.reviews {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []domain.ReviewRecord
	for _, k := range keys {
		r := f.reviews[k]
		if s.Profile != nil && !s.Profile.Matches(r.ProfileID, r.ProfileName) {
			continue
		}
		if !s.Since.IsZero() && !r.CreateTime.IsZero() && r.CreateTime.Before(s.Since) {
			continue
		}
		if !s.Until.IsZero() && r.CreateTime.After(s.Until) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type fakeCache struct {
	data map[string][]byte
	sets []string
	dels []string
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = b
	c.sets = append(c.sets, key)
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	delete(c.data, key)
	c.dels = append(c.dels, key)
	return nil
}

// fakeSource scripts the vendor API for pull-path tests.
type fakeSource struct {
	location map[string]any
	locErr   error
	reviews  []map[string]any
	revErr   error
}

func (f *fakeSource) GetLocation(_ context.Context, _ string) (map[string]any, error) {
	return f.location, f.locErr
}

func (f *fakeSource) ListReviews(_ context.Context, _ string, _ int) ([]map[string]any, error) {
	return f.reviews, f.revErr
}
