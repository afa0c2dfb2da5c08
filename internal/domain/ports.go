package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("reviewdeck: not found")
	ErrMalformedInput = errors.New("reviewdeck: malformed input")
)

type ReviewRepository interface {
	// Write paths
	UpsertProfile(ctx context.Context, p ProfileDocument) error
	// InsertReviews appends reviews to a profile, skipping ids already
	// present. Returns the number actually inserted.
	InsertReviews(ctx context.Context, profileID string, rs []ReviewRecord) (int, error)
	// UpsertReview is the idempotent last-write-wins replace used by the
	// webhook path and by reply updates.
	UpsertReview(ctx context.Context, r ReviewRecord) error
	LogMiss(ctx context.Context, profileID string, status int, reason string) error

	// Read paths
	ListReviews(ctx context.Context, f ListFilter) (ReviewPage, error)
	FetchReviews(ctx context.Context, s StatsScope) ([]ReviewRecord, error)
}

// ReviewSource is the vendor API the backfill ingestor pulls from.
type ReviewSource interface {
	GetLocation(ctx context.Context, id string) (map[string]any, error)
	ListReviews(ctx context.Context, id string, count int) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ListFilter is the review listing contract. Zero Profile means all
// profiles; empty or "all" Status/Rating disable that predicate.
type ListFilter struct {
	Profile *ProfileRef
	Status  string
	Rating  string
	Search  string
	Limit   int
	Skip    int
}

type ReviewPage struct {
	Items []ReviewRecord
	Total int
}

// StatsScope bounds an aggregation. Zero times mean unbounded.
type StatsScope struct {
	Profile *ProfileRef
	Since   time.Time
	Until   time.Time
}
