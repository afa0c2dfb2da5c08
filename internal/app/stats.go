package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"reviewdeck/internal/domain"
)

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type RatingCount struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

type DashboardStats struct {
	TotalReviews       int           `json:"totalReviews"`
	PendingReplies     int           `json:"pendingReplies"`
	AverageRating      float64       `json:"averageRating"`
	ResponseRate       float64       `json:"responseRate"`
	ReviewTrends       []MonthCount  `json:"reviewTrends"`
	RatingDistribution []RatingCount `json:"ratingDistribution"`
	LastUpdated        time.Time     `json:"lastUpdated"`
}

type ProfileStat struct {
	ProfileID      string  `json:"profileId"`
	ProfileName    string  `json:"profileName"`
	TotalReviews   int     `json:"totalReviews"`
	AverageRating  float64 `json:"averageRating"`
	PendingReplies int     `json:"pendingReplies"`
	ResponseRate   float64 `json:"responseRate"`
	LastReviewDate string  `json:"lastReviewDate"`
}

// StatsService computes dashboard rollups over the flattened review set.
// It never fails a request for data problems: every method returns the best
// stats it could compute plus the list of degradation reasons, and the
// caller decides what to log. Clean results are cached in Redis.
type StatsService struct {
	repo     domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
	timeout  time.Duration
}

func NewStatsService(r domain.ReviewRepository, c domain.Cache, ttl, timeout time.Duration) *StatsService {
	return &StatsService{repo: r, cache: c, cacheTTL: ttl, timeout: timeout}
}

func (s *StatsService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

func scopeKey(p *domain.ProfileRef) string {
	if p == nil {
		return "all"
	}
	return p.Canonical()
}

// DashboardStats aggregates the whole (optionally profile-scoped) review set.
func (s *StatsService) DashboardStats(ctx context.Context, profile *domain.ProfileRef) (DashboardStats, []string) {
	key := "stats:dashboard:" + scopeKey(profile)
	var cached DashboardStats
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	recs, err := s.repo.FetchReviews(ctx, domain.StatsScope{Profile: profile})
	if err != nil {
		return emptyDashboardStats(), []string{fmt.Sprintf("store unavailable: %v", err)}
	}

	stats, reasons := computeDashboardStats(recs, time.Now().UTC())
	if len(reasons) == 0 {
		_ = s.cache.Set(ctx, key, stats, int(s.cacheTTL.Seconds()))
	}
	return stats, reasons
}

// ProfileStats returns per-profile rollups for the stats endpoint.
func (s *StatsService) ProfileStats(ctx context.Context) ([]ProfileStat, []string) {
	key := "stats:profiles"
	var cached []ProfileStat
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	recs, err := s.repo.FetchReviews(ctx, domain.StatsScope{})
	if err != nil {
		return []ProfileStat{}, []string{fmt.Sprintf("store unavailable: %v", err)}
	}

	stats, reasons := computeProfileStats(recs)
	if len(reasons) == 0 {
		_ = s.cache.Set(ctx, key, stats, int(s.cacheTTL.Seconds()))
	}
	return stats, reasons
}

func emptyDashboardStats() DashboardStats {
	return DashboardStats{
		ReviewTrends:       []MonthCount{},
		RatingDistribution: []RatingCount{},
		LastUpdated:        time.Now().UTC(),
	}
}

func computeDashboardStats(recs []domain.ReviewRecord, now time.Time) (DashboardStats, []string) {
	out := emptyDashboardStats()
	var reasons []string

	out.TotalReviews = len(recs)
	if len(recs) == 0 {
		return out, reasons
	}

	var ratingSum, replied int
	dist := map[int]int{}
	for _, r := range recs {
		if _, ok := r.StarRating.Numeric(); !ok {
			reasons = append(reasons, fmt.Sprintf("review %s: unmapped starRating %q counted as neutral", r.ReviewID, r.StarRating))
		}
		n := r.StarRating.NumericOrNeutral()
		ratingSum += n
		dist[n]++
		if r.HasReply() {
			replied++
		} else {
			out.PendingReplies++
		}
	}
	out.AverageRating = round1(float64(ratingSum) / float64(len(recs)))
	out.ResponseRate = round1(float64(replied) / float64(len(recs)) * 100)

	for rating := 1; rating <= 5; rating++ {
		if c, ok := dist[rating]; ok {
			out.RatingDistribution = append(out.RatingDistribution, RatingCount{Rating: rating, Count: c})
		}
	}

	trends, trendReasons := monthlyTrend(recs, now)
	out.ReviewTrends = trends
	reasons = append(reasons, trendReasons...)
	return out, reasons
}

// monthlyTrend counts reviews per calendar month over the trailing six
// months, labeled with the short month name. Months without reviews are
// omitted; the gap-filled series lives on the trend endpoints.
func monthlyTrend(recs []domain.ReviewRecord, now time.Time) ([]MonthCount, []string) {
	var reasons []string
	windowStart := monthStart(now).AddDate(0, -5, 0)

	counts := map[string]int{}
	for _, r := range recs {
		if r.CreateTime.IsZero() {
			reasons = append(reasons, fmt.Sprintf("review %s: missing createTime, excluded from trends", r.ReviewID))
			continue
		}
		m := monthStart(r.CreateTime.UTC())
		if m.Before(windowStart) || m.After(now) {
			continue
		}
		counts[m.Format("2006-01")]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]MonthCount, 0, len(keys))
	for _, k := range keys {
		m, _ := time.Parse("2006-01", k)
		out = append(out, MonthCount{Month: m.Format("Jan"), Count: counts[k]})
	}
	return out, reasons
}

func computeProfileStats(recs []domain.ReviewRecord) ([]ProfileStat, []string) {
	type agg struct {
		stat      ProfileStat
		ratingSum int
		replied   int
		last      time.Time
	}
	var reasons []string
	byProfile := map[string]*agg{}
	var order []string

	for _, r := range recs {
		id := r.ProfileID
		if id == "" {
			id = "unknown"
		}
		a, ok := byProfile[id]
		if !ok {
			name := r.ProfileName
			if name == "" {
				name = "Unknown Profile"
			}
			a = &agg{stat: ProfileStat{ProfileID: id, ProfileName: name}}
			byProfile[id] = a
			order = append(order, id)
		}
		a.stat.TotalReviews++
		if _, ok := r.StarRating.Numeric(); !ok {
			reasons = append(reasons, fmt.Sprintf("review %s: unmapped starRating %q counted as neutral", r.ReviewID, r.StarRating))
		}
		a.ratingSum += r.StarRating.NumericOrNeutral()
		if r.HasReply() {
			a.replied++
		} else {
			a.stat.PendingReplies++
		}
		if r.CreateTime.After(a.last) {
			a.last = r.CreateTime
		}
	}

	sort.Strings(order)
	out := make([]ProfileStat, 0, len(order))
	for _, id := range order {
		a := byProfile[id]
		a.stat.AverageRating = round1(float64(a.ratingSum) / float64(a.stat.TotalReviews))
		a.stat.ResponseRate = round1(float64(a.replied) / float64(a.stat.TotalReviews) * 100)
		if !a.last.IsZero() {
			a.stat.LastReviewDate = a.last.UTC().Format(time.RFC3339)
		}
		out = append(out, a.stat)
	}
	return out, reasons
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
