package app

import (
	"context"
	"fmt"
	"time"

	"reviewdeck/internal/domain"
)

// Period selects the trend window and bucket granularity.
type Period string

const (
	Period7d  Period = "7d"  // 7 daily buckets, weekday labels
	Period30d Period = "30d" // 30 daily buckets, M/D labels
	Period3m  Period = "3m"  // 12 weekly buckets, week-start labels
	Period12m Period = "12m" // 12 monthly buckets, month labels
)

func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case Period7d, Period30d, Period3m, Period12m:
		return Period(s), true
	}
	return "", false
}

// TrendBucket carries its label under "day" for daily granularities and
// "month" otherwise; the dashboard charts key off whichever is present.
type TrendBucket struct {
	Day   string `json:"day,omitempty"`
	Month string `json:"month,omitempty"`
	Count int    `json:"count"`
}

type ResponseTrendBucket struct {
	Day          string  `json:"day,omitempty"`
	Month        string  `json:"month,omitempty"`
	Count        int     `json:"count"`
	ResponseTime float64 `json:"responseTime"`
	ReplyRate    float64 `json:"replyRate"`
}

// windowStart returns the first bucket of the period ending at now.
func (p Period) windowStart(now time.Time) time.Time {
	switch p {
	case Period7d:
		return dayStart(now).AddDate(0, 0, -6)
	case Period30d:
		return dayStart(now).AddDate(0, 0, -29)
	case Period3m:
		return weekStart(now).AddDate(0, 0, -7*11)
	default: // Period12m
		return monthStart(now).AddDate(0, -11, 0)
	}
}

// bucketStart truncates a timestamp to its calendar bucket.
func (p Period) bucketStart(t time.Time) time.Time {
	switch p {
	case Period7d, Period30d:
		return dayStart(t)
	case Period3m:
		return weekStart(t)
	default:
		return monthStart(t)
	}
}

func (p Period) nextBucket(b time.Time) time.Time {
	switch p {
	case Period7d, Period30d:
		return b.AddDate(0, 0, 1)
	case Period3m:
		return b.AddDate(0, 0, 7)
	default:
		return b.AddDate(0, 1, 0)
	}
}

// label formats the bucket's display label per granularity: weekday short
// name for 7d, M/D for 30d, week-start "Jan 2" for 3m, "Jan" for 12m.
func (p Period) label(b time.Time) (day, month string) {
	switch p {
	case Period7d:
		return b.Format("Mon"), ""
	case Period30d:
		return fmt.Sprintf("%d/%d", int(b.Month()), b.Day()), ""
	case Period3m:
		return "", b.Format("Jan 2")
	default:
		return "", b.Format("Jan")
	}
}

// ReviewTrends returns the gap-filled review-count series for the period.
// Every calendar unit in the window appears, zero-filled when quiet.
func (s *StatsService) ReviewTrends(ctx context.Context, p Period, profile *domain.ProfileRef) ([]TrendBucket, []string) {
	key := fmt.Sprintf("trends:review:%s:%s", p, scopeKey(profile))
	var cached []TrendBucket
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	start := p.windowStart(now)
	recs, err := s.repo.FetchReviews(ctx, domain.StatsScope{Profile: profile, Since: start, Until: now})
	if err != nil {
		// Degrade to a zero-filled series rather than failing the chart.
		out := computeReviewTrends(nil, p, start, now)
		return out, []string{fmt.Sprintf("store unavailable: %v", err)}
	}

	out := computeReviewTrends(recs, p, start, now)
	reasons := trendReasons(recs)
	if len(reasons) == 0 {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, reasons
}

// ResponseTrends adds per-bucket average response time (hours, replied
// records only) and reply rate to the same gap-filled series.
func (s *StatsService) ResponseTrends(ctx context.Context, p Period, profile *domain.ProfileRef) ([]ResponseTrendBucket, []string) {
	key := fmt.Sprintf("trends:response:%s:%s", p, scopeKey(profile))
	var cached []ResponseTrendBucket
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	start := p.windowStart(now)
	recs, err := s.repo.FetchReviews(ctx, domain.StatsScope{Profile: profile, Since: start, Until: now})
	if err != nil {
		out := computeResponseTrends(nil, p, start, now)
		return out, []string{fmt.Sprintf("store unavailable: %v", err)}
	}

	out := computeResponseTrends(recs, p, start, now)
	reasons := trendReasons(recs)
	if len(reasons) == 0 {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, reasons
}

func computeReviewTrends(recs []domain.ReviewRecord, p Period, start, end time.Time) []TrendBucket {
	counts := map[time.Time]int{}
	for _, r := range recs {
		b, ok := bucketFor(r, p, start, end)
		if !ok {
			continue
		}
		counts[b]++
	}

	var out []TrendBucket
	last := p.bucketStart(end)
	for b := start; !b.After(last); b = p.nextBucket(b) {
		day, month := p.label(b)
		out = append(out, TrendBucket{Day: day, Month: month, Count: counts[b]})
	}
	return out
}

func computeResponseTrends(recs []domain.ReviewRecord, p Period, start, end time.Time) []ResponseTrendBucket {
	type agg struct {
		count    int
		replied  int
		sumHours float64
		timed    int
	}
	buckets := map[time.Time]*agg{}
	for _, r := range recs {
		b, ok := bucketFor(r, p, start, end)
		if !ok {
			continue
		}
		a := buckets[b]
		if a == nil {
			a = &agg{}
			buckets[b] = a
		}
		a.count++
		if !r.HasReply() {
			continue
		}
		a.replied++
		if !r.Reply.UpdateTime.IsZero() {
			if h := r.Reply.UpdateTime.Sub(r.CreateTime).Hours(); h >= 0 {
				a.sumHours += h
				a.timed++
			}
		}
	}

	var out []ResponseTrendBucket
	last := p.bucketStart(end)
	for b := start; !b.After(last); b = p.nextBucket(b) {
		day, month := p.label(b)
		bucket := ResponseTrendBucket{Day: day, Month: month}
		if a := buckets[b]; a != nil {
			bucket.Count = a.count
			bucket.ReplyRate = round1(float64(a.replied) / float64(a.count) * 100)
			if a.timed > 0 {
				bucket.ResponseTime = round1(a.sumHours / float64(a.timed))
			}
		}
		out = append(out, bucket)
	}
	return out
}

func bucketFor(r domain.ReviewRecord, p Period, start, end time.Time) (time.Time, bool) {
	if r.CreateTime.IsZero() {
		return time.Time{}, false
	}
	t := r.CreateTime.UTC()
	if t.Before(start) || t.After(end) {
		return time.Time{}, false
	}
	return p.bucketStart(t), true
}

func trendReasons(recs []domain.ReviewRecord) []string {
	var reasons []string
	for _, r := range recs {
		if r.CreateTime.IsZero() {
			reasons = append(reasons, fmt.Sprintf("review %s: missing createTime, excluded from trends", r.ReviewID))
		}
	}
	return reasons
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// weekStart truncates to the Monday of the timestamp's ISO week.
func weekStart(t time.Time) time.Time {
	d := dayStart(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
