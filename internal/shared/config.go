package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv       string
	HTTPAddr     string
	MetricsAddr  string
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	GBPBase      string
	GBPKey       string
	Workers      int
	ReviewCount  int
	LocationIDs  []string
	ProfileNames map[string]string
	CacheTTL     time.Duration
	QueryTimeout time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ":9100"),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviewdeck?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisPass:    env("REDIS_PASSWORD", ""),
		GBPBase:      env("GBP_BASE_URL", "https://mybusiness.googleapis.com/v4"),
		GBPKey:       env("GBP_API_KEY", ""),
		Workers:      atoi("INGEST_WORKERS", 4),
		ReviewCount:  atoi("INGEST_REVIEW_COUNT", 200),
		LocationIDs:  splitList(os.Getenv("LOCATION_IDS")),
		ProfileNames: parsePairs(os.Getenv("PROFILE_NAMES")),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		QueryTimeout: time.Duration(atoi("QUERY_TIMEOUT_SECONDS", 10)) * time.Second,
	}
	c.RedisDB = atoi("REDIS_DB", 0)
	if c.GBPKey == "" {
		log.Warn().Msg("GBP_API_KEY is empty; the pull ingestor will not authenticate")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePairs reads "id=Name,id2=Name 2" into a profile-id -> display-name map.
func parsePairs(v string) map[string]string {
	if v == "" {
		return nil
	}
	out := make(map[string]string)
	for _, p := range strings.Split(v, ",") {
		k, val, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		k, val = strings.TrimSpace(k), strings.TrimSpace(val)
		if k != "" && val != "" {
			out[k] = val
		}
	}
	return out
}
