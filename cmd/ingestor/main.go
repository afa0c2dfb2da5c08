package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"reviewdeck/internal/adapters/gbp"
	"reviewdeck/internal/adapters/observability"
	redisad "reviewdeck/internal/adapters/redis"
	"reviewdeck/internal/app"
	"reviewdeck/internal/shared"
	mysqlrepo "reviewdeck/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.GBPBase).
		Int("workers", cfg.Workers).
		Int("reviews", cfg.ReviewCount).
		Int("locations", len(cfg.LocationIDs)).
		Msg("ingestor starting")

	if len(cfg.LocationIDs) == 0 {
		log.Fatal().Msg("LOCATION_IDS is empty; nothing to ingest")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := gbp.New(cfg.GBPBase, cfg.GBPKey, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize reviews client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ing := app.NewIngestionService(client, repo, cache, cfg.ProfileNames)
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, id := range cfg.LocationIDs {
		id := id

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(locationID string) {
			defer wg.Done()
			defer sem.Release(int64(1))

			inserted, err := ing.IngestLocation(ctx, locationID, cfg.ReviewCount)
			if err != nil {
				log.Warn().Str("id", locationID).Err(err).Msg("ingest failed")
				return
			}
			observability.ObserveIngested("pull", inserted)
			log.Info().Str("id", locationID).Int("inserted", inserted).Msg("ingest ok")
		}(id)
	}

	wg.Wait()
	log.Info().Msg("ingestion completed")
}
