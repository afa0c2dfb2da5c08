package main

import (
	"database/sql"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "reviewdeck/internal/adapters/http_server"
	"reviewdeck/internal/adapters/observability"
	redisad "reviewdeck/internal/adapters/redis"
	"reviewdeck/internal/app"
	"reviewdeck/internal/shared"
	mysqlrepo "reviewdeck/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	queries := app.NewQueryService(repo, cfg.QueryTimeout)
	stats := app.NewStatsService(repo, cache, cfg.CacheTTL, cfg.QueryTimeout)
	ingest := app.NewIngestionService(nil, repo, cache, cfg.ProfileNames)

	// http: request timeout sits above the store timeout so handlers can
	// still write a degraded response
	srv := server.New(cfg.QueryTimeout + 5*time.Second)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: queries, S: stats, I: ingest})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
