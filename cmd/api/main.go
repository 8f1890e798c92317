package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "opinion_mining/internal/adapters/http_server"
	"opinion_mining/internal/adapters/nlp"
	"opinion_mining/internal/adapters/observability"
	redisad "opinion_mining/internal/adapters/redis"
	"opinion_mining/internal/app"
	"opinion_mining/internal/shared"
	mongorepo "opinion_mining/internal/storage/mongo"
	mysqlrepo "opinion_mining/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	// reviews (mysql)
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")
	if cfg.Migrations != "" {
		if err := mysqlrepo.Migrate(ctx, db, cfg.Migrations); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}

	// summaries (mongo)
	mcli, err := mongorepo.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	summaries := mongorepo.New(mcli.Database(cfg.MongoDB))
	if err := summaries.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes failed")
	}
	log.Info().Str("db", cfg.MongoDB).Msg("mongo connection ok")

	scorer, err := shared.NewScorer(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("scorer", cfg.Scorer).Msg("failed to initialize scorer")
	}
	builder := shared.NewBuilder(cfg, scorer)

	// deps
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	q := app.NewQueryService(summaries, cache, cfg.CacheTTL)
	a := app.NewAnalysisService(builder, nlp.NewAnalyzer(), mysqlrepo.New(db), summaries, cache)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	observability.Serve(cfg.MetricsAddr, reg) // optional side listener for scrapers
	srv.MountHandlers(&server.Handlers{
		Q:              q,
		A:              a,
		UploadDir:      cfg.UploadDir,
		EnglishOnly:    cfg.EnglishOnly,
		AnalyzeTimeout: 10 * time.Minute,
	})

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("scorer", cfg.Scorer).
		Int("workers", cfg.Workers).
		Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
