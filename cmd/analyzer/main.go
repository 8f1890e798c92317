package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"opinion_mining/internal/adapters/csvfile"
	"opinion_mining/internal/adapters/nlp"
	"opinion_mining/internal/adapters/observability"
	redisad "opinion_mining/internal/adapters/redis"
	"opinion_mining/internal/app"
	"opinion_mining/internal/domain"
	"opinion_mining/internal/shared"
	mongorepo "opinion_mining/internal/storage/mongo"
	mysqlrepo "opinion_mining/internal/storage/mysql"
)

func parseDay(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		log.Fatal().Err(err).Str("value", s).Msg("dates must be YYYY-MM-DD")
	}
	return &t
}

// analyzer builds summaries for store exports given as arguments, or for the
// newest export in UPLOAD_DIR when none are given.
//
//	analyzer -version 2.8.0 export.csv
//	analyzer -start 2018-06-01 -end 2018-06-30
func main() {
	cfg := shared.Load()

	version := flag.String("version", "", "app version to summarize; required when the export spans several versions")
	start := flag.String("start", "", "exclusive start date YYYY-MM-DD (exports without a Version column)")
	end := flag.String("end", "", "inclusive end date YYYY-MM-DD")
	englishOnly := flag.Bool("english-only", cfg.EnglishOnly, "drop reviews detected as another language")
	storeReviews := flag.Bool("store-reviews", true, "persist raw reviews to MySQL")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "serve /metrics while running (e.g. :9101)")
	flag.Parse()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.Serve(*metricsAddr, observability.InitRegistry())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files := flag.Args()
	if len(files) == 0 {
		latest, err := csvfile.Latest(cfg.UploadDir)
		if err != nil {
			log.Fatal().Err(err).Msg("no export given and none found")
		}
		files = []string{latest}
	}

	sel := app.Selection{
		Version:     *version,
		Start:       parseDay(*start),
		End:         parseDay(*end),
		EnglishOnly: *englishOnly,
	}

	var reviews domain.ReviewRepository
	if *storeReviews {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("db ping ok")
		reviews = mysqlrepo.New(db)
	}

	mcli, err := mongorepo.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() { _ = mcli.Disconnect(context.Background()) }()
	summaries := mongorepo.New(mcli.Database(cfg.MongoDB))
	if err := summaries.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes failed")
	}

	scorer, err := shared.NewScorer(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("scorer", cfg.Scorer).Msg("failed to initialize scorer")
	}
	builder := shared.NewBuilder(cfg, scorer)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cache.Close() }()
	svc := app.NewAnalysisService(builder, nlp.NewAnalyzer(), reviews, summaries, cache)

	log.Info().
		Strs("files", files).
		Str("scorer", cfg.Scorer).
		Int("workers", cfg.Workers).
		Msg("analyzer starting")

	// files run side by side; each build already fans out per aspect
	sem := semaphore.NewWeighted(2)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for _, path := range files {
		path := path
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Error().Err(err).Msg("semaphore acquire failed")
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			began := time.Now()
			rows, err := csvfile.ReadFile(path)
			if err == nil {
				var sum domain.BusinessSummary
				sum, err = svc.AnalyzeExport(ctx, rows, sel)
				if err == nil {
					log.Info().
						Str("file", path).
						Str("business", sum.BusinessName).
						Str("version", sum.Version).
						Int("aspects", len(sum.AspectSummary)).
						Dur("elapsed", time.Since(began)).
						Msg("inserted summary")
					return
				}
			}
			log.Warn().Str("file", path).Err(err).Msg("analysis failed")
			mu.Lock()
			failed++
			mu.Unlock()
		}()
	}

	wg.Wait()
	if failed > 0 {
		log.Error().Int("failed", failed).Int("files", len(files)).Msg("analysis completed with failures")
		os.Exit(1)
	}
	log.Info().Msg("analysis completed")
}
