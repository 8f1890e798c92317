package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	Migrations  string // applied at API start when set
	MongoURI    string
	MongoDB     string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration
	UploadDir   string

	Scorer    string // local|remote
	ModelBase string
	ModelKey  string
	ModelRPS  int

	Workers           int
	SingleWordThresh  float64
	MultiWordThresh   float64
	MinSentenceTokens int
	MergeLemmas       bool
	CoreAspects       []string
	EnglishOnly       bool
}

func Load() Config {
	// a missing .env is fine; real env vars always win
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	atob := func(k string, def bool) bool {
		if v := os.Getenv(k); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/opinion?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		Migrations:  env("MIGRATIONS_DIR", ""),
		MongoURI:    env("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     env("MONGO_DB", "opinion"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		UploadDir:   env("UPLOAD_DIR", "uploads"),

		Scorer:    env("SCORER", "local"),
		ModelBase: env("MODEL_BASE_URL", "http://localhost:5000"),
		ModelKey:  env("MODEL_API_KEY", ""),
		ModelRPS:  atoi("MODEL_RPS", 20),

		Workers:           atoi("SUMMARY_WORKERS", 4),
		SingleWordThresh:  atof("SINGLE_WORD_THRESH", 0.002),
		MultiWordThresh:   atof("MULTI_WORD_THRESH", 0.001),
		MinSentenceTokens: atoi("MIN_SENTENCE_TOKENS", 5),
		MergeLemmas:       atob("MERGE_LEMMAS", true),
		CoreAspects:       splitList(os.Getenv("CORE_ASPECTS")),
		EnglishOnly:       atob("ENGLISH_ONLY", true),
	}
	if c.Scorer == "remote" && c.ModelKey == "" {
		log.Warn().Msg("MODEL_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// splitList parses a comma-separated list; nil means "use the defaults".
func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
