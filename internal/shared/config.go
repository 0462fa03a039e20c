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
	AppEnv             string
	LogLevel           string
	HTTPAddr           string
	MetricsAddr        string
	StorageDriver      string // mysql|mongo|memory
	MySQLDSN           string
	MongoURI           string
	MongoDB            string
	RedisAddr          string
	RedisDB            int
	RedisPass          string
	CacheTTL           time.Duration
	JWTSecret          string
	AllowAdminOverride bool
	EditWindow         time.Duration
	CORSOrigins        []string
	RateLimitRPS       float64
	RateLimitBurst     int
	RecomputeWorkers   int
}

// Load reads the environment, after merging a local .env file when present.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:             env("APP_ENV", "prod"),
		LogLevel:           env("LOG_LEVEL", "info"),
		HTTPAddr:           env("HTTP_ADDR", ":8080"),
		MetricsAddr:        env("METRICS_ADDR", ":9100"),
		StorageDriver:      strings.ToLower(env("STORAGE_DRIVER", "mysql")),
		MySQLDSN:           env("MYSQL_DSN", "root:root@tcp(localhost:3306)/travel?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		MongoURI:           env("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            env("MONGO_DB", "travel"),
		RedisAddr:          env("REDIS_ADDR", "localhost:6379"),
		RedisPass:          env("REDIS_PASSWORD", ""),
		RedisDB:            atoi("REDIS_DB", 0),
		CacheTTL:           time.Duration(atoi("CACHE_TTL_SECONDS", 60)) * time.Second,
		JWTSecret:          env("JWT_SECRET", ""),
		AllowAdminOverride: envBool("ALLOW_ADMIN_OVERRIDE", false),
		EditWindow:         time.Duration(atoi("EDIT_WINDOW_HOURS", 24)) * time.Hour,
		CORSOrigins:        splitList(env("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitRPS:       envFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     atoi("RATE_LIMIT_BURST", 10),
		RecomputeWorkers:   atoi("RECOMPUTE_WORKERS", 8),
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty; authenticated routes will reject every request")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
