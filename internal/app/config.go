package app

import (
	"time"

	"github.com/yungbote/casehall-backend/internal/clients/redis"
	"github.com/yungbote/casehall-backend/internal/data/db"
	"github.com/yungbote/casehall-backend/internal/platform/envutil"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	Environment string
	Version     string
	MetricsAddr string

	Postgres db.PostgresConfig
	Redis    redis.Config

	JWTSecretKey string
	JWTIssuer    string
	CORSOrigins  []string

	RankingConfigCacheTTL time.Duration
	FeedFetchWindow       int
	OpsFetchWindow        int
	FeedRateLimitRPS      float64
	FeedRateLimitBurst    int
	EventsPrefix          string
	AutoMigrate           bool
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		MetricsAddr: envutil.String("METRICS_ADDR", ":9090"),

		Postgres: db.PostgresConfigFromEnv(),
		Redis: redis.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.IntRange("REDIS_DB", 0, 0, 15),
		},

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:    envutil.String("JWT_ISSUER", ""),
		CORSOrigins:  envutil.CSV("CORS_ORIGINS", nil),

		RankingConfigCacheTTL: envutil.Duration("RANKING_CONFIG_CACHE_TTL_SECONDS", 15*time.Second),
		FeedFetchWindow:       envutil.IntRange("CASE_HALL_FETCH_WINDOW", 300, 1, 5000),
		OpsFetchWindow:        envutil.IntRange("OPS_PRIORITY_FETCH_WINDOW", 500, 1, 5000),
		FeedRateLimitRPS:      envutil.Float("FEED_RATE_LIMIT_RPS", 5),
		FeedRateLimitBurst:    envutil.IntRange("FEED_RATE_LIMIT_BURST", 20, 1, 1000),
		EventsPrefix:          envutil.String("EVENTS_CHANNEL_PREFIX", "casehall.events"),
		AutoMigrate:           envutil.Bool("DB_AUTOMIGRATE", true),
	}
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set; every authenticated request will be rejected")
	}
	return cfg
}
