package config

import (
	"log/slog"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	DevMode  bool   `arg:"--dev,env:DEV_MODE" default:"false"`
	Port     int    `arg:"-p,--port,env:LISTEN_PORT" default:"8006"`
	LogLevel string `arg:"--log-level,env:LOG_LEVEL" default:"default" help:"Log level to use.  Valid values are: debug, info, and warn/warning.  If default the level will be info or debug in dev mode."`

	DBHost     string `arg:"--db-host,env:DB_HOST" default:"localhost"`
	DBName     string `arg:"--db-name,env:DB_NAME" default:"gulp"`
	DBPort     int    `arg:"--db-port,env:DB_PORT" default:"5432"`
	DBMaxConns int    `arg:"--db-max-conns,env:DB_MAX_CONNS" default:"10"`
	DBMinConns int    `arg:"--db-min-conns,env:DB_MIN_CONNS" default:"1"`
	DBSSLMode  string `arg:"--db-ssl-mode,env:DB_SSL_MODE" default:"disable"`
	DBUsername string `arg:"--db-username,env:DB_USERNAME" default:"gulp"`
	DBPassword string `arg:"--db-password,env:DB_PASSWORD" default:"badpassword"`

	RedisAddr     string `arg:"--redis-addr,env:REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `arg:"--redis-password,env:REDIS_PASSWORD" default:""`
	RedisDB       int    `arg:"--redis-db,env:REDIS_DB" default:"0"`

	HmacSecret    string `arg:"--hmac-secret,env:HMAC_SECRET" default:"" help:"Shared secret for verifying X-Signature on ingested batches.  Required."`
	DownstreamUrl string `arg:"--downstream-url,env:DOWNSTREAM_URL" default:"http://localhost:8007" help:"Base URL of the downstream consumer.  Events are POSTed to <url>/receive."`

	MaxAttempts               int     `arg:"--max-attempts,env:MAX_ATTEMPTS" default:"5" help:"Delivery attempts per event before it is failed permanently."`
	BackoffBaseSeconds        float64 `arg:"--backoff-base,env:BACKOFF_BASE_SECONDS" default:"1"`
	BackoffFactor             float64 `arg:"--backoff-factor,env:BACKOFF_FACTOR" default:"2"`
	BackoffCapSeconds         float64 `arg:"--backoff-cap,env:BACKOFF_CAP_SECONDS" default:"16"`
	RateLimitPerSec           int     `arg:"--rate-limit,env:RATE_LIMIT_PER_SEC" default:"3" help:"Max downstream requests per wall-clock second across all workers."`
	RateAcquireTimeoutSeconds float64 `arg:"--rate-acquire-timeout,env:RATE_ACQUIRE_TIMEOUT_SECONDS" default:"2"`
	WorkerConcurrency         int     `arg:"--workers,env:WORKER_CONCURRENCY" default:"8"`
	HttpTimeoutSeconds        float64 `arg:"--http-timeout,env:HTTP_TIMEOUT_SECONDS" default:"10"`
	QueueVisibilitySeconds    float64 `arg:"--queue-visibility,env:QUEUE_VISIBILITY_SECONDS" default:"60" help:"How long a dequeued task stays invisible before it is redelivered."`
	ClaimStaleSeconds         float64 `arg:"--claim-stale,env:CLAIM_STALE_SECONDS" default:"120" help:"Age after which a DELIVERING claim is considered abandoned."`
}

func LoadConfig() (*AppConfig, error) {
	var appConfig AppConfig
	arg.MustParse(&appConfig)

	if appConfig.DevMode {
		err := godotenv.Load(".env")
		if err == nil {
			// re-parse to get env vars from .env
			slog.Info("Loaded .env")
			arg.MustParse(&appConfig)
		}
	}

	if appConfig.LogLevel == "default" {
		if appConfig.DevMode {
			logLevel.Set(slog.LevelDebug)
		} else {
			logLevel.Set(slog.LevelInfo)
		}
	} else {
		intendedLevel := strings.ToLower(appConfig.LogLevel)
		switch intendedLevel {
		case "debug":
			logLevel.Set(slog.LevelDebug)
		case "info":
			logLevel.Set(slog.LevelInfo)
		case "warn", "warning":
			logLevel.Set(slog.LevelWarn)
		default:
			slog.Error("Unable to configure log level", "level", appConfig.LogLevel)
		}
	}

	return &appConfig, nil
}
