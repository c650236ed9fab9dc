package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sweater-ventures/gulp/config"
	"github.com/sweater-ventures/gulp/db"
)

type Application struct {
	Config     config.AppConfig
	DB         db.Querier
	Queue      *TaskQueue
	Limiter    *RateLimiter
	Metrics    *Metrics
	HTTPClient *http.Client
	dbconn     *pgxpool.Pool
	redis      *redis.Client
	stopEngine func()
}

func NewApp(config *config.AppConfig) (*Application, error) {
	conn, err := connectToDB(config)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return nil, err
	}
	queries := db.New(conn)

	rdb, err := connectToRedis(config)
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		return nil, err
	}

	return &Application{
		Config:     *config,
		DB:         queries,
		Queue:      NewTaskQueue(rdb, secondsToDuration(config.QueueVisibilitySeconds)),
		Limiter:    NewRateLimiter(rdb, config.RateLimitPerSec),
		Metrics:    NewMetrics(),
		HTTPClient: newHTTPClient(config),
		dbconn:     conn,
		redis:      rdb,
		stopEngine: func() {},
	}, nil
}

func newHTTPClient(config *config.AppConfig) *http.Client {
	return &http.Client{
		Timeout: secondsToDuration(config.HttpTimeoutSeconds),
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func (gulp *Application) SetStopEngine(fn func()) {
	gulp.stopEngine = fn
}

// StopEngine stops the delivery engine and waits for in-flight work to drain.
func (gulp *Application) StopEngine() {
	gulp.stopEngine()
}

// Ping checks both backing stores.
func (gulp *Application) Ping(ctx context.Context) error {
	if gulp.dbconn != nil {
		if err := gulp.dbconn.Ping(ctx); err != nil {
			return err
		}
	}
	if gulp.redis != nil {
		if err := gulp.redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (gulp *Application) Close() {
	if gulp.dbconn != nil {
		gulp.dbconn.Close()
	}
	if gulp.redis != nil {
		gulp.redis.Close()
	}
}
