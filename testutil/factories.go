package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/sweater-ventures/gulp/app"
	"github.com/sweater-ventures/gulp/config"
	"github.com/sweater-ventures/gulp/db"
)

// NewUUID returns a pgtype.UUID with a new random UUID.
func NewUUID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.Must(uuid.NewV7()), Valid: true}
}

// NewTimestamp returns a pgtype.Timestamptz set to now.
func NewTimestamp() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
}

// EventOpt is a functional option for building test Events.
type EventOpt func(*db.Event)

// NewEvent creates a db.Event with sensible defaults. Use options to override.
func NewEvent(opts ...EventOpt) db.Event {
	e := db.Event{
		ID:         NewUUID(),
		EventType:  pgtype.Text{String: "test.event", Valid: true},
		Payload:    []byte(`{"event_type":"test.event","key":"value"}`),
		Signature:  "0000000000000000000000000000000000000000000000000000000000000000",
		Status:     app.StatusReceived,
		ReceivedAt: NewTimestamp(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AttemptOpt is a functional option for building test DeliveryAttempts.
type AttemptOpt func(*db.DeliveryAttempt)

// NewAttempt creates a db.DeliveryAttempt with sensible defaults: a
// successful first attempt against the given event.
func NewAttempt(eventID pgtype.UUID, number int32, opts ...AttemptOpt) db.DeliveryAttempt {
	a := db.DeliveryAttempt{
		ID:            NewUUID(),
		EventID:       eventID,
		AttemptNumber: number,
		AttemptedAt:   NewTimestamp(),
		HttpStatus:    pgtype.Int4{Int32: http.StatusOK, Valid: true},
		Success:       true,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// NewRedisClient returns a client backed by a fresh miniredis instance that
// is torn down with the test.
func NewRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// AppOpt is a functional option for building test Applications.
type AppOpt func(*app.Application)

// NewTestApp creates an app.Application suitable for testing.
// It uses the provided mock Querier and sensible config defaults.  Queue and
// Limiter start nil; wire them through options when a test exercises the
// delivery path.
func NewTestApp(mockDB *MockQuerier, opts ...AppOpt) *app.Application {
	a := &app.Application{
		Config: config.AppConfig{
			Port:                      8006,
			HmacSecret:                "test-hmac-secret",
			DownstreamUrl:             "http://localhost:8007",
			MaxAttempts:               5,
			BackoffBaseSeconds:        1,
			BackoffFactor:             2,
			BackoffCapSeconds:         16,
			RateLimitPerSec:           100,
			RateAcquireTimeoutSeconds: 2,
			WorkerConcurrency:         2,
			HttpTimeoutSeconds:        5,
			QueueVisibilitySeconds:    60,
			ClaimStaleSeconds:         120,
		},
		DB:         mockDB,
		Metrics:    app.NewMetrics(),
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
