package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sweater-ventures/gulp/config"
	"github.com/sweater-ventures/gulp/db"
)

// Event lifecycle statuses as stored in the events table.
const (
	StatusReceived          = "RECEIVED"
	StatusDelivering        = "DELIVERING"
	StatusDelivered         = "DELIVERED"
	StatusFailedPermanently = "FAILED_PERMANENTLY"
)

// Error kinds recorded on failed delivery attempts.
const (
	ErrorKindRateLimited = "RATE_LIMITED"
	ErrorKindRetryable   = "RETRYABLE"
	ErrorKindPermanent   = "PERMANENT"
)

const (
	pollIdleDelay  = 100 * time.Millisecond
	pollErrorDelay = time.Second
	sweepInterval  = 30 * time.Second
	sweepBatchSize = 500

	// Cap on how long a locally rate-limited event is deferred.  Waiting out
	// a full backoff step for an event that never reached the wire would
	// starve it behind fresh traffic.
	rateLimitedMaxDefer = 5 * time.Second
)

type deliveryOutcome int

const (
	outcomeSuccess deliveryOutcome = iota
	outcomeRetryable
	outcomeRateLimited
	outcomePermanent
)

// attemptResult is what one downstream POST produced.
type attemptResult struct {
	outcome    deliveryOutcome
	httpStatus pgtype.Int4
	errorKind  pgtype.Text
}

// StartDeliveryEngine launches the queue consumer, the delivery worker pool,
// and the background sweep that re-enqueues runnable events whose queue tasks
// were lost.  The first sweep runs immediately so deliveries interrupted by a
// previous shutdown resume without waiting a full interval.
func StartDeliveryEngine(gulp *Application) {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	tasks := make(chan string)
	var workerWg sync.WaitGroup

	numWorkers := gulp.Config.WorkerConcurrency
	workerWg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer workerWg.Done()
			// Workers use a fresh context so an in-flight attempt finishes
			// cleanly during shutdown instead of aborting mid-request.
			for eventID := range tasks {
				ProcessDelivery(context.Background(), gulp, eventID)
			}
		}()
	}

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		defer close(tasks)
		for {
			eventID, ok, err := gulp.Queue.Dequeue(shutdownCtx)
			if err != nil {
				if shutdownCtx.Err() != nil {
					return
				}
				slog.Error("Failed to poll delivery queue", "error", err)
				if !sleepCtx(shutdownCtx, pollErrorDelay) {
					return
				}
				continue
			}
			if !ok {
				if !sleepCtx(shutdownCtx, pollIdleDelay) {
					return
				}
				continue
			}
			select {
			case tasks <- eventID:
			case <-shutdownCtx.Done():
				// The task stays in-flight in Redis; its visibility deadline
				// hands it to the next consumer.
				return
			}
		}
	}()

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweepRunnable(shutdownCtx, gulp)
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-shutdownCtx.Done():
				return
			case <-ticker.C:
				sweepRunnable(shutdownCtx, gulp)
			}
		}
	}()

	gulp.SetStopEngine(func() {
		shutdownCancel()
		<-consumerDone
		workerWg.Wait()
		<-sweeperDone
		slog.Info("Delivery engine stopped")
	})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// ProcessDelivery runs one delivery task end to end: claim the event, take a
// rate limiter slot, POST downstream, record the attempt, and settle the
// queue task.  Claiming is a CAS on event status, so a task duplicated by
// queue recovery resolves to a no-op here.
func ProcessDelivery(ctx context.Context, gulp *Application, eventID string) {
	logger := log(ctx).With("event_id", eventID)

	parsed, err := uuid.Parse(eventID)
	if err != nil {
		logger.Error("Dropping task with malformed event id", "error", err)
		ackTask(ctx, gulp, eventID, logger)
		return
	}
	id := pgtype.UUID{Bytes: parsed, Valid: true}

	now := time.Now().UTC()
	staleBefore := now.Add(-secondsToDuration(gulp.Config.ClaimStaleSeconds))
	event, err := gulp.DB.ClaimEvent(ctx, db.ClaimEventParams{
		ClaimedAt:   pgtype.Timestamptz{Time: now, Valid: true},
		ID:          id,
		StaleBefore: pgtype.Timestamptz{Time: staleBefore, Valid: true},
	})
	if errors.Is(err, pgx.ErrNoRows) {
		// Already settled, or validly claimed by another worker.
		logger.Debug("Event not claimable, dropping task")
		ackTask(ctx, gulp, eventID, logger)
		return
	}
	if err != nil {
		logger.Error("Failed to claim event", "error", err)
		retryTask(ctx, gulp, eventID, pollErrorDelay, logger)
		return
	}

	acquireTimeout := secondsToDuration(gulp.Config.RateAcquireTimeoutSeconds)
	allowed, err := gulp.Limiter.Acquire(ctx, acquireTimeout)
	if err != nil {
		logger.Error("Rate limiter unavailable, releasing claim", "error", err)
		releaseEvent(ctx, gulp, id, now, logger)
		retryTask(ctx, gulp, eventID, pollErrorDelay, logger)
		return
	}
	if !allowed {
		// No slot came free within the acquire timeout.  The event never
		// reached the wire, so no attempt is consumed: hand the claim back
		// and come around again shortly.
		delay := backoffDelay(&gulp.Config, int(event.AttemptCount)+1)
		if delay > rateLimitedMaxDefer {
			delay = rateLimitedMaxDefer
		}
		logger.Info("Rate limited locally, deferring delivery",
			"attempt_count", event.AttemptCount,
			"delay_seconds", delay.Seconds(),
		)
		releaseEvent(ctx, gulp, id, now.Add(delay), logger)
		retryTask(ctx, gulp, eventID, delay, logger)
		return
	}

	result := deliverDownstream(ctx, gulp, event, logger)

	attemptNumber := int(event.AttemptCount) + 1
	nextStatus := StatusFailedPermanently
	var nextAttemptAt pgtype.Timestamptz
	var retryDelay time.Duration

	switch result.outcome {
	case outcomeSuccess:
		nextStatus = StatusDelivered
	case outcomeRetryable, outcomeRateLimited:
		if attemptNumber < gulp.Config.MaxAttempts {
			nextStatus = StatusReceived
			retryDelay = backoffDelay(&gulp.Config, attemptNumber)
			nextAttemptAt = pgtype.Timestamptz{Time: now.Add(retryDelay), Valid: true}
		}
	case outcomePermanent:
	}

	_, err = gulp.DB.RecordAttempt(ctx, db.RecordAttemptParams{
		NextStatus:    nextStatus,
		NextAttemptAt: nextAttemptAt,
		EventID:       id,
		ID:            pgtype.UUID{Bytes: uuid.Must(uuid.NewV7()), Valid: true},
		AttemptNumber: int32(attemptNumber),
		AttemptedAt:   pgtype.Timestamptz{Time: now, Valid: true},
		HttpStatus:    result.httpStatus,
		Success:       result.outcome == outcomeSuccess,
		ErrorKind:     result.errorKind,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		// The claim moved under us.  Whoever holds it now settles the queue
		// task, so leave it alone.
		logger.Warn("Event no longer claimed, abandoning attempt result",
			"attempt", attemptNumber,
			"http_status", result.httpStatus.Int32,
		)
		return
	}
	if err != nil {
		logger.Error("Failed to record attempt", "error", err)
		releaseEvent(ctx, gulp, id, now, logger)
		retryTask(ctx, gulp, eventID, pollErrorDelay, logger)
		return
	}

	switch nextStatus {
	case StatusDelivered:
		gulp.Metrics.DeliveriesSucceeded.Inc()
		logger.Info("Delivery succeeded",
			"attempt", attemptNumber,
			"http_status", result.httpStatus.Int32,
		)
		ackTask(ctx, gulp, eventID, logger)
	case StatusReceived:
		gulp.Metrics.RetryAttempts.Inc()
		logger.Info("Scheduling retry",
			"attempt", attemptNumber,
			"next_attempt", attemptNumber+1,
			"delay_seconds", retryDelay.Seconds(),
			"error_kind", result.errorKind.String,
		)
		retryTask(ctx, gulp, eventID, retryDelay, logger)
	case StatusFailedPermanently:
		gulp.Metrics.DeliveriesFailed.Inc()
		logger.Warn("Delivery failed permanently",
			"attempt", attemptNumber,
			"http_status", result.httpStatus.Int32,
			"error_kind", result.errorKind.String,
		)
		ackTask(ctx, gulp, eventID, logger)
	}
}

// deliverDownstream POSTs the event payload to the downstream consumer and
// classifies the result.  Errors before a response arrives are retryable.
func deliverDownstream(ctx context.Context, gulp *Application, event db.Event, logger *slog.Logger) attemptResult {
	url := strings.TrimSuffix(gulp.Config.DownstreamUrl, "/") + "/receive"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(event.Payload))
	if err != nil {
		logger.Error("Failed to create delivery request", "error", err, "url", url)
		return attemptResult{
			outcome:   outcomeRetryable,
			errorKind: pgtype.Text{String: ErrorKindRetryable, Valid: true},
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Id", UuidToString(event.ID))

	start := time.Now()
	resp, err := gulp.HTTPClient.Do(req)
	gulp.Metrics.DeliveryLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Warn("Delivery request failed", "error", err, "url", url)
		return attemptResult{
			outcome:   outcomeRetryable,
			errorKind: pgtype.Text{String: ErrorKindRetryable, Valid: true},
		}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024*1024))

	outcome, kind := classifyResponse(resp.StatusCode)
	result := attemptResult{
		outcome:    outcome,
		httpStatus: pgtype.Int4{Int32: int32(resp.StatusCode), Valid: true},
	}
	if kind != "" {
		result.errorKind = pgtype.Text{String: kind, Valid: true}
	}
	return result
}

// classifyResponse maps a downstream status code to an outcome: 2xx is
// success, 429 is rate limited, 5xx is retryable, anything else is permanent.
func classifyResponse(statusCode int) (deliveryOutcome, string) {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return outcomeSuccess, ""
	case statusCode == http.StatusTooManyRequests:
		return outcomeRateLimited, ErrorKindRateLimited
	case statusCode >= 500:
		return outcomeRetryable, ErrorKindRetryable
	default:
		return outcomePermanent, ErrorKindPermanent
	}
}

// backoffDelay returns the wait before the attempt after attemptNumber.
// Base delay doubling each attempt by default: 1s, 2s, 4s, 8s, 16s, capped.
func backoffDelay(config *config.AppConfig, attemptNumber int) time.Duration {
	delaySeconds := config.BackoffBaseSeconds * math.Pow(config.BackoffFactor, float64(attemptNumber-1))
	if delaySeconds > config.BackoffCapSeconds {
		delaySeconds = config.BackoffCapSeconds
	}
	return secondsToDuration(delaySeconds)
}

// sweepRunnable re-enqueues events the database says are runnable: due
// RECEIVED events and DELIVERING events whose claim went stale.  Duplicate
// queue tasks this produces are harmless, the claim CAS drops them.
func sweepRunnable(ctx context.Context, gulp *Application) {
	now := time.Now().UTC()
	ids, err := gulp.DB.ListRunnableEvents(ctx, db.ListRunnableEventsParams{
		Now:         pgtype.Timestamptz{Time: now, Valid: true},
		StaleBefore: pgtype.Timestamptz{Time: now.Add(-secondsToDuration(gulp.Config.ClaimStaleSeconds)), Valid: true},
		RowLimit:    sweepBatchSize,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Failed to list runnable events", "error", err)
		return
	}
	for _, id := range ids {
		if err := gulp.Queue.Enqueue(ctx, UuidToString(id), 0); err != nil {
			slog.Error("Failed to enqueue runnable event", "error", err, "event_id", UuidToString(id))
			return
		}
	}
	if len(ids) > 0 {
		slog.Info("Requeued runnable events", "count", len(ids))
	}
}

func ackTask(ctx context.Context, gulp *Application, eventID string, logger *slog.Logger) {
	if err := gulp.Queue.Ack(ctx, eventID); err != nil {
		logger.Error("Failed to ack delivery task", "error", err)
	}
}

func retryTask(ctx context.Context, gulp *Application, eventID string, delay time.Duration, logger *slog.Logger) {
	if err := gulp.Queue.Retry(ctx, eventID, delay); err != nil {
		logger.Error("Failed to requeue delivery task", "error", err)
	}
}

func releaseEvent(ctx context.Context, gulp *Application, id pgtype.UUID, nextAttemptAt time.Time, logger *slog.Logger) {
	_, err := gulp.DB.ReleaseEvent(ctx, db.ReleaseEventParams{
		NextAttemptAt: pgtype.Timestamptz{Time: nextAttemptAt, Valid: true},
		ID:            id,
	})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		logger.Error("Failed to release claim", "error", err)
	}
}
