package e2e

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweater-ventures/gulp/app"
)

func TestPermanentFailure_ClientErrorFailsWithoutRetry(t *testing.T) {
	truncateAll(t)
	down, server := newDownstream(t, http.StatusNotFound)
	gulp := newTestApp(t, server.URL)
	router := newTestRouter(t, gulp)
	startEngine(t, gulp)

	result := ingestOne(t, router, []byte(`{"idempotency_key":"perm-1","event_type":"orders.created"}`))

	event := waitForEventStatus(t, gulp.DB, parseUUID(t, result.ID), app.StatusFailedPermanently, 5*time.Second)
	assert.Equal(t, int32(1), event.AttemptCount)
	assert.False(t, event.NextAttemptAt.Valid)

	detail := getEventDetail(t, router, result.ID)
	require.Len(t, detail.Attempts, 1)
	attempt := detail.Attempts[0]
	assert.Equal(t, int32(1), attempt.AttemptNumber)
	assert.False(t, attempt.Success)
	require.NotNil(t, attempt.HttpStatus)
	assert.Equal(t, int32(404), *attempt.HttpStatus)
	require.NotNil(t, attempt.ErrorKind)
	assert.Equal(t, app.ErrorKindPermanent, *attempt.ErrorKind)

	// No retry budget is spent on a permanent rejection.
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 1, down.hits())

	metricsRec := doGet(t, router, "/metrics")
	assert.Contains(t, metricsRec.Body.String(), "deliveries_failed_total 1")
	assert.Contains(t, metricsRec.Body.String(), "retry_attempts_total 0")
}
