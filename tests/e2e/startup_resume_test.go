package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweater-ventures/gulp/app"
	"github.com/sweater-ventures/gulp/db"
)

// Events accepted before a restart exist only in the database; the queue in
// redis starts empty.  The startup sweep has to find and deliver them while
// leaving already-settled events untouched.
func TestStartupResume_PendingEventsAreDelivered(t *testing.T) {
	truncateAll(t)
	down, server := newDownstream(t, http.StatusOK)
	gulp := newTestApp(t, server.URL)

	pending := []db.Event{
		seedEvent(t, gulp.DB),
		seedEvent(t, gulp.DB),
		seedEvent(t, gulp.DB),
	}
	settled := []db.Event{
		seedEvent(t, gulp.DB, func(p *db.InsertEventParams) { p.Status = app.StatusDelivered }),
		seedEvent(t, gulp.DB, func(p *db.InsertEventParams) { p.Status = app.StatusFailedPermanently }),
	}

	startEngine(t, gulp)

	for _, event := range pending {
		waitForEventStatus(t, gulp.DB, event.ID, app.StatusDelivered, 10*time.Second)
	}

	// Settled events stay exactly as they were.
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 3, down.hits())
	for _, event := range settled {
		current, err := gulp.DB.GetEventByID(context.Background(), event.ID)
		require.NoError(t, err)
		assert.Equal(t, event.Status, current.Status)
		assert.Equal(t, int32(0), current.AttemptCount)
		assert.False(t, current.ClaimedAt.Valid)
	}
}

// An event whose retry came due while the service was down is picked up on
// the next sweep rather than waiting for a queue entry that no longer exists.
func TestStartupResume_DueRetryIsPickedUp(t *testing.T) {
	truncateAll(t)
	down, server := newDownstream(t, http.StatusOK)
	gulp := newTestApp(t, server.URL)

	event := seedEvent(t, gulp.DB)
	_, err := testPool.Exec(context.Background(),
		"UPDATE events SET attempt_count = 1, next_attempt_at = now() - interval '1 minute' WHERE id = $1",
		event.ID)
	require.NoError(t, err)

	startEngine(t, gulp)

	delivered := waitForEventStatus(t, gulp.DB, event.ID, app.StatusDelivered, 10*time.Second)
	assert.Equal(t, int32(2), delivered.AttemptCount)
	assert.Equal(t, 1, down.hits())
}
