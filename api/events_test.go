package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/sweater-ventures/gulp/app"
	"github.com/sweater-ventures/gulp/db"
	"github.com/sweater-ventures/gulp/testutil"
)

// callHandler invokes an appHandler via routeHandler with the given app and request.
func callHandler(t *testing.T, gulp *app.Application, handler appHandler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	routeHandler(gulp, handler).ServeHTTP(rec, req)
	return rec
}

// --- GET /webhooks/events/{id} tests ---

func TestGetEvent_Success(t *testing.T) {
	mockDB := new(testutil.MockQuerier)
	gulp := testutil.NewTestApp(mockDB)

	event := testutil.NewEvent(func(e *db.Event) {
		e.IdempotencyKey = pgtype.Text{String: "ord-123", Valid: true}
		e.Status = app.StatusDelivered
		e.AttemptCount = 2
	})
	attempts := []db.DeliveryAttempt{
		testutil.NewAttempt(event.ID, 1, func(a *db.DeliveryAttempt) {
			a.HttpStatus = pgtype.Int4{Int32: 503, Valid: true}
			a.Success = false
			a.ErrorKind = pgtype.Text{String: app.ErrorKindRetryable, Valid: true}
		}),
		testutil.NewAttempt(event.ID, 2),
	}

	mockDB.On("GetEventByID", mock.Anything, event.ID).Return(event, nil)
	mockDB.On("ListAttemptsForEvent", mock.Anything, event.ID).Return(attempts, nil)

	eventID := app.UuidToString(event.ID)
	req := httptest.NewRequest(http.MethodGet, "/webhooks/events/"+eventID, nil)
	req.SetPathValue("id", eventID)

	rec := callHandler(t, gulp, getEventHandler, req)

	var resp EventDetailResponse
	testutil.AssertJSONResponse(t, rec, http.StatusOK, &resp)

	assert.Equal(t, eventID, resp.ID)
	assert.Equal(t, app.StatusDelivered, resp.Status)
	assert.Equal(t, int32(2), resp.AttemptCount)
	if assert.NotNil(t, resp.IdempotencyKey) {
		assert.Equal(t, "ord-123", *resp.IdempotencyKey)
	}
	if assert.NotNil(t, resp.EventType) {
		assert.Equal(t, "test.event", *resp.EventType)
	}
	assert.JSONEq(t, string(event.Payload), string(resp.Payload))

	if assert.Len(t, resp.Attempts, 2) {
		first := resp.Attempts[0]
		assert.Equal(t, int32(1), first.AttemptNumber)
		assert.False(t, first.Success)
		if assert.NotNil(t, first.HttpStatus) {
			assert.Equal(t, int32(503), *first.HttpStatus)
		}
		if assert.NotNil(t, first.ErrorKind) {
			assert.Equal(t, app.ErrorKindRetryable, *first.ErrorKind)
		}
		second := resp.Attempts[1]
		assert.Equal(t, int32(2), second.AttemptNumber)
		assert.True(t, second.Success)
		assert.Nil(t, second.ErrorKind)
	}
	mockDB.AssertExpectations(t)
}

func TestGetEvent_NoAttemptsYet(t *testing.T) {
	mockDB := new(testutil.MockQuerier)
	gulp := testutil.NewTestApp(mockDB)

	event := testutil.NewEvent()
	mockDB.On("GetEventByID", mock.Anything, event.ID).Return(event, nil)
	mockDB.On("ListAttemptsForEvent", mock.Anything, event.ID).Return([]db.DeliveryAttempt{}, nil)

	eventID := app.UuidToString(event.ID)
	req := httptest.NewRequest(http.MethodGet, "/webhooks/events/"+eventID, nil)
	req.SetPathValue("id", eventID)

	rec := callHandler(t, gulp, getEventHandler, req)

	var resp EventDetailResponse
	testutil.AssertJSONResponse(t, rec, http.StatusOK, &resp)
	assert.Equal(t, app.StatusReceived, resp.Status)
	assert.NotNil(t, resp.Attempts)
	assert.Empty(t, resp.Attempts)
	assert.Nil(t, resp.ClaimedAt)
	assert.Nil(t, resp.NextAttemptAt)
}

func TestGetEvent_NonexistentEvent(t *testing.T) {
	mockDB := new(testutil.MockQuerier)
	gulp := testutil.NewTestApp(mockDB)

	eventID := uuid.Must(uuid.NewV7())
	mockDB.On("GetEventByID", mock.Anything, pgtype.UUID{Bytes: eventID, Valid: true}).
		Return(db.Event{}, pgx.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/events/"+eventID.String(), nil)
	req.SetPathValue("id", eventID.String())

	rec := callHandler(t, gulp, getEventHandler, req)
	testutil.AssertJSONError(t, rec, http.StatusNotFound, "event not found")
	mockDB.AssertExpectations(t)
}

func TestGetEvent_InvalidIdFormat(t *testing.T) {
	mockDB := new(testutil.MockQuerier)
	gulp := testutil.NewTestApp(mockDB)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/events/not-a-uuid", nil)
	req.SetPathValue("id", "not-a-uuid")

	rec := callHandler(t, gulp, getEventHandler, req)
	testutil.AssertJSONError(t, rec, http.StatusBadRequest, "id must be a valid UUID")
	mockDB.AssertNotCalled(t, "GetEventByID", mock.Anything, mock.Anything)
}

func TestGetEvent_DbError(t *testing.T) {
	mockDB := new(testutil.MockQuerier)
	gulp := testutil.NewTestApp(mockDB)

	eventID := uuid.Must(uuid.NewV7())
	mockDB.On("GetEventByID", mock.Anything, pgtype.UUID{Bytes: eventID, Valid: true}).
		Return(db.Event{}, assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/events/"+eventID.String(), nil)
	req.SetPathValue("id", eventID.String())

	rec := callHandler(t, gulp, getEventHandler, req)
	testutil.AssertJSONError(t, rec, http.StatusInternalServerError, "Failed to retrieve event")
}

func TestEventToResponse_TimestampsRoundTrip(t *testing.T) {
	claimed := time.Now().UTC().Truncate(time.Millisecond)
	next := claimed.Add(4 * time.Second)
	event := testutil.NewEvent(func(e *db.Event) {
		e.Status = app.StatusDelivering
		e.ClaimedAt = pgtype.Timestamptz{Time: claimed, Valid: true}
		e.NextAttemptAt = pgtype.Timestamptz{Time: next, Valid: true}
	})

	resp := eventToResponse(event)

	if assert.NotNil(t, resp.ClaimedAt) {
		assert.True(t, resp.ClaimedAt.Equal(claimed))
	}
	if assert.NotNil(t, resp.NextAttemptAt) {
		assert.True(t, resp.NextAttemptAt.Equal(next))
	}
}
