package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sweater-ventures/gulp/app"
	"github.com/sweater-ventures/gulp/db"
)

func init() {
	registerRoute(func(gulp *app.Application, router *http.ServeMux) {
		router.Handle("GET /webhooks/events/{id}", routeHandler(gulp, getEventHandler))
	})
}

type EventResponse struct {
	ID             string          `json:"id"`
	IdempotencyKey *string         `json:"idempotency_key"`
	EventType      *string         `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	Signature      string          `json:"signature"`
	Status         string          `json:"status"`
	ReceivedAt     time.Time       `json:"received_at"`
	ClaimedAt      *time.Time      `json:"claimed_at"`
	AttemptCount   int32           `json:"attempt_count"`
	NextAttemptAt  *time.Time      `json:"next_attempt_at"`
}

type AttemptResponse struct {
	AttemptNumber int32     `json:"attempt_number"`
	AttemptedAt   time.Time `json:"attempted_at"`
	HttpStatus    *int32    `json:"http_status"`
	Success       bool      `json:"success"`
	ErrorKind     *string   `json:"error_kind"`
}

type EventDetailResponse struct {
	EventResponse
	Attempts []AttemptResponse `json:"attempts"`
}

func getEventHandler(gulp *app.Application, w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	parsed, err := uuid.Parse(idStr)
	if err != nil {
		writeJsonResponse(w, http.StatusBadRequest, map[string]string{"error": "id must be a valid UUID"})
		return
	}

	id := pgtype.UUID{Bytes: parsed, Valid: true}
	event, err := gulp.DB.GetEventByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJsonResponse(w, http.StatusNotFound, map[string]string{"error": "event not found"})
			return
		}
		log(r.Context()).Error("Failed to get event", "error", err)
		writeJsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve event"})
		return
	}

	attempts, err := gulp.DB.ListAttemptsForEvent(r.Context(), id)
	if err != nil {
		log(r.Context()).Error("Failed to list delivery attempts", "error", err)
		writeJsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve event"})
		return
	}

	resp := EventDetailResponse{
		EventResponse: eventToResponse(event),
		Attempts:      make([]AttemptResponse, 0, len(attempts)),
	}
	for _, attempt := range attempts {
		resp.Attempts = append(resp.Attempts, attemptToResponse(attempt))
	}
	writeJsonResponse(w, http.StatusOK, resp)
}

func eventToResponse(e db.Event) EventResponse {
	resp := EventResponse{
		ID:           uuidToString(e.ID),
		Payload:      e.Payload,
		Signature:    e.Signature,
		Status:       e.Status,
		ReceivedAt:   e.ReceivedAt.Time,
		AttemptCount: e.AttemptCount,
	}
	if e.IdempotencyKey.Valid {
		s := e.IdempotencyKey.String
		resp.IdempotencyKey = &s
	}
	if e.EventType.Valid {
		s := e.EventType.String
		resp.EventType = &s
	}
	if e.ClaimedAt.Valid {
		t := e.ClaimedAt.Time
		resp.ClaimedAt = &t
	}
	if e.NextAttemptAt.Valid {
		t := e.NextAttemptAt.Time
		resp.NextAttemptAt = &t
	}
	return resp
}

func attemptToResponse(a db.DeliveryAttempt) AttemptResponse {
	resp := AttemptResponse{
		AttemptNumber: a.AttemptNumber,
		AttemptedAt:   a.AttemptedAt.Time,
		Success:       a.Success,
	}
	if a.HttpStatus.Valid {
		code := a.HttpStatus.Int32
		resp.HttpStatus = &code
	}
	if a.ErrorKind.Valid {
		kind := a.ErrorKind.String
		resp.ErrorKind = &kind
	}
	return resp
}

func uuidToString(u pgtype.UUID) string {
	return uuid.UUID(u.Bytes).String()
}
