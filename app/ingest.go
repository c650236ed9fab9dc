package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sweater-ventures/gulp/db"
)

// ErrInvalidBatch marks ingest bodies that failed validation.  Everything
// else out of IngestEvents is an infrastructure error.
var ErrInvalidBatch = errors.New("invalid batch")

type IngestResult struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

// eventEnvelope is the part of an ingested element the pipeline itself
// reads.  The rest of the payload is opaque and forwarded untouched.
type eventEnvelope struct {
	IdempotencyKey *string `json:"idempotency_key"`
	EventType      *string `json:"event_type"`
}

// IngestEvents stores every element of a signed batch and enqueues the new
// ones for delivery.  Elements carrying an idempotency_key already seen
// before are not stored again; their result reports the original event id
// with duplicate set.  Results come back in input order.
func IngestEvents(ctx context.Context, gulp *Application, body []byte, signature string) ([]IngestResult, error) {
	elements, err := splitBatch(body)
	if err != nil {
		return nil, err
	}

	// Validate the whole batch before storing any of it, so a rejected
	// request never leaves a partial batch behind.
	envelopes := make([]eventEnvelope, len(elements))
	for i, element := range elements {
		if err := json.Unmarshal(element, &envelopes[i]); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidBatch, i, err)
		}
	}

	results := make([]IngestResult, 0, len(elements))
	for i, element := range elements {
		envelope := envelopes[i]

		params := db.InsertEventParams{
			ID:         pgtype.UUID{Bytes: uuid.Must(uuid.NewV7()), Valid: true},
			Payload:    element,
			Signature:  signature,
			Status:     StatusReceived,
			ReceivedAt: pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
		}
		if envelope.IdempotencyKey != nil {
			params.IdempotencyKey = pgtype.Text{String: *envelope.IdempotencyKey, Valid: true}
		}
		if envelope.EventType != nil {
			params.EventType = pgtype.Text{String: *envelope.EventType, Valid: true}
		}

		inserted, err := gulp.DB.InsertEvent(ctx, params)
		switch {
		case err == nil:
			if err := gulp.Queue.Enqueue(ctx, UuidToString(inserted.ID), 0); err != nil {
				// The insert is committed either way; the sweep re-enqueues
				// runnable events this misses.
				log(ctx).Error("Failed to enqueue event for delivery",
					"error", err, "event_id", UuidToString(inserted.ID))
			}
			results = append(results, IngestResult{ID: UuidToString(inserted.ID)})
		case errors.Is(err, pgx.ErrNoRows):
			existing, err := gulp.DB.GetEventByIdempotencyKey(ctx, params.IdempotencyKey)
			if err != nil {
				return nil, err
			}
			results = append(results, IngestResult{ID: UuidToString(existing.ID), Duplicate: true})
		default:
			return nil, err
		}
		gulp.Metrics.EventsReceived.Inc()
	}
	return results, nil
}

// splitBatch parses an ingest body into its payload elements.  A JSON array
// yields its elements, a bare JSON object is a one-element batch.  Every
// element must itself be a JSON object.
func splitBatch(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidBatch)
	}

	if trimmed[0] == '[' {
		var elements []json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
		}
		for i, element := range elements {
			if !isJSONObject(element) {
				return nil, fmt.Errorf("%w: element %d is not a JSON object", ErrInvalidBatch, i)
			}
		}
		return elements, nil
	}

	if !isJSONObject(trimmed) {
		return nil, fmt.Errorf("%w: body is neither a JSON object nor an array", ErrInvalidBatch)
	}
	var single map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	return []json.RawMessage{json.RawMessage(trimmed)}, nil
}

func isJSONObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}
