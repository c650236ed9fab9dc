package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sweater-ventures/gulp/app"
	"github.com/sweater-ventures/gulp/db"
)

func init() {
	registerRoute(func(gulp *app.Application, router *http.ServeMux) {
		router.Handle("POST /webhooks/search", routeHandler(gulp, searchEventsHandler))
	})
}

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 200
)

type SearchRequest struct {
	Status    *string    `json:"status"`
	EventType *string    `json:"event_type"`
	From      *time.Time `json:"from"`
	To        *time.Time `json:"to"`
	Skip      int        `json:"skip"`
	Limit     int        `json:"limit"`
}

type SearchAggregates struct {
	ByStatus map[string]int64 `json:"by_status"`
	ByType   map[string]int64 `json:"by_type"`
	Hourly   map[string]int64 `json:"hourly"`
}

type SearchResponse struct {
	Total      int64            `json:"total"`
	Items      []EventResponse  `json:"items"`
	Aggregates SearchAggregates `json:"aggregates"`
}

func searchEventsHandler(gulp *app.Application, w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	statuses := []string{}
	if req.Status != nil {
		if !validSearchStatus(*req.Status) {
			writeJsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		statuses = append(statuses, *req.Status)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	skip := req.Skip
	if skip < 0 {
		skip = 0
	}

	var eventType pgtype.Text
	if req.EventType != nil {
		eventType = pgtype.Text{String: *req.EventType, Valid: true}
	}
	var from, to pgtype.Timestamptz
	if req.From != nil {
		from = pgtype.Timestamptz{Time: req.From.UTC(), Valid: true}
	}
	if req.To != nil {
		to = pgtype.Timestamptz{Time: req.To.UTC(), Valid: true}
	}

	events, err := gulp.DB.SearchEvents(r.Context(), db.SearchEventsParams{
		Statuses:     statuses,
		EventType:    eventType,
		ReceivedFrom: from,
		ReceivedTo:   to,
		RowLimit:     int32(limit),
		RowOffset:    int32(skip),
	})
	if err != nil {
		log(r.Context()).Error("Failed to search events", "error", err)
		writeJsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to search events"})
		return
	}

	filters := db.CountEventsParams{
		Statuses:     statuses,
		EventType:    eventType,
		ReceivedFrom: from,
		ReceivedTo:   to,
	}
	total, err := gulp.DB.CountEvents(r.Context(), filters)
	if err != nil {
		log(r.Context()).Error("Failed to count events", "error", err)
		writeJsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to search events"})
		return
	}

	aggregates, err := loadAggregates(gulp, r, filters)
	if err != nil {
		log(r.Context()).Error("Failed to aggregate events", "error", err)
		writeJsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to search events"})
		return
	}

	resp := SearchResponse{
		Total:      total,
		Items:      make([]EventResponse, 0, len(events)),
		Aggregates: aggregates,
	}
	for _, event := range events {
		resp.Items = append(resp.Items, eventToResponse(event))
	}
	writeJsonResponse(w, http.StatusOK, resp)
}

// loadAggregates runs the three group-by queries over the same filters the
// item query used.
func loadAggregates(gulp *app.Application, r *http.Request, filters db.CountEventsParams) (SearchAggregates, error) {
	aggregates := SearchAggregates{
		ByStatus: make(map[string]int64),
		ByType:   make(map[string]int64),
		Hourly:   make(map[string]int64),
	}

	byStatus, err := gulp.DB.CountEventsByStatus(r.Context(), db.CountEventsByStatusParams(filters))
	if err != nil {
		return aggregates, err
	}
	for _, row := range byStatus {
		aggregates.ByStatus[row.Status] = row.Count
	}

	byType, err := gulp.DB.CountEventsByType(r.Context(), db.CountEventsByTypeParams(filters))
	if err != nil {
		return aggregates, err
	}
	for _, row := range byType {
		aggregates.ByType[row.EventType] = row.Count
	}

	hourly, err := gulp.DB.CountEventsByHour(r.Context(), db.CountEventsByHourParams(filters))
	if err != nil {
		return aggregates, err
	}
	for _, row := range hourly {
		aggregates.Hourly[row.Hour] = row.Count
	}

	return aggregates, nil
}

func validSearchStatus(status string) bool {
	switch status {
	case app.StatusReceived, app.StatusDelivering, app.StatusDelivered, app.StatusFailedPermanently:
		return true
	}
	return false
}
