package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweater-ventures/gulp/api"
	"github.com/sweater-ventures/gulp/app"
	"github.com/sweater-ventures/gulp/db"
)

// seedSearchFixture stores six events spread over two hours, three types and
// three statuses.  Returned in ascending received_at order.
func seedSearchFixture(t *testing.T, queries db.Querier) []db.Event {
	t.Helper()
	at := func(hour, minute int) pgtype.Timestamptz {
		return pgtype.Timestamptz{Time: time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC), Valid: true}
	}
	mk := func(eventType, status string, ts pgtype.Timestamptz) db.Event {
		return seedEvent(t, queries, func(p *db.InsertEventParams) {
			p.EventType = pgtype.Text{String: eventType, Valid: true}
			p.Status = status
			p.ReceivedAt = ts
		})
	}
	return []db.Event{
		mk("orders.created", app.StatusDelivered, at(10, 0)),
		mk("orders.created", app.StatusDelivered, at(10, 10)),
		mk("orders.created", app.StatusDelivered, at(10, 20)),
		mk("orders.updated", app.StatusReceived, at(11, 5)),
		mk("orders.updated", app.StatusReceived, at(11, 15)),
		mk("payments.captured", app.StatusFailedPermanently, at(11, 30)),
	}
}

func search(t *testing.T, router *http.ServeMux, body string) api.SearchResponse {
	t.Helper()
	rec := postJSON(t, router, "/webhooks/search", []byte(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp api.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSearchE2E_UnfilteredTotalsAndAggregates(t *testing.T) {
	truncateAll(t)
	gulp := newTestApp(t, "http://localhost:1")
	router := newTestRouter(t, gulp)
	seeded := seedSearchFixture(t, gulp.DB)

	resp := search(t, router, `{}`)
	assert.Equal(t, int64(6), resp.Total)
	require.Len(t, resp.Items, 6)

	// Newest first.
	assert.Equal(t, app.UuidToString(seeded[5].ID), resp.Items[0].ID)
	assert.Equal(t, app.UuidToString(seeded[0].ID), resp.Items[5].ID)

	assert.Equal(t, map[string]int64{
		app.StatusDelivered:         3,
		app.StatusReceived:          2,
		app.StatusFailedPermanently: 1,
	}, resp.Aggregates.ByStatus)
	assert.Equal(t, map[string]int64{
		"orders.created":    3,
		"orders.updated":    2,
		"payments.captured": 1,
	}, resp.Aggregates.ByType)
	assert.Equal(t, map[string]int64{
		"2026-03-14 10:00": 3,
		"2026-03-14 11:00": 3,
	}, resp.Aggregates.Hourly)
}

func TestSearchE2E_FiltersByStatusAndType(t *testing.T) {
	truncateAll(t)
	gulp := newTestApp(t, "http://localhost:1")
	router := newTestRouter(t, gulp)
	seedSearchFixture(t, gulp.DB)

	byStatus := search(t, router, `{"status":"DELIVERED"}`)
	assert.Equal(t, int64(3), byStatus.Total)
	require.Len(t, byStatus.Items, 3)
	for _, item := range byStatus.Items {
		assert.Equal(t, app.StatusDelivered, item.Status)
		require.NotNil(t, item.EventType)
		assert.Equal(t, "orders.created", *item.EventType)
	}

	byType := search(t, router, `{"event_type":"orders.updated"}`)
	assert.Equal(t, int64(2), byType.Total)
	assert.Equal(t, map[string]int64{app.StatusReceived: 2}, byType.Aggregates.ByStatus)

	combined := search(t, router, `{"status":"RECEIVED","from":"2026-03-14T11:10:00Z"}`)
	assert.Equal(t, int64(1), combined.Total)
	require.Len(t, combined.Items, 1)
	assert.True(t, combined.Items[0].ReceivedAt.Equal(time.Date(2026, 3, 14, 11, 15, 0, 0, time.UTC)))
}

func TestSearchE2E_FiltersByTimeRange(t *testing.T) {
	truncateAll(t)
	gulp := newTestApp(t, "http://localhost:1")
	router := newTestRouter(t, gulp)
	seedSearchFixture(t, gulp.DB)

	late := search(t, router, `{"from":"2026-03-14T11:00:00Z"}`)
	assert.Equal(t, int64(3), late.Total)
	assert.Equal(t, map[string]int64{"2026-03-14 11:00": 3}, late.Aggregates.Hourly)

	early := search(t, router, `{"to":"2026-03-14T10:59:00Z"}`)
	assert.Equal(t, int64(3), early.Total)
	assert.Equal(t, map[string]int64{"2026-03-14 10:00": 3}, early.Aggregates.Hourly)
}

func TestSearchE2E_PaginatesDeterministically(t *testing.T) {
	truncateAll(t)
	gulp := newTestApp(t, "http://localhost:1")
	router := newTestRouter(t, gulp)
	seeded := seedSearchFixture(t, gulp.DB)

	// Descending received_at: seeded[5] down to seeded[0].
	wantOrder := []string{
		app.UuidToString(seeded[5].ID),
		app.UuidToString(seeded[4].ID),
		app.UuidToString(seeded[3].ID),
		app.UuidToString(seeded[2].ID),
		app.UuidToString(seeded[1].ID),
		app.UuidToString(seeded[0].ID),
	}

	var paged []string
	for skip := 0; skip < 6; skip += 2 {
		resp := search(t, router, fmt.Sprintf(`{"limit":2,"skip":%d}`, skip))
		assert.Equal(t, int64(6), resp.Total)
		require.Len(t, resp.Items, 2)
		paged = append(paged, resp.Items[0].ID, resp.Items[1].ID)
	}
	assert.Equal(t, wantOrder, paged)
}

func TestSearchE2E_RejectsUnknownStatus(t *testing.T) {
	truncateAll(t)
	gulp := newTestApp(t, "http://localhost:1")
	router := newTestRouter(t, gulp)

	rec := postJSON(t, router, "/webhooks/search", []byte(`{"status":"SHIPPED"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid status filter")
}
