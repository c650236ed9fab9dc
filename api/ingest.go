package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/sweater-ventures/gulp/app"
	"github.com/sweater-ventures/gulp/middleware"
)

func init() {
	registerRoute(func(gulp *app.Application, router *http.ServeMux) {
		router.Handle("POST /webhooks/ingest",
			middleware.SignatureAuthMiddleware(gulp)(routeHandler(gulp, ingestHandler)))
	})
}

type IngestResponse struct {
	Results []app.IngestResult `json:"results"`
}

func ingestHandler(gulp *app.Application, w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJsonResponse(w, http.StatusBadRequest, map[string]string{"error": "unable to read request body"})
		return
	}

	results, err := app.IngestEvents(r.Context(), gulp, body, r.Header.Get("X-Signature"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidBatch) {
			log(r.Context()).Warn("Rejected malformed ingest batch", "error", err)
			writeJsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		log(r.Context()).Error("Failed to ingest batch", "error", err)
		writeJsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to store events"})
		return
	}

	log(r.Context()).Info("Ingested batch", "count", len(results))
	writeJsonResponse(w, http.StatusAccepted, IngestResponse{Results: results})
}
