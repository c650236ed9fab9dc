package api

import (
	"net/http"

	"github.com/sweater-ventures/gulp/app"
)

func init() {
	registerRoute(func(gulp *app.Application, router *http.ServeMux) {
		router.Handle("GET /health", routeHandler(gulp, healthHandler))
	})
}

func healthHandler(gulp *app.Application, w http.ResponseWriter, r *http.Request) {
	if err := gulp.Ping(r.Context()); err != nil {
		log(r.Context()).Error("Health check failed", "error", err)
		writeJsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
