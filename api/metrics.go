package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sweater-ventures/gulp/app"
)

func init() {
	registerRoute(func(gulp *app.Application, router *http.ServeMux) {
		router.Handle("GET /metrics", promhttp.HandlerFor(gulp.Metrics.Registry, promhttp.HandlerOpts{}))
	})
}
