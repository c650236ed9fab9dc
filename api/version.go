package api

import (
	"net/http"

	"github.com/sweater-ventures/gulp/app"
	"github.com/sweater-ventures/gulp/config"
)

func init() {
	registerRoute(func(gulp *app.Application, router *http.ServeMux) {
		router.Handle("/version", routeHandler(gulp, versionApiHandler))
	})
}

type VersionResponse struct {
	App     string `json:"app"`
	Version string `json:"version"`
}

func versionApiHandler(gulp *app.Application, w http.ResponseWriter, r *http.Request) {
	// write (using JSON) the version response
	writeJsonResponse(w, http.StatusOK, VersionResponse{
		App:     "gulp",
		Version: config.Version,
	})
}
