package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweater-ventures/gulp/api"
	"github.com/sweater-ventures/gulp/app"
	"github.com/sweater-ventures/gulp/config"
	"github.com/sweater-ventures/gulp/middleware"
)

func main() {
	config.InitLogging()
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Unable to load configuration!!!", err)
	}

	if appConfig == nil {
		log.Fatal("Nil AppConfig, WTF")
	}

	if appConfig.HmacSecret == "" {
		log.Fatal("HMAC_SECRET is required")
	}

	application, err := app.NewApp(appConfig)
	if err != nil {
		log.Fatal("Unable to initialize application", err)
	}
	defer application.Close()

	slog.Debug("Configuration",
		"DevMode", appConfig.DevMode,
		"LogLevel", appConfig.LogLevel,
		"DownstreamUrl", appConfig.DownstreamUrl,
		"Workers", appConfig.WorkerConcurrency,
		"RateLimitPerSec", appConfig.RateLimitPerSec,
	)

	router := http.NewServeMux()
	api.AddApis(application, router)

	// Start the delivery engine: queue consumer, worker pool, and the sweep
	// that resumes unfinished deliveries.
	app.StartDeliveryEngine(application)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", appConfig.Port),
		Handler: middleware.AllStandardMiddleware(router),
	}

	// Listen for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Starting Gulp", "port", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-sigChan
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Stop feeding workers and let in-flight deliveries finish.  Anything
	// still queued is picked up again on the next start.
	application.StopEngine()
	slog.Info("Shutdown complete")
}
