// Package main is the entry point for the scoutd agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dkiernan/scoutpost/internal/api"
	"github.com/dkiernan/scoutpost/internal/auth"
	"github.com/dkiernan/scoutpost/internal/bus"
	"github.com/dkiernan/scoutpost/internal/config"
	"github.com/dkiernan/scoutpost/internal/engine"
	"github.com/dkiernan/scoutpost/internal/location"
	"github.com/dkiernan/scoutpost/internal/metrics"
	"github.com/dkiernan/scoutpost/internal/middleware"
	"github.com/dkiernan/scoutpost/internal/photo"
	"github.com/dkiernan/scoutpost/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Scoutpost location agent")
		fmt.Println()
		fmt.Println("Usage: scoutd [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	tracer, err := tracing.NewProvider(cfg)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	localStore, err := location.OpenLocal(cfg.LocalDBPath)
	if err != nil {
		logger.Error("failed to open local store", "path", cfg.LocalDBPath, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := localStore.Close(); err != nil {
			logger.Error("failed to close local store", "error", err)
		}
	}()

	session := auth.NewSession()
	remoteStore := location.NewRemoteStore(cfg.RemoteBaseURL, session)

	eventBus := bus.New()
	broadcaster := bus.NewBroadcaster(eventBus)

	engineMetrics := metrics.New()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := engineMetrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	uploader := photo.NewAPIUploader(cfg.RemoteBaseURL, session)
	photoQueue := photo.NewQueue(uploader, engineMetrics)

	coordinator := engine.New(remoteStore, localStore, eventBus, engineMetrics, session.IsAuthenticated())
	session.OnChange(func(authenticated bool) {
		coordinator.OnAuthStateChanged(context.Background(), authenticated)
	})

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := coordinator.Initialize(initCtx); err != nil {
		logger.Warn("initial load failed, starting with empty list", "error", err)
	}
	cancelInit()

	healthHandlers := api.NewHealthHandlers(localStore)
	locationHandlers := api.NewLocationHandlers(coordinator)
	photoHandlers := api.NewPhotoHandlers(photoQueue, int64(cfg.UploadMaxMB)<<20)
	sessionHandlers := api.NewSessionHandlers(session)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/events", broadcaster)
	mux.HandleFunc("/api/v1/locations", locationHandlers.Collection)
	mux.HandleFunc("/api/v1/locations/", locationHandlers.Item)
	mux.HandleFunc("/api/v1/photos", photoHandlers.Collection)
	mux.HandleFunc("/api/v1/photos/flush", photoHandlers.Flush)
	mux.HandleFunc("/api/v1/photos/", photoHandlers.Item)
	mux.HandleFunc("/api/v1/session", sessionHandlers.Session)

	handler := middleware.RequestID(middleware.Logging(logger)(mux))

	// The control surface is for UI shells on the same machine only.
	server := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting agent", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down agent...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := tracer.Shutdown(ctx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}

	logger.Info("agent stopped")
}
