package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bridgewatch/internal/analysis"
	"bridgewatch/internal/capture"
	"bridgewatch/internal/config"
	"bridgewatch/internal/database"
	"bridgewatch/internal/detector"
	"bridgewatch/internal/frame"
	"bridgewatch/internal/server"
	"bridgewatch/internal/vision"
	"bridgewatch/internal/ws"
)

func main() {
	var (
		portF  = flag.Int("port", 0, "HTTP port (overrides PORT)")
		noCapF = flag.Bool("no-capture", false, "Disable the background capture loop (serve existing state only)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[bridgewatch] ", log.Ltime)

	cfg := config.Load()
	if *portF != 0 {
		cfg.Port = *portF
	}
	if cfg.StreamURL == "" {
		logger.Printf("Warning: STREAM_URL not set, captures will fail until configured")
	}
	if cfg.ModelAPIKey == "" {
		logger.Printf("Warning: MODEL_API_KEY not set, classification and analysis will fail")
	}

	// Optional durability sink. Everything runs identically without it.
	var db *database.Database
	if cfg.DatabasePath != "" {
		var err error
		db, err = database.New(cfg.DatabasePath)
		if err != nil {
			logger.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			logger.Fatalf("failed to migrate database: %v", err)
		}
		logger.Printf("Persistence sink enabled at %s", cfg.DatabasePath)
	} else {
		logger.Printf("Persistence sink disabled")
	}

	store := frame.NewStore(cfg.BufferLimit, cfg.FreshnessWindow)

	model := vision.NewClient(vision.ClientConfig{
		Endpoint: cfg.ModelEndpoint,
		APIKey:   cfg.ModelAPIKey,
		Model:    cfg.ModelName,
		Timeout:  cfg.ModelTimeout,
	})
	classifier := vision.NewClassifier(model, cfg.MaxImageDim, logger)
	counter := detector.NewClient(cfg.DetectorEndpoint, cfg.DetectorTimeout, logger)
	if !counter.Enabled() {
		logger.Printf("Vehicle counting disabled, analysis will use qualitative estimates")
	}

	hub := ws.NewHub(logger)

	// The sink interfaces are satisfied by *database.Database, but a nil
	// *Database must become a nil interface to actually disable them.
	var frameSink capture.FrameSink
	var readingSink analysis.Sink
	if db != nil {
		frameSink = db
		readingSink = db
	}

	engine := analysis.NewEngine(analysis.EngineConfig{
		Selector:         frame.NewSelector(store),
		Model:            model,
		Counter:          counter,
		Sink:             readingSink,
		Broadcaster:      hub,
		ResponseCacheTTL: cfg.ResponseCacheTTL,
		LatestResultTTL:  cfg.LatestResultTTL,
		MaxImageDim:      cfg.MaxImageDim,
		Logger:           logger,
	})

	scheduler := capture.NewScheduler(
		capture.NewFFmpegGrabber(cfg.StreamURL),
		classifier,
		store,
		frameSink,
		capture.SchedulerConfig{
			Interval: cfg.CaptureInterval,
			Timeout:  cfg.CaptureTimeout,
		},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !*noCapF {
		go scheduler.Run(ctx)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.New(engine, store, scheduler, hub, logger).Router(),
	}

	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()
	go func() {
		logger.Printf("HTTP server listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	logger.Printf("exiting (%v)", <-errc)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("server shutdown failed: %v", err)
	}
	logger.Printf("exited")
}
