package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/skywatch-data/skywatch/internal/api"
	"github.com/skywatch-data/skywatch/internal/config"
	"github.com/skywatch-data/skywatch/internal/event"
	"github.com/skywatch-data/skywatch/internal/eventmux"
	"github.com/skywatch-data/skywatch/internal/monitoring"
	"github.com/skywatch-data/skywatch/internal/poller"
	"github.com/skywatch-data/skywatch/internal/store"
	"github.com/skywatch-data/skywatch/internal/timeutil"
	"github.com/skywatch-data/skywatch/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	configPath  = flag.String("config", "", "Path to JSON config file (optional)")
	followURL   = flag.String("follow", "", "Upstream events endpoint to poll (optional)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("skywatch %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	clock := timeutil.RealClock{}
	normalizer := event.NewNormalizer(clock)
	hub := eventmux.NewHub()
	defer hub.Close()

	st := store.New(store.Options{
		MaxEvents:     cfg.GetMaxEvents(),
		MaxTelemetry:  cfg.GetMaxTelemetry(),
		MaxDetections: cfg.GetMaxDetections(),
		DefaultLimit:  cfg.GetDefaultQueryLimit(),
	}, normalizer, hub)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional polling consumer following an upstream skywatch instance.
	// Deduplicated snapshots are re-ingested into the local store.
	if *followURL != "" {
		buffer := store.NewDedupBuffer(
			cfg.GetDedupIndexCapacity(),
			cfg.GetDedupFeedCapacity(),
			cfg.GetTelemetryBucketMillis(),
		)
		p := poller.New(poller.Options{
			BaseURL:       *followURL,
			PollInterval:  cfg.GetPollInterval(),
			FlushInterval: cfg.GetFlushInterval(),
			Clock:         clock,
		}, buffer, func(events []*event.Event) {
			for _, ev := range events {
				st.Ingest(ev)
			}
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(ctx)
			monitoring.Logf("poller routine terminated")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		handler := api.LoggingMiddleware(api.NewServer(st, hub, cfg).ServeMux())
		server := &http.Server{
			Addr:    *listen,
			Handler: handler,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			monitoring.Logf("skywatch %s listening on %s", version.Version, *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		monitoring.Logf("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("HTTP server shutdown error: %v", err)
		}

		monitoring.Logf("HTTP server routine stopped")
	}()

	wg.Wait()
	monitoring.Logf("Graceful shutdown complete")
}
