package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentrahub/sentra/internal/alerts"
	"github.com/sentrahub/sentra/internal/bus"
	"github.com/sentrahub/sentra/internal/config"
	"github.com/sentrahub/sentra/internal/handlers"
	"github.com/sentrahub/sentra/internal/ingest"
	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/queue"
	"github.com/sentrahub/sentra/internal/recognition"
	"github.com/sentrahub/sentra/internal/registry"
	"github.com/sentrahub/sentra/internal/router"
	"github.com/sentrahub/sentra/internal/store"
	"github.com/sentrahub/sentra/internal/stream"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Hub service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	// Setup snapshot store
	st, err := newStore(cfg.Store)
	if err != nil {
		logger.Fatal("Failed to initialize snapshot store", "error", err)
	}
	defer func() { _ = st.Close() }()
	logger.Info("Snapshot store initialized", "type", storeType(cfg.Store))

	// Connect to broker if one is configured
	var queueClient queue.Queue
	if cfg.Queue.Type != "" {
		logger.Info("Connecting to broker", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
		queueClient, err = queue.New(cfg.Queue)
		if err != nil {
			logger.Fatal("Failed to connect to broker", "error", err)
		}
		defer func() { _ = queueClient.Close() }()
	}

	// Event bus, mirrored to the broker when one is attached
	events := bus.New(logger)
	if queueClient != nil {
		events = events.WithMirror(queueClient)
	}

	// Node registry and liveness monitor
	reg, err := registry.New(cfg.Registry, st, events, logger)
	if err != nil {
		logger.Fatal("Failed to initialize registry", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := registry.NewMonitor(reg, cfg.Registry, logger)
	monitor.Start(ctx)
	defer monitor.Stop()

	// Alert log
	alertLog, err := alerts.New(cfg.Alerts, st, logger)
	if err != nil {
		logger.Fatal("Failed to initialize alert log", "error", err)
	}

	// Known identities and matching engine
	identities, err := recognition.NewIdentityStore(st, events, logger)
	if err != nil {
		logger.Fatal("Failed to initialize identity store", "error", err)
	}
	engine := recognition.NewEuclideanMatcher()

	// Stream proxy and detection pipeline
	proxy := stream.NewProxy(cfg.Stream, reg, logger)
	pipeline := ingest.NewPipeline(reg, alertLog, identities, events, logger)

	// Broker-fed detection worker
	if queueClient != nil {
		worker := ingest.NewWorker(queueClient, pipeline, logger)
		if err := worker.Start(); err != nil {
			logger.Fatal("Failed to start detection worker", "error", err)
		}
		defer func() { _ = worker.Stop() }()
	}

	// Daily detection counters roll over at midnight
	go resetDailyCounters(ctx, reg, logger)

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	// Initialize router
	h := handlers.New(logger, reg, alertLog, identities, engine, proxy, pipeline, events, cfg.Recognition)
	app := router.New(h, logger, cfg.Auth.APIKeys, cfg.Auth.Enabled)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with 10 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Final snapshot so nothing recorded since the last async persist
	// is lost
	if err := reg.Snapshot(); err != nil {
		logger.Warn("Failed to write final node snapshot", "error", err)
	}

	logger.Info("Server exited")
}

// newStore builds the configured snapshot backend
func newStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case "etcd":
		return store.NewEtcdStore(cfg.Etcd.Endpoints, cfg.Etcd.DialTimeout, cfg.Timeout)
	default:
		return store.NewFileStore(cfg.DataDir, cfg.Compress)
	}
}

func storeType(cfg config.StoreConfig) string {
	if cfg.Type == "" {
		return "file"
	}
	return cfg.Type
}

// resetDailyCounters zeroes per-day detection counters at each local
// midnight
func resetDailyCounters(ctx context.Context, reg *registry.Registry, logger *logging.Logger) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			reg.ResetDailyCounters()
			logger.Info("Daily detection counters reset")
		}
	}
}
