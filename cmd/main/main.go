package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/CTAG07/Zilean/pkg/collector"
	"github.com/CTAG07/Zilean/pkg/ingest"
	"github.com/CTAG07/Zilean/pkg/registry"
	"github.com/CTAG07/Zilean/pkg/storage"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "./config.json", "path to the JSON configuration file")
	flag.Parse()

	baseLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	actionChan := make(chan string, 1)

	go func() {
		osSignalChan := make(chan os.Signal, 1)
		signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
		<-osSignalChan
		baseLogger.Info("OS signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	for {
		action, err := run(*configPath, actionChan)
		if err != nil {
			baseLogger.Error("An error occurred during server run, shutting down.", "error", err)
			os.Exit(1)
		}
		if action != actionRestart {
			break
		}
		baseLogger.Info("--- Server Restarting ---")
	}

	baseLogger.Info("Zilean has shut down.")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newSupervisor(logger *slog.Logger, cfg *SupervisorConfig, shutdownTimeout time.Duration) *suture.Supervisor {
	handler := &sutureslog.Handler{Logger: logger}
	return suture.New("zilean", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecaySec,
		FailureBackoff:   time.Duration(cfg.FailureBackoffSec) * time.Second,
		Timeout:          shutdownTimeout,
	})
}

// run hosts the API server and the collector poller, and returns whenever
// the server is shut down or restarted.
func run(configPath string, actionChan chan string) (string, error) {
	cm, err := NewConfigManager(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := cm.Get()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Server.LogLevel)}))
	cm.SetLogger(logger)
	logger.Info("Starting server cycle...", "version", Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return "", fmt.Errorf("failed to open storage: %w", err)
	}
	db := storage.NewDatabase(backend)
	db.SetLogger(logger)
	defer func() {
		logger.Info("Closing storage.")
		if err := db.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()
	logger.Info("Storage opened", "backend", cfg.Storage.Backend)

	reg := registry.New(db)
	reg.SetLogger(logger)
	ingester := ingest.NewIngester(reg, cfg.Server.IngestConcurrency)
	ingester.SetLogger(logger)

	server := NewServer(cm, db, reg, ingester, actionChan, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.ApiAddr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sup := newSupervisor(logger, cfg.Supervisor, cfg.Server.ShutdownTimeout())
	sup.Add(newHTTPService(httpServer, cfg.Server.ShutdownTimeout()))
	logger.Info("Starting API server", "address", cfg.Server.ApiAddr)

	if cfg.Collector.Enabled {
		runner := collector.NewRunner(cfg.Collector, collector.WithLogger(logger))
		poller := ingest.NewPoller(runner, ingester, time.Duration(cfg.Collector.MinCooldownSec)*time.Second)
		poller.SetLogger(logger)
		sup.Add(poller)
		logger.Info("Launching collector", "command", cfg.Collector.Command, "args", cfg.Collector.Args)
	} else {
		logger.Info("Collector disabled")
	}

	supErr := sup.ServeBackground(ctx)

	var action string
	select {
	case action = <-actionChan:
	case err = <-supErr:
		return "", fmt.Errorf("supervisor stopped unexpectedly: %w", err)
	}

	logger.Info("Stopping services for " + action + "...")
	cancel()
	if err = <-supErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Supervisor stopped with an error", "error", err)
	}
	logger.Info("Services stopped.")

	return action, nil
}
