// Command splitterd is a demo fan-out service built around the splitter
// library: it subscribes to one NATS subject as the stream's single
// producer and serves an authenticated WebSocket endpoint to any number of
// consumers, each backed by its own bounded splitter client.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/d13mon/ISplitter/internal/auth"
	"github.com/d13mon/ISplitter/internal/config"
	"github.com/d13mon/ISplitter/internal/ingest"
	"github.com/d13mon/ISplitter/internal/logging"
	"github.com/d13mon/ISplitter/internal/metrics"
	"github.com/d13mon/ISplitter/internal/sysinfo"
	"github.com/d13mon/ISplitter/internal/transport"
	"github.com/d13mon/ISplitter/splitter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // nolint:errcheck

	metricsRegistry := metrics.NewRegistry()
	sys := sysinfo.NewTracker()
	sysStop := make(chan struct{})
	go sys.Run(sysStop, time.Second)
	defer close(sysStop)

	splitr := splitter.New(cfg.Splitter.MaxBuffers, cfg.Splitter.MaxClients)
	authMgr := auth.NewManager(cfg.Secrets.JWTSigningKey, 24*time.Hour)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ingestor, err := ingest.New(cfg.Ingest, cfg.Secrets.NATSToken, splitr, cfg.Splitter.PutTimeoutMs, metricsRegistry, logger)
	if err != nil {
		logger.Fatal("failed to connect ingest", zap.Error(err))
	}
	if err := ingestor.Subscribe(cfg.Ingest.Subject); err != nil {
		logger.Fatal("failed to subscribe", zap.Error(err))
	}
	defer ingestor.Close()

	transportServer := transport.New(cfg.Server, cfg.Splitter.GetTimeoutMs, splitr, authMgr, metricsRegistry, logger)
	if err := transportServer.Start(ctx); err != nil {
		logger.Fatal("transport start failed", zap.Error(err))
	}

	httpErrCh := make(chan error, 1)
	go func() {
		httpErrCh <- runAdminServer(ctx, cfg, splitr, sys, metricsRegistry, logger)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-httpErrCh:
		if err != nil {
			logger.Error("admin server error", zap.Error(err))
		}
		stop()
	}

	splitr.Close()
	transportServer.Stop()
	logger.Info("splitterd stopped")
}

func runAdminServer(ctx context.Context, cfg config.Config, splitr *splitter.Splitter, sys *sysinfo.Tracker, metricsRegistry *metrics.Registry, logger *zap.Logger) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"clients":   splitr.ClientCount(),
			"system":    sys.Snapshot(),
		})
	})

	mux.HandleFunc("/clients", func(w http.ResponseWriter, r *http.Request) {
		n := splitr.ClientCount()
		out := make([]map[string]any, 0, n)
		for i := 0; i < n; i++ {
			id, latency, dropped, ok := splitr.StatsByIndex(i)
			if !ok {
				continue
			}
			out = append(out, map[string]any{
				"id":      id,
				"latency": latency,
				"dropped": dropped,
			})
		}
		writeJSON(w, out)
	})

	mux.Handle(cfg.Metrics.Endpoint, metricsRegistry.Handler())

	httpServer := &http.Server{
		Addr:         cfg.Metrics.ListenAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin http server starting", zap.String("addr", cfg.Metrics.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin http server shutdown error", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
