// Command dposd is the node process: it loads configuration, opens
// persistent storage, constructs the consensus core (C1-C5), and serves
// the JSON-RPC boundary (§6), mirroring the teacher's cmd/nhb/main.go
// flag-parse-then-wire startup sequence.
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
	"path/filepath"
	"syscall"
	"time"

	"dposcore/config"
	"dposcore/core"
	"dposcore/identity"
	"dposcore/native/score"
	"dposcore/observability/logging"
	"dposcore/observability/tracing"
	"dposcore/rpc"
	"dposcore/storage/archive"
	"dposcore/storage/models"
)

func main() {
	configFile := flag.String("config", "./dposd.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logger := logging.Setup("dposd", cfg.Environment)

	if cfg.SelfAddress == "" {
		logger.Error("SelfAddress is not set in config; the node has no wallet identity to transact from", slog.String("config", *configFile))
		os.Exit(1)
	}
	selfAddr, err := identity.Decode(cfg.SelfAddress)
	if err != nil {
		logger.Error("invalid SelfAddress", slog.String("address", cfg.SelfAddress), slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName: "dposd",
		Environment: cfg.Environment,
		Endpoint:    cfg.TracingEndpoint,
		Insecure:    cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialise tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", slog.Any("error", err))
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", slog.String("dir", cfg.DataDir), slog.Any("error", err))
		os.Exit(1)
	}

	dbPath := filepath.Join(cfg.DataDir, "dposd.db")
	db, err := models.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("path", dbPath), slog.Any("error", err))
		os.Exit(1)
	}

	registryStore := models.NewRegistryStore(db)
	observer := score.NewObserver(score.DefaultWeights())
	coord := core.New(core.Config{
		BlockInterval: cfg.BlockInterval,
		RegistryStore: registryStore,
		Observer:      observer,
	})
	if err := coord.RefreshRanking(coord.Height()); err != nil {
		logger.Error("failed to build initial ranking from persisted registry", slog.Any("error", err))
		os.Exit(1)
	}

	rpcServer := rpc.NewServer(coord, rpc.ServerConfig{
		Credentials:   rpc.Credentials{User: cfg.RPCUser, Password: cfg.RPCPassword},
		JWTSecret:     cfg.JWTSecret,
		BlockInterval: cfg.BlockInterval,
		SelfAddress:   selfAddr,
	})

	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           rpcServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rpcErrCh := make(chan error, 1)
	go func() {
		logger.Info("RPC server listening", slog.String("address", cfg.RPCAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rpcErrCh <- err
			return
		}
		rpcErrCh <- nil
	}()

	exporter := archive.NewExporter(db)
	go runArchiveLoop(ctx, logger, exporter, cfg.DataDir, cfg.ArchiveInterval)

	logger.Info("dposd initialised and running", slog.String("self_address", selfAddr.String()))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-rpcErrCh:
		if err != nil {
			logger.Error("RPC server terminated", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("RPC server shutdown did not complete cleanly", slog.Any("error", err))
	}
}

// runArchiveLoop periodically flushes retired score observations to
// Parquet (C5 archival), matching the teacher's reconciler-on-a-ticker
// shape (services/otc-gateway/recon).
func runArchiveLoop(ctx context.Context, logger *slog.Logger, exporter *archive.Exporter, dataDir string, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			path := filepath.Join(dataDir, fmt.Sprintf("observations-%d.parquet", now.Unix()))
			n, err := exporter.ExportPending(path)
			if err != nil {
				logger.Error("archive export failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Info("archived observation rows", slog.Int("rows", n), slog.String("path", path))
			}
		}
	}
}
