// Package main is the entry point for the Reactor Idle simulation server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/engine"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/infra/storage"
	"github.com/MRamiBalles/ReactorIdle/server/internal/network"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/config"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/metrics"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/optimization"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	appLogger := logger.New(os.Stdout, cfg.LogLevel)

	tuning, err := applyProfile(cfg)
	if err != nil {
		config.Exitf("config: %v", err)
	}

	appLogger.Info("Loading content catalogs...")
	cat, err := catalog.Load()
	if err != nil {
		config.Exitf("catalog: %v", err)
	}

	appLogger.Infof("Initializing SQLite database %q...", cfg.DBPath)
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		config.Exitf("storage: %v", err)
	}
	defer db.Close()

	collector := metrics.New()
	eventRepo := storage.NewSQLiteEventRepository(db, collector)
	saves := storage.NewSQLiteSaveStore(db, cfg.SaveRetention)

	appLogger.Info("Bootstrapping ledger and engine...")
	ledger := events.NewLedger(eventRepo, appLogger)
	eng, err := engine.New(engine.Options{
		Catalog:          cat,
		Store:            saves,
		Ledger:           ledger,
		Seed:             cfg.Seed,
		Logger:           appLogger,
		Metrics:          collector,
		TickInterval:     cfg.TickInterval,
		AutosaveInterval: cfg.AutosaveInterval,
		SaveTimeout:      cfg.SaveTimeout,
	})
	if err != nil {
		config.Exitf("engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(eng, appLogger, collector, network.HubOptions{
		BroadcastBuffer:      cfg.BroadcastBuffer,
		ClientSendBuffer:     cfg.ClientSendBuffer,
		MaxClients:           cfg.MaxClients,
		MaxMessagesPerSecond: cfg.MaxMessagesPerSecond,
	})
	detach := hub.Attach(eng.Subscribe)
	defer detach()
	go hub.Run(ctx)

	if err := eng.Start(ctx); err != nil {
		config.Exitf("engine start: %v", err)
	}

	api := network.NewAPI(eng, hub, storage.NewReconstructor(eventRepo), saves, collector, appLogger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLogger.Infof("HTTP API & WS Server listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Errorf("Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warnf("HTTP shutdown: %v", err)
	}
	if err := eng.Stop(shutdownCtx); err != nil {
		appLogger.Errorf("Final save failed: %v", err)
	}
	ledger.Flush()

	rec := optimization.Analyze(collector.Snapshot(), tuning)
	for _, note := range rec.Notes {
		appLogger.Warn("Tuning: " + note)
	}
	appLogger.Info("Shutdown complete.")
}

// applyProfile overlays a named tuning profile onto the config and returns
// the tuning the server actually runs with.
func applyProfile(cfg *config.Server) (*optimization.Config, error) {
	if cfg.Profile == "" {
		return &optimization.Config{
			TickInterval:           cfg.TickInterval,
			BroadcastChannelBuffer: cfg.BroadcastBuffer,
			ClientSendBuffer:       cfg.ClientSendBuffer,
			MaxMessagesPerSecond:   cfg.MaxMessagesPerSecond,
			MaxClients:             cfg.MaxClients,
		}, nil
	}
	tuning, err := optimization.ForProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}
	cfg.TickInterval = tuning.TickInterval
	cfg.BroadcastBuffer = tuning.BroadcastChannelBuffer
	cfg.ClientSendBuffer = tuning.ClientSendBuffer
	cfg.MaxMessagesPerSecond = tuning.MaxMessagesPerSecond
	cfg.MaxClients = tuning.MaxClients
	return tuning, nil
}
