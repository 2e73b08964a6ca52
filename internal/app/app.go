// Package app wires the back office together: storage, WebSocket fan-out,
// the simulation scheduler, and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"supplyline/internal/config"
	"supplyline/internal/events"
	"supplyline/internal/forecast"
	"supplyline/internal/httpapi"
	"supplyline/internal/logging"
	"supplyline/internal/metrics"
	"supplyline/internal/provenance"
	"supplyline/internal/sim"
	"supplyline/internal/store"
	"supplyline/internal/ws"
)

// OpenStore selects and opens the configured storage backend.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case "memory":
		return store.NewMemory(), nil
	case "sqlite":
		st, err := store.OpenSQLite(ctx, cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	case "postgres":
		st, err := store.OpenPostgres(ctx, store.PostgresConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Name:     cfg.Database.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// Run starts the server and blocks until ctx is cancelled. configPath may be
// empty; hot reload is only active when a config file is in use.
func Run(ctx context.Context, cfg *config.Config, configPath string) error {
	log := logging.New("supplyline")

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	if err := store.Seed(ctx, st, rng); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	promReg := prometheus.NewRegistry()
	metrics.Register(promReg)

	registry := ws.NewRegistry(log)
	dispatcher := ws.NewDispatcher(registry, log)
	wsHandler := ws.NewHandler(registry, log)

	var bridge *events.Bridge
	if cfg.Events.Enabled {
		bridge, err = events.Connect(ctx, events.Config{
			Host:     cfg.Events.Host,
			Port:     cfg.Events.Port,
			User:     cfg.Events.User,
			Password: cfg.Events.Password,
			Exchange: cfg.Events.Exchange,
		}, log)
		if err != nil {
			return fmt.Errorf("connect event broker: %w", err)
		}
		defer bridge.Close()
	}

	ledger := provenance.NewLedger()
	engine := sim.NewEngine(st, sim.Config{
		InventorySample:   cfg.Simulation.InventorySample,
		DeliverySample:    cfg.Simulation.DeliverySample,
		StockChangeChance: cfg.Simulation.StockChangeChance,
		DeliveryAdvance:   cfg.Simulation.DeliveryAdvanceChance,
		MinStockDelta:     cfg.Simulation.MinStockDelta,
		MaxStockDelta:     cfg.Simulation.MaxStockDelta,
	}, rng, bridge, ledger, log)
	engine.SetEnabled(cfg.Simulation.Enabled)

	scheduler := sim.NewScheduler(engine, dispatcher, st, cfg.Interval(), log)
	stopScheduler := make(chan struct{})
	go scheduler.Run(stopScheduler)
	defer close(stopScheduler)

	if configPath != "" {
		stopWatch := config.Watch(configPath, log, func(next *config.Config) {
			engine.SetEnabled(next.Simulation.Enabled)
			log.Info("config_applied", "simulation settings updated", map[string]any{
				"enabled": next.Simulation.Enabled,
			})
		})
		defer stopWatch()
	}

	api := httpapi.NewServer(httpapi.Deps{
		Store:      st,
		Registry:   registry,
		Dispatcher: dispatcher,
		WSHandler:  wsHandler,
		Forecaster: forecast.NewService(st, rand.New(rand.NewSource(time.Now().UnixNano()))),
		Ledger:     ledger,
		PromReg:    promReg,
		Log:        log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server_started", "listening on "+cfg.Server.Addr, map[string]any{
			"driver": cfg.Database.Driver,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("server_stopping", "shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
