package sim

import (
	"context"
	"time"

	"supplyline/internal/logging"
	"supplyline/internal/metrics"
	"supplyline/internal/ws"
)

// Scheduler drives the periodic tick: simulation steps first, then the
// snapshot broadcasts. Every stage failure is caught and logged; the loop
// always makes it to the next tick.
type Scheduler struct {
	engine     *Engine
	dispatcher *ws.Dispatcher
	snapshots  ws.SnapshotStore
	interval   time.Duration
	log        *logging.Logger
}

func NewScheduler(engine *Engine, dispatcher *ws.Dispatcher, snapshots ws.SnapshotStore, interval time.Duration, log *logging.Logger) *Scheduler {
	return &Scheduler{
		engine:     engine,
		dispatcher: dispatcher,
		snapshots:  snapshots,
		interval:   interval,
		log:        log,
	}
}

// Run executes ticks at a fixed interval until stop is closed. It is started
// once after initial data setup and runs for the process lifetime.
func (s *Scheduler) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler_started", "periodic simulation loop running", map[string]any{
		"interval": s.interval.String(),
	})
	for {
		select {
		case <-stop:
			s.log.Info("scheduler_stopped", "periodic simulation loop exiting", nil)
			return
		case <-ticker.C:
			// A tick must never outlive its interval; a wedged store
			// call would otherwise stack ticks behind it.
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			s.Tick(ctx)
			cancel()
		}
	}
}

// Tick runs one loop body. Inventory is simulated and broadcast before
// deliveries; consumers must not assume atomicity across the two messages.
func (s *Scheduler) Tick(ctx context.Context) {
	started := time.Now()
	metrics.TicksTotal.Inc()

	s.stage(ctx, "inventory_step", s.engine.StepInventory)
	s.stage(ctx, "delivery_step", s.engine.StepDeliveries)
	s.broadcastStage(ctx, "inventory_broadcast", s.dispatcher.BuildInventorySnapshot)
	s.broadcastStage(ctx, "delivery_broadcast", s.dispatcher.BuildDeliverySnapshot)
	s.broadcastStage(ctx, "order_broadcast", s.dispatcher.BuildOrderSnapshot)

	metrics.TickDuration.Observe(time.Since(started).Seconds())
}

func (s *Scheduler) stage(ctx context.Context, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		metrics.TickStageErrorsTotal.WithLabelValues(name).Inc()
		s.log.Error(name, "tick stage failed", err)
	}
}

func (s *Scheduler) broadcastStage(ctx context.Context, name string, build func(context.Context, ws.SnapshotStore) (ws.Message, error)) {
	msg, err := build(ctx, s.snapshots)
	if err != nil {
		metrics.TickStageErrorsTotal.WithLabelValues(name).Inc()
		s.log.Error(name, "snapshot build failed", err)
		return
	}
	s.dispatcher.Broadcast(msg)
}
