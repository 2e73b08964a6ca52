package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the scheduler loop, broadcast fan-out, and HTTP API.
var (
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "supplyline_ticks_total",
			Help: "Total number of scheduler ticks executed",
		},
	)

	TickStageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplyline_tick_stage_errors_total",
			Help: "Total number of tick stage failures",
		},
		[]string{"stage"},
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "supplyline_tick_duration_seconds",
			Help:    "Duration of a full scheduler tick",
			Buckets: prometheus.DefBuckets,
		},
	)

	BroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplyline_broadcasts_total",
			Help: "Total number of broadcast messages sent, by message type",
		},
		[]string{"type"},
	)

	SendFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "supplyline_send_failures_total",
			Help: "Total number of WebSocket sends that failed and forced a disconnect",
		},
	)

	ConnectionsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "supplyline_connections",
			Help: "Currently registered WebSocket connections, by role",
		},
		[]string{"role"},
	)

	StockMovementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplyline_stock_movements_total",
			Help: "Total number of stock movements applied, by movement type",
		},
		[]string{"movement_type"},
	)

	DeliveryTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplyline_delivery_transitions_total",
			Help: "Total number of delivery status transitions, by resulting status",
		},
		[]string{"status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "supplyline_http_request_duration_seconds",
			Help:    "Duration of HTTP API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Register attaches all collectors to the given registry.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		TicksTotal,
		TickStageErrorsTotal,
		TickDuration,
		BroadcastsTotal,
		SendFailuresTotal,
		ConnectionsGauge,
		StockMovementsTotal,
		DeliveryTransitionsTotal,
		HTTPRequestDuration,
	)
}
