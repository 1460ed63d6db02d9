package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles         prometheus.Counter
	cycleDuration  prometheus.Histogram
	clientsInCycle prometheus.Gauge
	outcomes       *prometheus.CounterVec
	orders         *prometheus.CounterVec
	tradesReported *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "signaltrader_cycles_total",
			Help: "Total number of completed coordinator cycles",
		}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "signaltrader_cycle_duration_seconds",
			Help:    "Wall time of one coordinator cycle",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		clientsInCycle: f.NewGauge(prometheus.GaugeOpts{
			Name: "signaltrader_cycle_clients",
			Help: "Number of clients processed in the last cycle",
		}),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaltrader_client_outcomes_total",
				Help: "Terminal state reached per client per cycle",
			},
			[]string{"state"},
		),
		orders: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaltrader_orders_total",
				Help: "Order placement attempts by broker and result",
			},
			[]string{"broker", "result"},
		),
		tradesReported: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaltrader_trades_reported_total",
				Help: "Closed trades forwarded to the ledger",
			},
			[]string{"broker"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaltrader_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signaltrader_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCycle(seconds float64, clients int) {
	r.cycles.Inc()
	r.cycleDuration.Observe(seconds)
	r.clientsInCycle.Set(float64(clients))
}

func (r *Recorder) RecordOutcome(state string) {
	r.outcomes.WithLabelValues(state).Inc()
}

func (r *Recorder) RecordOrder(broker, result string) {
	r.orders.WithLabelValues(broker, result).Inc()
}

func (r *Recorder) RecordTradeReported(broker string) {
	r.tradesReported.WithLabelValues(broker).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
