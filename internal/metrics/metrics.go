package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Решения оператора: decision=approve|reject, outcome=committed|failed|stale
	DecisionsTotal *prometheus.CounterVec

	// Latency вызовов бэкенда библиотеки
	BackendDuration *prometheus.HistogramVec

	// Классификация отказов бэкенда: transport, validation, breaker_open, rate_limit
	BackendErrors *prometheus.CounterVec

	// Размер очереди ожидающих заявок после последней загрузки
	QueueSize prometheus.Gauge

	// Состояние Circuit Breaker (0 - закрыт, 1 - открыт)
	CircuitBreakerState *prometheus.GaugeVec

	// Журнал: заполненность буфера (backpressure)
	JournalBufferFill prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - если регистр не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		DecisionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "libra_console_decisions_total",
			Help: "Total number of borrow request decisions by outcome.",
		}, []string{"decision", "outcome"}),

		BackendDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "libra_console_backend_duration_seconds",
			Help:    "Histogram of library backend call latencies.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation", "status"}),

		BackendErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "libra_console_backend_errors_total",
			Help: "Total number of library backend errors by type.",
		}, []string{"type"}),

		QueueSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "libra_console_pending_queue_size",
			Help: "Number of pending borrow requests in the last loaded queue.",
		}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "libra_console_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=open).",
		}, []string{"backend"}),

		JournalBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "libra_console_journal_buffer_utilization",
			Help: "Current number of decision records waiting in the journal buffer.",
		}),
	}
}
