package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the expense API and worker.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	monthEndRuns    *prometheus.CounterVec
	postings        *prometheus.CounterVec
	repayments      *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
	remindersDue    prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expenseflow_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseflow_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseflow_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseflow_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		monthEndRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseflow_month_end_runs_total",
				Help: "Month-end processing runs by outcome.",
			},
			[]string{"outcome"},
		),
		postings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseflow_account_postings_total",
				Help: "Virtual account ledger rows written, by type.",
			},
			[]string{"type"},
		),
		repayments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseflow_repayments_total",
				Help: "Repayments recorded, by borrowing status at payment.",
			},
			[]string{"status"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseflow_events_published_total",
				Help: "Domain events handed to the publisher, by type and result.",
			},
			[]string{"type", "result"},
		),
		remindersDue: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "expenseflow_reminders_due_total",
				Help: "Uncompleted reminder instances found by the worker sweep.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrMonthEndRun counts a month-end run; outcome is "completed", "resumed" or "failed".
func (m *Metrics) IncrMonthEndRun(outcome string) {
	m.monthEndRuns.WithLabelValues(outcome).Inc()
}

// IncrPosting counts a ledger row by its account transaction type.
func (m *Metrics) IncrPosting(txType string) {
	m.postings.WithLabelValues(txType).Inc()
}

func (m *Metrics) IncrRepayment(status string) {
	m.repayments.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrEventPublished(eventType string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) AddRemindersDue(n int) {
	m.remindersDue.Add(float64(n))
}

// Snapshot is a point-in-time read of the counters, used by tests and the
// worker's end-of-sweep log line.
type Snapshot struct {
	CacheHits       float64
	CacheMisses     float64
	MonthEndRuns    float64
	Postings        float64
	Repayments      float64
	EventsPublished float64
	RemindersDue    float64
}

// Snapshot sums every counter across its labels.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		CacheHits:       sumCounterVec(m.cacheHits),
		CacheMisses:     sumCounterVec(m.cacheMisses),
		MonthEndRuns:    sumCounterVec(m.monthEndRuns),
		Postings:        sumCounterVec(m.postings),
		Repayments:      sumCounterVec(m.repayments),
		EventsPublished: sumCounterVec(m.eventsPublished),
		RemindersDue:    counterValue(m.remindersDue),
	}
}

// CounterValue returns one labelled series of a counter, for assertions.
func (m *Metrics) CounterValue(name string, labels ...string) float64 {
	var cv *prometheus.CounterVec
	switch name {
	case "cache_hits":
		cv = m.cacheHits
	case "cache_misses":
		cv = m.cacheMisses
	case "month_end_runs":
		cv = m.monthEndRuns
	case "postings":
		cv = m.postings
	case "repayments":
		cv = m.repayments
	case "events_published":
		cv = m.eventsPublished
	case "external_errors":
		cv = m.externalErrors
	default:
		return 0
	}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	return counterValue(c)
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounterVec collects every child series of cv and adds them up.
func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}
