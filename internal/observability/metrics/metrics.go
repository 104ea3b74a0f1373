package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

func outcome(failure bool) Outcome {
	if failure {
		return Error
	}
	return Success
}

var defaultHistogramBucketsSeconds = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// Collectors exist from package init so recording never depends on Init;
// Init only registers them and exposes the endpoint.
var (
	once          sync.Once
	metricsRouter *chi.Mux

	chainClientLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chain_client_latency_seconds",
			Help:    "Histogram of chain client durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "status"},
	)

	jobDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "background_job_duration_seconds",
			Help:    "Duration of snapshot refreshes and epoch history reloads in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"job", "status"},
	)

	refreshFailuresCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_failures_total",
			Help: "The total number of failed snapshot refresh cycles",
		},
	)

	refresherStateGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "refresher_state",
			Help: "Current refresher state (0 idle, 1 pulling, 2 failed backoff)",
		},
	)

	snapshotPositionsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_positions",
			Help: "Number of positions in the latest snapshot per grouping",
		},
		[]string{"grouping"},
	)

	snapshotTimestampGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_timestamp_seconds",
			Help: "Creation time of the latest installed snapshot",
		},
	)

	droppedDelegationsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dropped_delegations_total",
			Help: "Delegations dropped because their position was missing",
		},
	)

	unresolvedOwnersCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unresolved_owners_total",
			Help: "Positions skipped because their owner could not be resolved",
		},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of query API request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"route", "status"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)
)

// Init initializes the metrics package.
func Init(metricsAddr string) {
	once.Do(func() {
		registerMetrics()
		initMetricsRouter(metricsAddr)
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsAddr string) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	go func() {
		log.Info().Msgf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

func registerMetrics() {
	prometheus.MustRegister(
		chainClientLatency,
		jobDurationHistogram,
		refreshFailuresCounter,
		refresherStateGauge,
		snapshotPositionsGauge,
		snapshotTimestampGauge,
		droppedDelegationsCounter,
		unresolvedOwnersCounter,
		httpRequestDuration,
		dbLatency,
	)
}

func RecordChainClientLatency(d time.Duration, method string, failure bool) {
	chainClientLatency.WithLabelValues(method, outcome(failure).String()).Observe(d.Seconds())
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	dbLatency.WithLabelValues(method, outcome(failure).String()).Observe(d.Seconds())
}

func RecordHTTPRequest(d time.Duration, route string, statusCode int) {
	httpRequestDuration.WithLabelValues(route, fmt.Sprintf("%d", statusCode)).Observe(d.Seconds())
}

func IncRefreshFailures() {
	refreshFailuresCounter.Inc()
}

func RecordRefresherState(state int) {
	refresherStateGauge.Set(float64(state))
}

func RecordSnapshot(timestamp int64, positionsByGrouping map[string]int) {
	snapshotTimestampGauge.Set(float64(timestamp))
	for grouping, count := range positionsByGrouping {
		snapshotPositionsGauge.WithLabelValues(grouping).Set(float64(count))
	}
}

func AddDroppedDelegations(n int) {
	droppedDelegationsCounter.Add(float64(n))
}

func AddUnresolvedOwners(n int) {
	unresolvedOwnersCounter.Add(float64(n))
}
