package metrics

import (
	"fmt"
	"net/http"
	"strconv"
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

var defaultHistogramBucketsSeconds = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5}

// collectors are created eagerly so recording is safe before Init registers them
var (
	once          sync.Once
	metricsRouter *chi.Mux

	stakingOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "staking_operation_duration_seconds",
			Help:    "Histogram of staking engine operation durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"operation", "status"},
	)

	// errors are split by the stable error code returned to the caller
	stakingOperationErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staking_operation_error_count",
			Help: "The total number of failed staking operations by error code",
		},
		[]string{"operation", "code"},
	)

	compensationFailureCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "staking_compensation_failure_count",
			Help: "The total number of token transfers that could not be reverted after a failed operation",
		},
	)

	stakedAccountsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "staked_accounts",
			Help: "Number of accounts with a positive stake, reset from the ledger on every reserve check",
		},
	)

	queueSendErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_send_error_count",
			Help: "The total number of errors when sending messages to the queue",
		},
	)

	httpRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of incoming API request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "route", "status"},
	)

	pollerDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poller_duration_seconds",
			Help:    "Histogram of poller durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"poller", "status"},
	)

	contractBalanceGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contract_token_balance",
			Help: "Token balance held by the staking contract, principal included, in whole tokens",
		},
		[]string{"token"},
	)

	contractReserveGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contract_token_reserve",
			Help: "Contract balance left after staked principal, in whole tokens",
		},
		[]string{"token"},
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
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics registers the Prometheus collectors.
func registerMetrics() {
	prometheus.MustRegister(
		stakingOperationDuration,
		stakingOperationErrorCounter,
		compensationFailureCounter,
		stakedAccountsGauge,
		queueSendErrorCounter,
		httpRequestDurationHistogram,
		pollerDurationHistogram,
		contractBalanceGauge,
		contractReserveGauge,
		dbLatency,
	)
}

func RecordStakingOperation(d time.Duration, operation string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	stakingOperationDuration.WithLabelValues(operation, status.String()).Observe(d.Seconds())
}

func IncStakingOperationErrors(operation, code string) {
	stakingOperationErrorCounter.WithLabelValues(operation, code).Inc()
}

func IncCompensationFailures() {
	compensationFailureCounter.Inc()
}

func AddStakedAccounts(delta int) {
	stakedAccountsGauge.Add(float64(delta))
}

// SetStakedAccounts resets the gauge to the count read from the ledger
func SetStakedAccounts(n int) {
	stakedAccountsGauge.Set(float64(n))
}

func RecordContractBalance(token string, amount float64) {
	contractBalanceGauge.WithLabelValues(token).Set(amount)
}

func RecordContractReserve(token string, amount float64) {
	contractReserveGauge.WithLabelValues(token).Set(amount)
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	dbLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

// StartHttpRequestDurationTimer starts a timer to measure an incoming API request.
func StartHttpRequestDurationTimer(method, route string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		RecordHttpRequestDuration(time.Since(startTime), method, route, statusCode)
	}
}

func RecordHttpRequestDuration(d time.Duration, method, route string, statusCode int) {
	httpRequestDurationHistogram.WithLabelValues(
		method,
		route,
		strconv.Itoa(statusCode),
	).Observe(d.Seconds())
}

func RecordQueueSendError() {
	queueSendErrorCounter.Inc()
}
